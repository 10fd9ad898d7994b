package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsdigest/api"
	"newsdigest/config"
	"newsdigest/events"
	"newsdigest/logger"
	"newsdigest/orchestrator"
	"newsdigest/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API, scheduler and run-request consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.RequestDelaySet {
			cfg.RequestDelay = config.InteractiveRequestDelay
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		c, err := buildComponents(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer c.Close()

		runner := orchestrator.NewRunner(ctx, cfg, c.deps, state.NewManager())
		server := api.NewServer(runner, cfg.Port)
		if err := server.Start(); err != nil {
			return err
		}
		if cfg.Schedule != "" {
			if err := server.StartCron(cfg.Schedule); err != nil {
				return err
			}
		}

		var consumer *events.Consumer
		if len(cfg.KafkaBrokers) > 0 && cfg.RunTopic != "" {
			consumer, err = events.NewConsumer(events.ConsumerConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.RunTopic,
				GroupID: cfg.ConsumerGroup,
				Handler: events.NewRunRequestHandler(runner.Start),
			})
			if err != nil {
				logger.Log.Errorf("Failed to create Kafka consumer: %v", err)
			} else {
				go func() {
					if err := consumer.Start(ctx); err != nil {
						logger.Log.Errorf("Failed to start Kafka consumer: %v", err)
					}
				}()
			}
		}

		fmt.Printf("📰 News Digest Service\n")
		fmt.Printf("   API:       http://0.0.0.0:%s\n", cfg.Port)
		if cfg.Schedule != "" {
			fmt.Printf("   Schedule:  %s\n", cfg.Schedule)
		}
		if consumer != nil {
			fmt.Printf("   Run topic: %s\n", cfg.RunTopic)
		}
		fmt.Println("\nPress Ctrl+C to shutdown")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("Shutdown error: %v", err)
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Log.Errorf("Kafka consumer close error: %v", err)
			}
		}
		cancel()
		runner.Wait()

		fmt.Println("Server stopped")
		return nil
	},
}
