package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsdigest/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := buildComponents(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer c.Close()

		report, err := orchestrator.New(cfg, c.deps).Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stdout, "💥 An error occurred in main pipeline: %v\n", err)
			c.Close()
			os.Exit(1)
		}
		return orchestrator.WriteReport(os.Stdout, report)
	},
}
