package events

import (
	"context"
	"errors"
	"sync"

	"newsdigest/logger"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// MessageHandler processes one consumed message. Returning shouldMark=false leaves the offset
// uncommitted so the message is redelivered.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
}

// Consumer feeds run requests from a topic into a MessageHandler as part of a consumer group
type Consumer struct {
	group  sarama.ConsumerGroup
	cfg    ConsumerConfig
	claims *claimHandler
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	// only requests made while the service is up are acted on
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}
	return newConsumer(group, cfg), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		group:  group,
		cfg:    cfg,
		claims: newClaimHandler(cfg.Handler),
	}
}

// Start joins the group in the background and blocks until the first session is assigned
// partitions. It returns ctx's error if that never happens.
func (c *Consumer) Start(ctx context.Context) error {
	go c.consumeLoop(ctx)
	go c.drainErrors()

	select {
	case <-c.claims.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Log.WithFields(logrus.Fields{
		"group": c.cfg.GroupID,
		"topic": c.cfg.Topic,
	}).Info("✅ Kafka consumer started")
	return nil
}

// consumeLoop rejoins after every rebalance until ctx is done or the group is closed
func (c *Consumer) consumeLoop(ctx context.Context) {
	topics := []string{c.cfg.Topic}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, topics, c.claims)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, sarama.ErrClosedConsumerGroup):
			logger.Log.Info("Kafka consumer stopped")
			return
		default:
			logger.Log.Errorf("Error from Kafka consumer: %v", err)
		}
	}
}

func (c *Consumer) drainErrors() {
	for err := range c.group.Errors() {
		logger.Log.Errorf("❌ Kafka consumer error: %v", err)
	}
}

// Close leaves the group; the consume loop exits once the group reports it is closed
func (c *Consumer) Close() error {
	logger.Log.Info("Closing Kafka consumer...")
	return c.group.Close()
}

// claimHandler is the sarama.ConsumerGroupHandler shared by every session of one Consumer.
// ready closes on the first Setup only.
type claimHandler struct {
	handler   MessageHandler
	ready     chan struct{}
	readyOnce sync.Once
}

func newClaimHandler(handler MessageHandler) *claimHandler {
	return &claimHandler{handler: handler, ready: make(chan struct{})}
}

func (h *claimHandler) Setup(session sarama.ConsumerGroupSession) error {
	logger.Log.WithField("generation", session.GenerationID()).Debug("Kafka session assigned")
	h.readyOnce.Do(func() { close(h.ready) })
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			h.handle(ctx, session, message)
		}
	}
}

func (h *claimHandler) handle(ctx context.Context, session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	log := logger.Log.WithFields(logrus.Fields{
		"partition": message.Partition,
		"offset":    message.Offset,
	})
	log.Debug("📥 Received run request")

	shouldMark, err := h.handler.HandleMessage(ctx, message.Value)
	if err != nil {
		log.Errorf("❌ Failed to handle run request: %v", err)
	}
	if shouldMark {
		session.MarkMessage(message, "")
	}
}
