package events

import (
	"context"
	"encoding/json"
	"fmt"

	"newsdigest/logger"
	"newsdigest/types"

	"github.com/IBM/sarama"
)

// Publisher emits each finished report to a Kafka topic, keyed by run id
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewPublisherWith(producer, topic), nil
}

func NewPublisherWith(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Deliver(_ context.Context, report *types.Report) error {
	value, err := json.Marshal(report)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(report.RunID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	logger.Log.Debugf("Published report %s to %s[%d]@%d", report.RunID, p.topic, partition, offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
