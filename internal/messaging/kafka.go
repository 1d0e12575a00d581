package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer kafkaWriter
	logger *zap.Logger
}

// NewKafkaPublisher publishes submission events keyed by submission id.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	logger.Info("kafka publisher configured", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w kafkaWriter, logger *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		writer: w,
		logger: logger,
	}
}

func (p *kafkaPublisher) PublishSubmissionCreated(ctx context.Context, event *model.SubmissionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal submission event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SubmissionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(SubjectSubmissionCreated)},
		},
	})
	if err != nil {
		p.logger.Error("failed to publish submission event", zap.String("submission_id", event.SubmissionID), zap.Error(err))
		return fmt.Errorf("failed to publish submission event: %w", err)
	}

	p.logger.Info("submission event published", zap.String("submission_id", event.SubmissionID))
	return nil
}

func (p *kafkaPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("failed to close kafka writer", zap.Error(err))
		return
	}
	p.logger.Info("kafka writer closed")
}

type noopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher drops events; used when events.driver is "none".
func NewNoopPublisher(logger *zap.Logger) Publisher {
	return &noopPublisher{logger: logger}
}

func (p *noopPublisher) PublishSubmissionCreated(ctx context.Context, event *model.SubmissionEvent) error {
	p.logger.Debug("event publishing disabled", zap.String("submission_id", event.SubmissionID))
	return nil
}

func (p *noopPublisher) Close() {}
