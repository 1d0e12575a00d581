package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

const (
	SubjectSubmissionCreated     = "onboarding.submission.created"
	SubjectNotificationRequested = "onboarding.notification.requested"
	SubjectNotificationDelivered = "onboarding.notification.delivered"
)

// Publisher публикует события о принятых заявках
type Publisher interface {
	PublishSubmissionCreated(ctx context.Context, event *model.SubmissionEvent) error
	Close()
}

type NATSClient interface {
	Publisher
	PublishNotificationRequest(ctx context.Context, req *model.NotificationRequest) error
	SubscribeToNotificationDelivered(ctx context.Context, handler func(*model.NotificationDelivered)) error
}

// Интерфейс для nats.Conn
type natsConnection interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

type natsClient struct {
	conn   natsConnection
	logger *zap.Logger
}

func NewNATSClient(url string, logger *zap.Logger) (NATSClient, error) {
	conn, err := nats.Connect(url, nats.Name("investor-onboarding"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", url))
	return newNATSClient(conn, logger), nil
}

func newNATSClient(conn natsConnection, logger *zap.Logger) *natsClient {
	return &natsClient{
		conn:   conn,
		logger: logger,
	}
}

func (c *natsClient) PublishSubmissionCreated(ctx context.Context, event *model.SubmissionEvent) error {
	return c.publish(SubjectSubmissionCreated, event, event.SubmissionID)
}

// PublishNotificationRequest отправляет запрос на письмо команде онбординга
func (c *natsClient) PublishNotificationRequest(ctx context.Context, req *model.NotificationRequest) error {
	return c.publish(SubjectNotificationRequested, req, req.SubmissionID)
}

func (c *natsClient) publish(subject string, msg any, submissionID string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to marshal %s message: %w", subject, err)
	}

	if err := c.conn.Publish(subject, data); err != nil {
		c.logger.Error("failed to publish message", zap.String("subject", subject), zap.String("submission_id", submissionID), zap.Error(err))
		return fmt.Errorf("failed to publish %s message: %w", subject, err)
	}

	c.logger.Info("message published", zap.String("subject", subject), zap.String("submission_id", submissionID))
	return nil
}

func (c *natsClient) SubscribeToNotificationDelivered(ctx context.Context, handler func(*model.NotificationDelivered)) error {
	_, err := c.conn.Subscribe(SubjectNotificationDelivered, func(msg *nats.Msg) {
		var delivered model.NotificationDelivered
		if err := json.Unmarshal(msg.Data, &delivered); err != nil {
			c.logger.Error("failed to unmarshal notification delivered message", zap.Error(err))
			return
		}

		handler(&delivered)
		c.logger.Info("notification delivered message processed",
			zap.String("submission_id", delivered.SubmissionID),
			zap.String("channel", delivered.Channel))
	})

	if err != nil {
		c.logger.Error("failed to subscribe to notification delivered", zap.Error(err))
		return fmt.Errorf("failed to subscribe to notification delivered: %w", err)
	}

	c.logger.Info("subscribed to notification delivered messages")
	return nil
}

func (c *natsClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		c.logger.Info("NATS connection closed")
	}
}
