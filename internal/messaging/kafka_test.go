package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"

	"investor_onboarding/internal/model"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    bool
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.writeFunc(ctx, msgs...)
}

func (m *mockKafkaWriter) Close() error {
	m.closed = true
	return nil
}

func TestKafkaPublishSubmissionCreated(t *testing.T) {
	tests := []struct {
		name          string
		writeError    error
		expectedError string
	}{
		{name: "successful_publish"},
		{name: "write_error", writeError: errors.New("leader not available"), expectedError: "failed to publish submission event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var written []kafka.Message
			w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
				written = msgs
				return tt.writeError
			}}
			p := newKafkaPublisher(w, zaptest.NewLogger(t))

			err := p.PublishSubmissionCreated(context.Background(), &model.SubmissionEvent{SubmissionID: "sub-1", Documents: 5})

			if tt.expectedError != "" {
				if err == nil || !containsError(err.Error(), tt.expectedError) {
					t.Errorf("expected error containing '%s', but got '%v'", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(written) != 1 || string(written[0].Key) != "sub-1" {
				t.Fatalf("expected one message keyed by submission id, but got %v", written)
			}
			var event model.SubmissionEvent
			if err := json.Unmarshal(written[0].Value, &event); err != nil || event.Documents != 5 {
				t.Errorf("unexpected message value '%s'", string(written[0].Value))
			}

			p.Close()
			if !w.closed {
				t.Error("expected writer to be closed")
			}
		})
	}
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(zaptest.NewLogger(t))
	if err := p.PublishSubmissionCreated(context.Background(), &model.SubmissionEvent{SubmissionID: "sub-1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	p.Close()
}
