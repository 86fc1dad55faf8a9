package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "cohortsec",
		},
		done: make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "cohortsec-api",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishLoginSucceeded(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.LoginSucceededEvent{
		EventID:   "event-123",
		UserID:    "user-789",
		Method:    "password",
		SessionID: "session-456",
		At:        at,
	}

	if err := publisher.PublishLoginSucceeded(context.Background(), event); err != nil {
		t.Fatalf("PublishLoginSucceeded returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "cohortsec.auth.login" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope struct {
			EventID   string         `json:"event_id"`
			EventType string         `json:"event_type"`
			UserID    string         `json:"user_id"`
			Version   string         `json:"version"`
			Payload   map[string]any `json:"payload"`
			Metadata  map[string]any `json:"metadata"`
		}
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}

		if envelope.EventID != "event-123" {
			t.Fatalf("unexpected event id %q", envelope.EventID)
		}
		if envelope.EventType != "auth.login" {
			t.Fatalf("unexpected event type %q", envelope.EventType)
		}
		if envelope.UserID != "user-789" {
			t.Fatalf("unexpected user id %q", envelope.UserID)
		}
		if envelope.Version != "1.0" {
			t.Fatalf("unexpected schema version %q", envelope.Version)
		}
		if envelope.Payload["method"] != "password" {
			t.Fatalf("unexpected method %v", envelope.Payload["method"])
		}
		if envelope.Payload["session_id"] != "session-456" {
			t.Fatalf("unexpected session id %v", envelope.Payload["session_id"])
		}
		if envelope.Metadata["service"] != "cohortsec-api" {
			t.Fatalf("unexpected service metadata %v", envelope.Metadata["service"])
		}
	default:
		t.Fatal("expected message on producer input channel")
	}
}

func TestPublishBiometricLockout(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.BiometricLockoutEvent{
		UserID:         "user-789",
		FailedAttempts: 5,
		LockedUntil:    at.Add(30 * time.Minute),
		At:             at,
	}

	if err := publisher.PublishBiometricLockout(context.Background(), event); err != nil {
		t.Fatalf("PublishBiometricLockout returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "cohortsec.auth.biometric_lockout" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope struct {
			EventID string         `json:"event_id"`
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}

		if envelope.EventID == "" {
			t.Fatal("expected generated event id")
		}
		if envelope.Payload["failed_attempts"] != float64(5) {
			t.Fatalf("unexpected failed attempts %v", envelope.Payload["failed_attempts"])
		}
	default:
		t.Fatal("expected message on producer input channel")
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	// Fill the buffered input channel so the next publish blocks.
	asyncProducer.input <- &sarama.ProducerMessage{}

	publisher := newTestPublisher(t, asyncProducer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		Identifier: "someone",
		Method:     "password",
		Reason:     "invalid_credentials",
		At:         time.Now(),
	})
	if err == nil {
		t.Fatal("expected error when context cancelled")
	}
}
