package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types carried on the security bus. The topic prefix is prepended by
// the producer.
const (
	eventTypeLoginSucceeded   = "auth.login"
	eventTypeLoginFailed      = "auth.login_failed"
	eventTypeSessionRevoked   = "auth.session_revoked"
	eventTypeBiometricLockout = "auth.biometric_lockout"
	eventTypeRegistered       = "auth.registered"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Method    string         `json:"method"`
		SessionID string         `json:"session_id"`
		IPAddress *string        `json:"ip,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
		At        time.Time      `json:"at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Method:    event.Method,
		SessionID: event.SessionID,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		At:        event.At.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventTypeLoginSucceeded, event.UserID, event.At, payload)
}

// PublishLoginFailed publishes auth.login_failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		UserID     *string   `json:"user_id,omitempty"`
		Identifier string    `json:"identifier"`
		Method     string    `json:"method"`
		Reason     string    `json:"reason"`
		IPAddress  *string   `json:"ip,omitempty"`
		At         time.Time `json:"at"`
	}{
		UserID:     event.UserID,
		Identifier: event.Identifier,
		Method:     event.Method,
		Reason:     event.Reason,
		IPAddress:  event.IPAddress,
		At:         event.At.UTC(),
	}

	userID := ""
	if event.UserID != nil {
		userID = *event.UserID
	}
	return p.publish(ctx, event.EventID, eventTypeLoginFailed, userID, event.At, payload)
}

// PublishSessionRevoked publishes auth.session_revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		Reason    string    `json:"reason"`
		RevokedAt time.Time `json:"revoked_at"`
		IPAddress *string   `json:"ip,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		Reason:    event.Reason,
		RevokedAt: event.RevokedAt.UTC(),
		IPAddress: event.IPAddress,
	}

	return p.publish(ctx, event.EventID, eventTypeSessionRevoked, event.UserID, event.RevokedAt, payload)
}

// PublishBiometricLockout publishes auth.biometric_lockout events.
func (p *EventPublisher) PublishBiometricLockout(ctx context.Context, event domain.BiometricLockoutEvent) error {
	payload := struct {
		UserID         string    `json:"user_id"`
		FailedAttempts int       `json:"failed_attempts"`
		LockedUntil    time.Time `json:"locked_until"`
		At             time.Time `json:"at"`
	}{
		UserID:         event.UserID,
		FailedAttempts: event.FailedAttempts,
		LockedUntil:    event.LockedUntil.UTC(),
		At:             event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, eventTypeBiometricLockout, event.UserID, event.At, payload)
}

// PublishAccountRegistered publishes auth.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, eventTypeRegistered, event.UserID, event.RegisteredAt, payload)
}
