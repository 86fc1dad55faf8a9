package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/gerich15/cohortsec/internal/core/domain"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

// PublishLoginSucceeded logs auth.login events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logger.Info("event published",
		zap.String("event_type", eventTypeLoginSucceeded),
		zap.String("user_id", event.UserID),
		zap.String("method", event.Method),
		zap.String("session_id", event.SessionID))
	return nil
}

// PublishLoginFailed logs auth.login_failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.logger.Info("event published",
		zap.String("event_type", eventTypeLoginFailed),
		zap.String("method", event.Method),
		zap.String("reason", event.Reason))
	return nil
}

// PublishSessionRevoked logs auth.session_revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logger.Info("event published",
		zap.String("event_type", eventTypeSessionRevoked),
		zap.String("user_id", event.UserID),
		zap.String("session_id", event.SessionID))
	return nil
}

// PublishBiometricLockout logs auth.biometric_lockout events.
func (p *StubPublisher) PublishBiometricLockout(_ context.Context, event domain.BiometricLockoutEvent) error {
	p.logger.Warn("event published",
		zap.String("event_type", eventTypeBiometricLockout),
		zap.String("user_id", event.UserID),
		zap.Int("failed_attempts", event.FailedAttempts),
		zap.Time("locked_until", event.LockedUntil))
	return nil
}

// PublishAccountRegistered logs auth.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logger.Info("event published",
		zap.String("event_type", eventTypeRegistered),
		zap.String("user_id", event.UserID))
	return nil
}
