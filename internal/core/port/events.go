package port

import (
	"context"

	"github.com/gerich15/cohortsec/internal/core/domain"
)

// EventPublisher publishes security events to the message bus. The Telegram
// notifier and the anomaly pipeline consume these topics downstream.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishBiometricLockout(ctx context.Context, event domain.BiometricLockoutEvent) error
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
}
