package port

import (
	"context"
	"time"

	"github.com/gerich15/cohortsec/internal/core/domain"
)

// SessionRepository deals with refresh-session storage.
//
// Consume is the revocation checkpoint for refresh-token rotation: it must
// atomically remove the row matching (userID, jti) when it is still live, so
// that concurrent rotations of the same token identity let at most one
// caller through.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Consume(ctx context.Context, userID, jti string) (*domain.Session, error)
	Revoke(ctx context.Context, userID, jti string) error
	RevokeByID(ctx context.Context, userID, sessionID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
