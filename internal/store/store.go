// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/online-courses/internal/domain"
)

// ErrDuplicateEmail is returned by CreateUser when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines the interface for persisting accounts and sessions of
// the local auth backend.
type Repository interface {
	// CreateUser inserts a new user. Returns ErrDuplicateEmail on conflict.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail retrieves a user by email. Returns nil, nil when absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateSession stores a newly issued session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by token. Returns nil, nil when absent.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// DeleteSession removes a session. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// returns them so callers can notify subscribers.
	DeleteExpiredSessions(ctx context.Context, now time.Time) ([]*domain.Session, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
