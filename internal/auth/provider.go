// Package auth adapts external identity backends behind one Provider
// interface and fans session changes out to subscribers.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/online-courses/internal/domain"
)

//nolint:staticcheck // These messages are shown to users verbatim.
var (
	// ErrInvalidCredentials is returned when email and password do not match.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	// ErrEmailTaken is returned by SignUp for an already registered email.
	ErrEmailTaken = errors.New("User already registered")
)

// Provider is the auth collaborator. Pages never hold a global session; they
// ask the provider on entry and subscribe for changes while mounted.
type Provider interface {
	// CurrentSession resolves token. Returns nil, nil when there is no session.
	CurrentSession(ctx context.Context, token string) (*domain.Session, error)

	// Subscribe registers fn for changes to the session identified by token.
	// The caller owns the returned handle and must Unsubscribe on teardown.
	Subscribe(token string, fn func(Event)) *Subscription

	// SignUp creates an account. The session is nil when the backend
	// requires confirmation before signing the user in.
	SignUp(ctx context.Context, email, password, redirectTo string) (*domain.Session, error)

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignOut ends the session identified by token.
	SignOut(ctx context.Context, token string) error
}

// Error is a rejection reported by a remote auth backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth backend returned status %d", e.Status)
	}
	return e.Message
}

// Message extracts the text to show a user for err. Empty when err carries
// nothing presentable.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return ErrInvalidCredentials.Error()
	}
	if errors.Is(err, ErrEmailTaken) {
		return ErrEmailTaken.Error()
	}
	return ""
}
