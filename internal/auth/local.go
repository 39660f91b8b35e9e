package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/online-courses/internal/domain"
	"github.com/ashureev/online-courses/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Local is a self-contained Provider backed by a store.Repository. It stands
// in for the hosted backend in development and single-node deployments.
type Local struct {
	*Broker
	repo       store.Repository
	sessionTTL time.Duration
	now        func() time.Time
}

// NewLocal creates a local provider issuing sessions that live for sessionTTL.
func NewLocal(repo store.Repository, broker *Broker, sessionTTL time.Duration) *Local {
	if broker == nil {
		broker = NewBroker()
	}
	return &Local{
		Broker:     broker,
		repo:       repo,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// CurrentSession resolves token. An expired session is removed and reported
// to subscribers as expired.
func (l *Local) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := l.repo.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(l.now()) {
		if err := l.repo.DeleteSession(ctx, token); err != nil {
			slog.Warn("failed to delete expired session", "user_id", session.UserID, "error", err)
		}
		l.Publish(Event{Kind: EventExpired, Token: token})
		return nil, nil
	}
	return session, nil
}

// SignUp creates the account and signs it in immediately. redirectTo is
// only meaningful for backends that send confirmation mail.
func (l *Local) SignUp(ctx context.Context, email, password, _ string) (*domain.Session, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := l.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("User registered", "user_id", user.ID)

	return l.issue(ctx, user)
}

// SignInWithPassword verifies the password and issues a new session.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := l.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return l.issue(ctx, user)
}

// SignOut deletes the session and tells its subscribers.
func (l *Local) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := l.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	l.Publish(Event{Kind: EventSignedOut, Token: token})
	return nil
}

func (l *Local) issue(ctx context.Context, user *domain.User) (*domain.Session, error) {
	now := l.now()
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(l.sessionTTL),
		CreatedAt: now,
	}
	if err := l.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	l.Publish(Event{Kind: EventSignedIn, Token: session.Token, Session: session})
	return session, nil
}

// SweepExpired removes expired sessions and notifies their subscribers.
func (l *Local) SweepExpired(ctx context.Context) (int, error) {
	expired, err := l.repo.DeleteExpiredSessions(ctx, l.now())
	if err != nil {
		return 0, err
	}
	for _, s := range expired {
		l.Publish(Event{Kind: EventExpired, Token: s.Token})
	}
	return len(expired), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
