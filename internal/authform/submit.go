package authform

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/domain"
)

// ErrSubmissionInFlight is returned while the same client already has a
// submission outstanding.
var ErrSubmissionInFlight = errors.New("submission already in progress")

// Notice texts.
const (
	titleSignedUp    = "アカウント作成完了"
	descSignedUp     = "ログインしています..."
	titleSignedIn    = "ログイン成功"
	descSignedIn     = "コースページへ移動します"
	titleFailed      = "エラー"
	fallbackFailDesc = "認証に失敗しました"
)

// Outcome is the result of a submission. Session is nil when the form was
// rejected or the backend wants the email confirmed first.
type Outcome struct {
	Session *domain.Session
	Notice  domain.Notice
}

// OK reports whether the collaborator accepted the submission.
func (o Outcome) OK() bool {
	return !o.Notice.IsDestructive()
}

// Submitter sends forms to the auth provider, one at a time per client.
type Submitter struct {
	provider auth.Provider
	inFlight sync.Map // clientKey -> struct{}
}

// NewSubmitter creates a Submitter.
func NewSubmitter(p auth.Provider) *Submitter {
	return &Submitter{provider: p}
}

// Submit validates f and calls the provider. Validation failures and
// collaborator rejections come back as a destructive notice, not an error;
// the error is reserved for ErrSubmissionInFlight.
func (s *Submitter) Submit(ctx context.Context, clientKey string, f Form, redirectTo string) (Outcome, error) {
	if err := f.Validate(); err != nil {
		return failed(err.Error()), nil
	}

	if _, busy := s.inFlight.LoadOrStore(clientKey, struct{}{}); busy {
		return Outcome{}, ErrSubmissionInFlight
	}
	defer s.inFlight.Delete(clientKey)

	email := strings.TrimSpace(f.Email)
	var (
		session *domain.Session
		err     error
	)
	switch f.Mode {
	case ModeSignUp:
		session, err = s.provider.SignUp(ctx, email, f.Password, redirectTo)
	default:
		session, err = s.provider.SignInWithPassword(ctx, email, f.Password)
	}
	if err != nil {
		slog.Info("Auth submission rejected", "mode", f.Mode, "error", err)
		msg := auth.Message(err)
		if msg == "" {
			msg = fallbackFailDesc
		}
		return failed(msg), nil
	}

	if f.Mode == ModeSignUp {
		return Outcome{Session: session, Notice: domain.Notice{Title: titleSignedUp, Description: descSignedUp}}, nil
	}
	return Outcome{Session: session, Notice: domain.Notice{Title: titleSignedIn, Description: descSignedIn}}, nil
}

func failed(desc string) Outcome {
	return Outcome{Notice: domain.Notice{
		Title:       titleFailed,
		Description: desc,
		Severity:    domain.SeverityDestructive,
	}}
}
