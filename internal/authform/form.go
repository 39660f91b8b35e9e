// Package authform validates and submits the email/password form.
package authform

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects which collaborator operation a submission calls.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// MinPasswordLength is the only password rule enforced locally.
const MinPasswordLength = 6

//nolint:staticcheck // Shown to users verbatim.
var (
	ErrEmailRequired    = errors.New("メールアドレスを入力してください")
	ErrEmailFormat      = errors.New("メールアドレスの形式が正しくありません")
	ErrPasswordTooShort = errors.New("パスワードは6文字以上で入力してください")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseMode reads a mode value, defaulting to sign-in.
func ParseMode(raw string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(raw))) == ModeSignUp {
		return ModeSignUp
	}
	return ModeSignIn
}

// Form is the submitted form.
type Form struct {
	Email    string
	Password string
	Mode     Mode
}

// FromRequest reads the form fields of r. The password is kept verbatim.
func FromRequest(r *http.Request) Form {
	return Form{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Mode:     ParseMode(r.PostFormValue("mode")),
	}
}

// Validate applies the input control rules.
func (f Form) Validate() error {
	email := strings.TrimSpace(f.Email)
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailFormat
	}
	if utf8.RuneCountInString(f.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
