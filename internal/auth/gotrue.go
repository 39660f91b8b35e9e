package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ashureev/online-courses/internal/domain"
	"github.com/tidwall/gjson"
)

// maxResponseBody caps how much of a backend response is read.
const maxResponseBody = 1 << 20

// GoTrue talks to a hosted GoTrue-compatible auth backend (the API behind
// Supabase Auth) over its REST interface.
type GoTrue struct {
	*Broker
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time

	// expiries remembers the expiry of tokens issued through this process so
	// pages can be told when they lapse. token -> time.Time
	expiries sync.Map
}

// NewGoTrue creates a client for the backend at baseURL (e.g.
// https://<project>.supabase.co). apiKey is the public anon key.
func NewGoTrue(baseURL, apiKey string, timeout time.Duration, broker *Broker) *GoTrue {
	if broker == nil {
		broker = NewBroker()
	}
	return &GoTrue{
		Broker:  broker,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CurrentSession asks the backend who owns token. A rejected token is "no
// session"; subscribers of a token this process issued are told it expired.
func (g *GoTrue) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	status, body, err := g.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, token)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if _, known := g.expiries.LoadAndDelete(token); known {
			g.Publish(Event{Kind: EventExpired, Token: token})
		}
		return nil, nil
	case status >= 300:
		return nil, parseError(status, body)
	}

	user := gjson.ParseBytes(body)
	session := &domain.Session{
		Token:  token,
		UserID: user.Get("id").String(),
		Email:  user.Get("email").String(),
	}
	if exp, ok := g.expiries.Load(token); ok {
		session.ExpiresAt = exp.(time.Time)
	}
	return session, nil
}

// SignUp registers the account. When the backend requires email
// confirmation it returns no session and the user lands on the sign-in page.
func (g *GoTrue) SignUp(ctx context.Context, email, password, redirectTo string) (*domain.Session, error) {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	status, body, err := g.do(ctx, http.MethodPost, "/auth/v1/signup", query, credentials{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, parseError(status, body)
	}

	result := gjson.ParseBytes(body)
	if !result.Get("access_token").Exists() {
		slog.Info("Sign-up awaiting confirmation", "user_id", result.Get("id").String())
		return nil, nil
	}
	return g.sessionFrom(result), nil
}

// SignInWithPassword uses the password grant.
func (g *GoTrue) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	query := url.Values{"grant_type": {"password"}}
	status, body, err := g.do(ctx, http.MethodPost, "/auth/v1/token", query, credentials{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, parseError(status, body)
	}
	return g.sessionFrom(gjson.ParseBytes(body)), nil
}

// SignOut revokes token on the backend.
func (g *GoTrue) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	status, body, err := g.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, token)
	if err != nil {
		return err
	}
	g.expiries.Delete(token)
	// An already revoked token is signed out as far as the page is concerned.
	if status >= 300 && status != http.StatusUnauthorized && status != http.StatusForbidden {
		return parseError(status, body)
	}
	g.Publish(Event{Kind: EventSignedOut, Token: token})
	return nil
}

// SweepExpired forgets tokens whose expiry has passed and tells their
// subscribers. The backend is not contacted.
func (g *GoTrue) SweepExpired(context.Context) (int, error) {
	now := g.now()
	n := 0
	g.expiries.Range(func(key, value any) bool {
		if !value.(time.Time).After(now) {
			if _, ok := g.expiries.LoadAndDelete(key); ok {
				g.Publish(Event{Kind: EventExpired, Token: key.(string)})
				n++
			}
		}
		return true
	})
	return n, nil
}

func (g *GoTrue) sessionFrom(result gjson.Result) *domain.Session {
	now := g.now()
	session := &domain.Session{
		Token:     result.Get("access_token").String(),
		UserID:    result.Get("user.id").String(),
		Email:     result.Get("user.email").String(),
		CreatedAt: now,
	}
	switch {
	case result.Get("expires_at").Exists():
		session.ExpiresAt = time.Unix(result.Get("expires_at").Int(), 0)
	case result.Get("expires_in").Exists():
		session.ExpiresAt = now.Add(time.Duration(result.Get("expires_in").Int()) * time.Second)
	}
	if !session.ExpiresAt.IsZero() {
		g.expiries.Store(session.Token, session.ExpiresAt)
	}
	g.Publish(Event{Kind: EventSignedIn, Token: session.Token, Session: session})
	return session
}

func (g *GoTrue) do(ctx context.Context, method, path string, query url.Values, payload any, bearer string) (int, []byte, error) {
	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close auth response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// parseError reads the several error shapes GoTrue versions emit.
func parseError(status int, body []byte) error {
	result := gjson.ParseBytes(body)
	authErr := &Error{
		Status: status,
		Code:   firstString(result, "error_code", "error", "code"),
	}
	authErr.Message = firstString(result, "msg", "error_description", "message")
	if authErr.Message == "" && result.Get("error").Type == gjson.String {
		authErr.Message = result.Get("error").String()
	}
	return authErr
}

func firstString(result gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := result.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
