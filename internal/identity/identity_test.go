package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/online-courses/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// carry returns a new request bearing the cookies set on rec.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestTokenRoundTrip(t *testing.T) {
	c := NewCookies(testSecret, true)

	req := httptest.NewRequest(http.MethodPost, "/auth", nil)
	if c.Token(req) != "" {
		t.Fatal("expected no token on a fresh request")
	}

	rec := httptest.NewRecorder()
	if err := c.SetToken(rec, req, "tok-1"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	next := carry(rec)
	if got := c.Token(next); got != "tok-1" {
		t.Fatalf("expected tok-1, got %q", got)
	}

	rec = httptest.NewRecorder()
	if err := c.ClearToken(rec, next); err != nil {
		t.Fatalf("ClearToken failed: %v", err)
	}
	if got := c.Token(carry(rec)); got != "" {
		t.Fatalf("expected token cleared, got %q", got)
	}
}

func TestCookieSignedWithOtherSecretIsIgnored(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := NewCookies(testSecret, true).SetToken(rec, httptest.NewRequest(http.MethodGet, "/", nil), "tok-1"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	other := NewCookies([]byte("ffffffffffffffffffffffffffffffff"), true)
	if got := other.Token(carry(rec)); got != "" {
		t.Fatalf("forged cookie accepted: %q", got)
	}
}

func TestNoticesAreShownOnce(t *testing.T) {
	c := NewCookies(testSecret, true)
	notice := domain.Notice{Title: "ログイン成功", Description: "コースページへ移動します"}

	rec := httptest.NewRecorder()
	if err := c.AddNotice(rec, httptest.NewRequest(http.MethodPost, "/auth", nil), notice); err != nil {
		t.Fatalf("AddNotice failed: %v", err)
	}

	req := carry(rec)
	rec = httptest.NewRecorder()
	got := c.PopNotices(rec, req)
	if len(got) != 1 || got[0] != notice {
		t.Fatalf("unexpected notices %+v", got)
	}

	if again := c.PopNotices(httptest.NewRecorder(), carry(rec)); len(again) != 0 {
		t.Fatalf("notices should be cleared, got %+v", again)
	}
}

func TestClientIDIsStable(t *testing.T) {
	c := NewCookies(testSecret, true)

	rec := httptest.NewRecorder()
	id, err := c.ClientID(rec, httptest.NewRequest(http.MethodPost, "/auth", nil))
	if err != nil {
		t.Fatalf("ClientID failed: %v", err)
	}
	if !clientIDPattern.MatchString(id) {
		t.Fatalf("malformed client id %q", id)
	}

	again, err := c.ClientID(httptest.NewRecorder(), carry(rec))
	if err != nil || again != id {
		t.Fatalf("expected stable id %q, got %q %v", id, again, err)
	}
}

func TestCookieFlags(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := NewCookies(testSecret, false).SetToken(rec, httptest.NewRequest(http.MethodGet, "/", nil), "tok"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != CookieName || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie flags: %+v", ck)
	}
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	if got := IPFromRequest(req); got != "203.0.113.7" {
		t.Fatalf("expected bare IP, got %q", got)
	}
	req.RemoteAddr = "203.0.113.7"
	if got := IPFromRequest(req); got != "203.0.113.7" {
		t.Fatalf("expected address unchanged, got %q", got)
	}
}
