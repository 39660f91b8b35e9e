package pages

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/authform"
	"github.com/ashureev/online-courses/internal/chat"
	"github.com/ashureev/online-courses/internal/domain"
	"github.com/ashureev/online-courses/internal/identity"
	"github.com/ashureev/online-courses/internal/store"
	"github.com/go-chi/chi/v5"
)

type testApp struct {
	srv    *httptest.Server
	client *http.Client
	chats  *chat.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	provider := auth.NewLocal(repo, nil, time.Hour)
	cookies := identity.NewCookies([]byte("0123456789abcdef0123456789abcdef"), true)
	render, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	chats := chat.NewRegistry(nil)

	r := chi.NewRouter()
	h := NewHandler(provider, cookies, authform.NewSubmitter(provider), chats, render, "http://localhost:8080")
	h.RegisterRoutes(r, func(next http.Handler) http.Handler { return next })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{srv: srv, client: client, chats: chats}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (a *testApp) postJSON(t *testing.T, path string, v any) (*http.Response, string) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := a.client.Post(a.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func (a *testApp) signUp(t *testing.T, email string) {
	t.Helper()
	resp, _ := a.postForm(t, "/auth", url.Values{"mode": {"signup"}, "email": {email}, "password": {"secret1"}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/courses" {
		t.Fatalf("sign-up: expected 303 to /courses, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestLanding(t *testing.T) {
	app := newTestApp(t)
	resp, body := app.get(t, "/")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"あなたのスキルを", "次のレベルへ", "¥9,800", "¥29,800", "おすすめ", "AIチャットボット", `href="/auth?mode=signup"`} {
		if !strings.Contains(body, want) {
			t.Errorf("landing page missing %q", want)
		}
	}
	if strings.Contains(body, "data-watch-session") {
		t.Error("landing page must not watch the session")
	}
}

func TestAuthPageModes(t *testing.T) {
	app := newTestApp(t)

	_, body := app.get(t, "/auth")
	if !strings.Contains(body, "アカウントにログインしてください") || !strings.Contains(body, `value="signin"`) {
		t.Error("expected sign-in form by default")
	}

	_, body = app.get(t, "/auth?mode=signup")
	if !strings.Contains(body, "新しいアカウントを作成して学習を始めましょう") || !strings.Contains(body, `value="signup"`) {
		t.Error("expected sign-up form")
	}
}

func TestGatedPagesRedirectWithoutSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/courses", "/course/1"} {
		resp, _ := app.get(t, path)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/auth" {
			t.Errorf("%s: expected 303 to /auth, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, _ := app.postJSON(t, "/course/1/chat", map[string]string{"view_id": "x", "message": "hi"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("chat without session: expected 401, got %d", resp.StatusCode)
	}
}

func TestSignUpShowsCatalog(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "learner@example.com")

	resp, body := app.get(t, "/courses")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"learner@example.com", "完了済み: 5 / 30 講義 (17%)", "アカウント作成完了", "第30講：講義タイトル 30", `href="/course/1"`, "data-watch-session"} {
		if !strings.Contains(body, want) {
			t.Errorf("catalog missing %q", want)
		}
	}
	if got := strings.Count(body, `class="card course-card"`); got != domain.CourseCount {
		t.Errorf("expected %d course cards, got %d", domain.CourseCount, got)
	}

	// The notice is shown once.
	_, body = app.get(t, "/courses")
	if strings.Contains(body, "アカウント作成完了") {
		t.Error("notice should not be shown twice")
	}
}

func TestSignInFailureKeepsForm(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "a@example.com")
	if resp, _ := app.postForm(t, "/signout", nil); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("sign-out: expected 303, got %d", resp.StatusCode)
	}

	resp, body := app.postForm(t, "/auth", url.Values{"mode": {"signin"}, "email": {"a@example.com"}, "password": {"wrong-password"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", resp.StatusCode)
	}
	for _, want := range []string{"エラー", "Invalid login credentials", "toast-destructive", `value="a@example.com"`} {
		if !strings.Contains(body, want) {
			t.Errorf("failed sign-in page missing %q", want)
		}
	}
	if strings.Contains(body, "wrong-password") {
		t.Error("failed sign-in page echoes the password")
	}

	resp, _ = app.postForm(t, "/auth", url.Values{"mode": {"signin"}, "email": {"a@example.com"}, "password": {"secret1"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected successful sign-in, got %d", resp.StatusCode)
	}
	_, body = app.get(t, "/courses")
	if !strings.Contains(body, "ログイン成功") {
		t.Error("expected sign-in notice on the catalog")
	}
}

func TestShortPasswordRejectedLocally(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm(t, "/auth", url.Values{"mode": {"signup"}, "email": {"a@example.com"}, "password": {"12345"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, authform.ErrPasswordTooShort.Error()) {
		t.Error("expected password length notice")
	}

	// No account was created, so signing in with the same password fails.
	_, body = app.postForm(t, "/auth", url.Values{"mode": {"signin"}, "email": {"a@example.com"}, "password": {"123456"}})
	if !strings.Contains(body, "Invalid login credentials") {
		t.Error("short-password submission must not reach the backend")
	}
}

var viewPattern = regexp.MustCompile(`data-view="([0-9a-f-]+)"`)

func TestCourseDetail(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "a@example.com")

	resp, body := app.get(t, "/course/15")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("detail page must not be cached, got Cache-Control %q", cc)
	}
	for _, want := range []string{"第15講：講義タイトル 15", `href="/course/14"`, `href="/course/16"`, `href="/course/17"`, domain.ChatGreeting, "15分", "中級"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
	if strings.Contains(body, `href="/course/18"`) {
		t.Error("unexpected related course 18")
	}

	_, body = app.get(t, "/course/30")
	if !strings.Contains(body, `href="/course/29"`) || strings.Contains(body, `href="/course/31"`) {
		t.Error("course 30 should only relate to 29")
	}

	for _, path := range []string{"/course/abc", "/course/0", "/course/31"} {
		resp, body := app.get(t, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
		if strings.Contains(body, "NaN") {
			t.Errorf("%s: rendered a broken title", path)
		}
	}
}

func TestChat(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "a@example.com")

	_, body := app.get(t, "/course/3")
	m := viewPattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("detail page has no chat view id")
	}
	viewID := m[1]

	resp, body := app.postJSON(t, "/course/3/chat", map[string]string{"view_id": viewID, "message": "What is X?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var got chatResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "What is X?"},
		{Role: domain.RoleAssistant, Content: domain.ChatPlaceholder},
	}
	if len(got.Turns) != 2 || got.Turns[0] != want[0] || got.Turns[1] != want[1] {
		t.Fatalf("unexpected turns %+v", got.Turns)
	}

	_, body = app.postJSON(t, "/course/3/chat", map[string]string{"view_id": viewID, "message": "  "})
	if err := json.Unmarshal([]byte(body), &got); err != nil || len(got.Turns) != 0 {
		t.Fatalf("blank message should append nothing, got %+v %v", got.Turns, err)
	}

	if resp, _ := app.postJSON(t, "/course/4/chat", map[string]string{"view_id": viewID, "message": "hi"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("view of another course: expected 404, got %d", resp.StatusCode)
	}
	if resp, _ := app.postJSON(t, "/course/3/chat", map[string]string{"view_id": "missing", "message": "hi"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown view: expected 404, got %d", resp.StatusCode)
	}

	app.chats.Release(viewID)
	if resp, _ := app.postJSON(t, "/course/3/chat", map[string]string{"view_id": viewID, "message": "hi"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("released view: expected 404, got %d", resp.StatusCode)
	}
}

func TestSignOut(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "a@example.com")

	resp, _ := app.postForm(t, "/signout", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = app.get(t, "/courses")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/auth" {
		t.Fatalf("expected redirect to /auth after sign-out, got %d", resp.StatusCode)
	}

	// Signing out without a session still lands on the landing page.
	resp, _ = app.postForm(t, "/signout", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected 303 to / without a session, got %d", resp.StatusCode)
	}
}
