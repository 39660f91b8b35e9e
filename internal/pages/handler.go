// Package pages serves the HTML pages: landing, auth form, catalog and
// course detail.
package pages

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/online-courses/internal/api"
	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/authform"
	"github.com/ashureev/online-courses/internal/chat"
	"github.com/ashureev/online-courses/internal/domain"
	"github.com/ashureev/online-courses/internal/gate"
	"github.com/ashureev/online-courses/internal/identity"
	"github.com/go-chi/chi/v5"
)

// maxChatBody caps the chat request body.
const maxChatBody = 16 << 10

// Handler serves the pages.
type Handler struct {
	provider  auth.Provider
	cookies   *identity.Cookies
	submitter *authform.Submitter
	chats     *chat.Registry
	render    *Renderer
	baseURL   string
}

// NewHandler creates a page handler.
func NewHandler(p auth.Provider, cookies *identity.Cookies, submitter *authform.Submitter, chats *chat.Registry, render *Renderer, baseURL string) *Handler {
	return &Handler{
		provider:  p,
		cookies:   cookies,
		submitter: submitter,
		chats:     chats,
		render:    render,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// RegisterRoutes mounts the page routes. authLimit wraps POST /auth.
func (h *Handler) RegisterRoutes(r chi.Router, authLimit func(http.Handler) http.Handler) {
	r.Get("/", h.Landing)
	r.Get("/auth", h.AuthPage)
	r.With(authLimit).Post("/auth", h.SubmitAuth)
	r.Post("/signout", h.SignOut)

	r.Group(func(r chi.Router) {
		r.Use(gate.Require(h.provider, h.cookies))
		r.Get("/courses", h.Courses)
		r.Get("/course/{id}", h.Course)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireFunc(h.provider, h.cookies, api.Unauthorized))
		r.Post("/course/{id}/chat", h.Chat)
	})
}

type landingData struct {
	Base
	Hero     Hero
	Features []Feature
	Plans    []Plan
}

// Landing serves GET /.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "landing", landingData{
		Base:     Base{Notices: h.cookies.PopNotices(w, r)},
		Hero:     landingHero,
		Features: landingFeatures,
		Plans:    landingPlans,
	})
}

type authData struct {
	Base
	Mode        authform.Mode
	SignUp      bool
	Email       string
	MinPassword int
}

// newAuthData never echoes the password back into the page.
func newAuthData(f authform.Form, notices []domain.Notice) authData {
	return authData{
		Base:        Base{Notices: notices},
		Mode:        f.Mode,
		SignUp:      f.Mode == authform.ModeSignUp,
		Email:       f.Email,
		MinPassword: authform.MinPasswordLength,
	}
}

// AuthPage serves GET /auth.
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	form := authform.Form{Mode: authform.ParseMode(r.URL.Query().Get("mode"))}
	h.render.Render(w, r, http.StatusOK, "auth", newAuthData(form, h.cookies.PopNotices(w, r)))
}

// SubmitAuth serves POST /auth. Success stores the token, queues the notice
// and goes to the catalog; failure re-renders the filled form.
func (h *Handler) SubmitAuth(w http.ResponseWriter, r *http.Request) {
	form := authform.FromRequest(r)

	clientID, err := h.cookies.ClientID(w, r)
	if err != nil {
		slog.Warn("Failed to assign client id, keying by address", "error", err)
		clientID = identity.IPFromRequest(r)
	}

	out, err := h.submitter.Submit(r.Context(), clientID, form, h.baseURL+"/courses")
	if errors.Is(err, authform.ErrSubmissionInFlight) {
		h.render.Render(w, r, http.StatusConflict, "auth", newAuthData(form, nil))
		return
	}
	if !out.OK() {
		h.render.Render(w, r, http.StatusOK, "auth", newAuthData(form, []domain.Notice{out.Notice}))
		return
	}

	if out.Session != nil {
		if err := h.cookies.SetToken(w, r, out.Session.Token); err != nil {
			slog.Error("Failed to store session cookie", "error", err)
			h.render.Render(w, r, http.StatusInternalServerError, "auth", newAuthData(form, nil))
			return
		}
	}
	if err := h.cookies.AddNotice(w, r, out.Notice); err != nil {
		slog.Warn("Failed to queue notice", "error", err)
	}
	http.Redirect(w, r, "/courses", http.StatusSeeOther)
}

// SignOut serves POST /signout. It always lands on the landing page.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := h.cookies.Token(r); token != "" {
		if err := h.provider.SignOut(r.Context(), token); err != nil {
			slog.Warn("Sign-out failed, clearing cookie anyway", "error", err)
		}
	}
	if err := h.cookies.ClearToken(w, r); err != nil {
		slog.Warn("Failed to clear session cookie", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type coursesData struct {
	Base
	Email    string
	Progress domain.Progress
	Courses  []domain.CourseSummary
}

// Courses serves GET /courses.
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	session := gate.SessionFromContext(r.Context())
	courses := domain.Catalog()
	h.render.Render(w, r, http.StatusOK, "courses", coursesData{
		Base:     Base{Notices: h.cookies.PopNotices(w, r), Watch: true},
		Email:    session.Email,
		Progress: domain.ComputeProgress(courses),
		Courses:  courses,
	})
}

type courseData struct {
	Base
	Course     domain.CourseSummary
	Difficulty string
	Turns      []domain.ChatTurn
	Related    []domain.CourseSummary
}

type notFoundData struct {
	Base
	Message string
}

// Course serves GET /course/{id}. Each render opens a fresh chat view that
// lives until the page's session socket closes.
func (h *Handler) Course(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		h.render.Render(w, r, http.StatusNotFound, "notfound", notFoundData{
			Base:    Base{Watch: true},
			Message: "講義が見つかりません",
		})
		return
	}

	session := gate.SessionFromContext(r.Context())
	viewID, turns := h.chats.Open(id, session.UserID)

	relatedIDs := domain.RelatedCourseIDs(id)
	related := make([]domain.CourseSummary, 0, len(relatedIDs))
	for _, rid := range relatedIDs {
		related = append(related, domain.NewCourseSummary(rid))
	}

	h.render.Render(w, r, http.StatusOK, "course", courseData{
		Base:       Base{Notices: h.cookies.PopNotices(w, r), ViewID: viewID, Watch: true},
		Course:     domain.NewCourseSummary(id),
		Difficulty: domain.CourseDifficulty,
		Turns:      turns,
		Related:    related,
	})
}

type chatRequest struct {
	ViewID  string `json:"view_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Turns []domain.ChatTurn `json:"turns"`
}

// Chat serves POST /course/{id}/chat and returns the turns it appended.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, err.Error())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := gate.SessionFromContext(r.Context())
	added, err := h.chats.Send(req.ViewID, session.UserID, id, req.Message)
	if errors.Is(err, chat.ErrViewNotFound) {
		api.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("Chat send failed", "course_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "chat failed")
		return
	}
	if added == nil {
		added = []domain.ChatTurn{}
	}
	api.JSON(w, http.StatusOK, chatResponse{Turns: added})
}
