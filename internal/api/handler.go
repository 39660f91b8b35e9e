// Package api provides the JSON endpoints and the response helpers shared
// with the page handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/online-courses/internal/domain"
	"github.com/ashureev/online-courses/internal/gate"
	"github.com/go-chi/chi/v5"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Unauthorized answers a request that needs a session but has none.
func Unauthorized(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusUnauthorized, "unauthorized")
}

// Preflight answers an OPTIONS request with no body.
func Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// CourseHandler serves the catalog as JSON.
type CourseHandler struct{}

// NewCourseHandler creates a CourseHandler.
func NewCourseHandler() *CourseHandler {
	return &CourseHandler{}
}

// RegisterRoutes mounts the API routes. requireSession guards /api/me.
// Every API path answers OPTIONS so cross-origin preflights reach the CORS
// middleware instead of a 405.
func (h *CourseHandler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Options("/*", Preflight)
		r.Get("/courses", h.ListCourses)
		r.Get("/courses/{id}", h.GetCourse)
		r.With(requireSession).Get("/me", h.GetMe)
	})
}

type catalogResponse struct {
	Courses  []domain.CourseSummary `json:"courses"`
	Progress domain.Progress        `json:"progress"`
}

// ListCourses returns all courses with the aggregate progress.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses := domain.Catalog()
	JSON(w, http.StatusOK, catalogResponse{
		Courses:  courses,
		Progress: domain.ComputeProgress(courses),
	})
}

type courseResponse struct {
	Course     domain.CourseSummary `json:"course"`
	Difficulty string               `json:"difficulty"`
	Related    []int                `json:"related"`
}

// GetCourse returns one course and its related course IDs.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrInvalidCourseID):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrCourseNotFound):
		Error(w, http.StatusNotFound, err.Error())
		return
	}

	JSON(w, http.StatusOK, courseResponse{
		Course:     domain.NewCourseSummary(id),
		Difficulty: domain.CourseDifficulty,
		Related:    domain.RelatedCourseIDs(id),
	})
}

// GetMe returns the signed-in user.
func (h *CourseHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := gate.SessionFromContext(r.Context())
	if session == nil {
		Unauthorized(w, r)
		return
	}
	JSON(w, http.StatusOK, session)
}
