package pages

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/ashureev/online-courses/internal/domain"
	"github.com/ashureev/online-courses/web"
)

// Base is embedded in every page's data; the layout reads it.
type Base struct {
	Notices []domain.Notice
	// ViewID identifies this page's chat view, if it has one.
	ViewID string
	// Watch opens the session socket so the page leaves when the session ends.
	Watch bool
}

// Renderer turns page templates into templ components.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	pages, err := web.ParsePages()
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages}, nil
}

// Component returns the named page as a templ component.
func (rn *Renderer) Component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, ok := rn.pages[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		return tmpl.ExecuteTemplate(w, "layout.html", data)
	})
}

// Render writes the page with status. Rendering is buffered, so a template
// failure still produces a clean 500.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	templ.Handler(rn.Component(name, data),
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				slog.Error("Failed to render page", "page", name, "path", r.URL.Path, "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}
