// Package web embeds the page templates and static assets.
//
// Every page template is parsed together with layout.html; a page defines
// the "title" and "content" blocks the layout renders.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const layoutFile = "templates/layout.html"

// ParsePages parses each page template with the layout and returns them by
// page name ("landing", "auth", ...).
func ParsePages() (map[string]*template.Template, error) {
	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry == layoutFile {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(entry, "templates/"), ".html")
		tmpl, err := template.New("layout.html").ParseFS(templateFS, layoutFile, entry)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry, err)
		}
		pages[name] = tmpl
	}
	slog.Debug("web: parsed page templates", "count", len(pages))
	return pages, nil
}

// StaticHandler serves the embedded static/ directory. Mount it under
// /static/ with the prefix stripped.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(subFS))
}
