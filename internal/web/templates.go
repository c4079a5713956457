package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flash is a one-shot message rendered at the top of a page.
type Flash struct {
	Category string
	Message  string
}

// PageData is the common payload handed to every template.
type PageData struct {
	Title       string
	Username    string
	Flashes     []Flash
	CurrentYear int
	Data        any
}

// Renderer renders the server-side pages.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	pages := []string{"dashboard", "login", "register"}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &Renderer{templates: templates}, nil
}

// Render writes the named page. The footer year is injected here so
// handlers never have to think about it.
func (r *Renderer) Render(w io.Writer, page string, data PageData) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if data.CurrentYear == 0 {
		data.CurrentYear = time.Now().UTC().Year()
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
