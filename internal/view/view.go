package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
)

//go:embed templates/*.html
var files embed.FS

// Template names.
const (
	Index  = "index.html"
	Detail = "detail.html"
	Error  = "error.html"
)

type IndexData struct {
	Symbols []market.Symbol
}

type DetailData struct {
	Symbol market.Symbol
}

type ErrorData struct {
	Message string
}

// Renderer executes the embedded page templates. Parsed templates are only
// read after construction, so a Renderer is safe for concurrent use.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{Index, Detail, Error} {
		t, err := template.New(name).ParseFS(files, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the named page with data and returns the HTML.
func (r *Renderer) Render(name string, data any) (string, error) {
	t, ok := r.pages[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
