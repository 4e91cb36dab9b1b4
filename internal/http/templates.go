package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/shopspring/decimal"

	"finflow/internal/auth"
	"finflow/internal/core"
	flog "finflow/internal/log"
	"finflow/internal/report"
)

const baseTemplate = "templates/base.html"

// page is what every full-page template receives.
type page struct {
	Title    string
	Nav      string
	User     *core.User
	Flash    *Flash
	Currency string
	Data     any
}

// parseTemplates pairs every page with the base layout. Pages define a
// "content" block and are executed through "base".
func parseTemplates(fsys fs.FS, funcs template.FuncMap) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(files))
	for _, f := range files {
		if f == baseTemplate {
			continue
		}
		name := path.Base(f)
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, baseTemplate, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return out, nil
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string {
			return s.currency + " " + m.String()
		},
		"pct": func(d decimal.Decimal) string {
			return d.StringFixed(2) + "%"
		},
		"trend": func(d decimal.Decimal) string {
			switch d.Sign() {
			case 1:
				return "up"
			case -1:
				return "down"
			}
			return "flat"
		},
		"bar":        barWidth,
		"bucketPeak": bucketPeak,
		"rankPeak":   rankPeak,
		"isCategory": func(id *int64, want int64) bool {
			return id != nil && *id == want
		},
	}
}

// barWidth scales v against peak to a 0..100 percentage. Non-zero values stay visible.
func barWidth(v, peak core.Money) int {
	if peak.Cents <= 0 || v.Cents <= 0 {
		return 0
	}
	w := int((v.Cents*100 + peak.Cents/2) / peak.Cents)
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func bucketPeak(buckets []report.Bucket) core.Money {
	var peak core.Money
	for _, b := range buckets {
		if b.Income.Cents > peak.Cents {
			peak = b.Income
		}
		if b.Expense.Cents > peak.Cents {
			peak = b.Expense
		}
	}
	return peak
}

func rankPeak(ranking []report.CategoryAmount) core.Money {
	var peak core.Money
	for _, c := range ranking {
		if c.Amount.Cents > peak.Cents {
			peak = c.Amount
		}
	}
	return peak
}

// render writes a full page with status 200.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, title, data)
}

// renderStatus executes into a buffer first so a template error never leaves
// a half-written page.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	ctx := r.Context()
	t, ok := s.templates[name]
	if !ok {
		flog.FromContext(ctx).WithComponent(flog.ComponentTemplate).ErrorContext(ctx, "Template not loaded", "template", name)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	p := page{
		Title:    title,
		Nav:      name,
		Flash:    popFlash(w, r),
		Currency: s.currency,
		Data:     data,
	}
	if u, ok := auth.UserFrom(ctx); ok {
		p.User = &u
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", p); err != nil {
		flog.FromContext(ctx).WithComponent(flog.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			flog.FieldError, err,
			"template", name)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.String()).Write(w)
}
