// Package summary implements the challenge summary page.
package summary

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/lildude/clubtime/internal/challenge"
	"github.com/lildude/clubtime/internal/window"
)

// Handler renders the ordered challenge summary for a date window.
type Handler struct {
	challenge *challenge.Service
}

func NewHandler(svc *challenge.Service) *Handler {
	return &Handler{challenge: svc}
}

type page struct {
	Window  window.Window
	Entries []challenge.Entry
}

var tmpl = template.Must(template.New("summary").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Club Time Challenge</title>
</head>
<body>
  <h1>Club Time Challenge</h1>
  <p>{{.Window.Start}} &ndash; {{.Window.End}}</p>
  <table>
    <tr><th>Athlete</th><th>Total time</th></tr>
{{- range .Entries}}
    <tr><td>{{.Name}}</td><td>{{.Total}}</td></tr>
{{- end}}
  </table>
  <p><a href="/authorize?{{.Window.Query}}">Join with Strava</a></p>
</body>
</html>
`))

// Summary resolves the requested window and renders the summary page. On a
// warm cache no Strava calls are made at all.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win := window.Resolve(q.Get("start_date"), q.Get("end_date"), time.Now())

	entries, err := h.challenge.Summary(r.Context(), win)
	if err != nil {
		slog.Error("building challenge summary", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, page{Window: win, Entries: entries}); err != nil {
		slog.Error("rendering summary page", "error", err)
	}
}
