// Package auth implements the Strava OAuth handlers: the redirect to the
// consent screen and the callback that stores the athlete's token.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lildude/clubtime/internal/athlete"
	"github.com/lildude/clubtime/internal/challenge"
	"github.com/lildude/clubtime/internal/strava"
	"github.com/lildude/clubtime/internal/window"
	"golang.org/x/oauth2"
)

// Handler holds the dependencies for the OAuth endpoints.
type Handler struct {
	oauth     *oauth2.Config
	athletes  *athlete.Store
	challenge *challenge.Service
	state     string
	baseURL   string
	base      *http.Client
}

func NewHandler(oauth *oauth2.Config, athletes *athlete.Store, svc *challenge.Service, state, baseURL string, base *http.Client) *Handler {
	return &Handler{
		oauth:     oauth,
		athletes:  athletes,
		challenge: svc,
		state:     state,
		baseURL:   baseURL,
		base:      base,
	}
}

// Authorize redirects the browser to the Strava consent screen, carrying the
// requested date range through to the callback.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win := window.Resolve(q.Get("start_date"), q.Get("end_date"), time.Now())

	returnURI := fmt.Sprintf("%s://%s/authorized?%s", scheme(r), r.Host, win.Query())
	u := h.oauth.AuthCodeURL(h.state, oauth2.SetAuthURLParam("redirect_uri", returnURI))
	slog.Info("redirecting to strava auth", "url", u)
	http.Redirect(w, r, u, http.StatusFound)
}

// Authorized exchanges the OAuth code for an access token, stores it against
// the athlete's Strava ID and sends the browser back to the summary page for
// the same window. The cached summary for that window is dropped so the new
// athlete shows up straight away.
func (h *Handler) Authorized(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("state") != h.state {
		http.Error(w, "state invalid", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("token exchange failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	c := strava.NewAPIClient(r.Context(), h.baseURL, token.AccessToken, h.base)
	sa, err := strava.GetAthlete(r.Context(), c)
	if err != nil {
		slog.Error("unable to get athlete info", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.athletes.Upsert(r.Context(), sa.ID, token.AccessToken); err != nil {
		slog.Error("unable to store token", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	win := window.Resolve(q.Get("start_date"), q.Get("end_date"), time.Now())
	if err := h.challenge.Invalidate(r.Context(), win); err != nil {
		slog.Error("unable to invalidate summary cache", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slog.Info("successfully authenticated", "athlete_id", sa.ID)
	http.Redirect(w, r, "/?"+win.Query(), http.StatusFound)
}

func scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
