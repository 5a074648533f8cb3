// Package challenge aggregates club members' total activity time over a
// challenge window and orders the result for display.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lildude/clubtime/internal/athlete"
	"github.com/lildude/clubtime/internal/cache"
	"github.com/lildude/clubtime/internal/strava"
	"github.com/lildude/clubtime/internal/window"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Total is one club member's summed moving time for a window. A member who
// has not authorized the app yet has Authorized false; that state is distinct
// from an authorized member with zero activity time.
type Total struct {
	Authorized bool          `json:"authorized"`
	Duration   time.Duration `json:"duration"`
}

// String renders a total for display, in the same h:mm:ss form a stopwatch
// would use.
func (t Total) String() string {
	if !t.Authorized {
		return "not yet joined"
	}
	d := t.Duration.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// Entry is one row of the ordered summary.
type Entry struct {
	Name  string `json:"name"`
	Total Total  `json:"total"`
}

// Config holds the dependencies and settings for a Service.
type Config struct {
	Athletes *athlete.Store
	Cache    cache.Cache
	ClubID   int64
	BaseURL  string
	// Base is the underlying HTTP client for Strava calls. Leave nil to use
	// the default transport.
	Base   *http.Client
	TTL    time.Duration
	Logger logrus.FieldLogger
}

// Service computes the challenge summary, gated behind a short-lived cache.
type Service struct {
	athletes *athlete.Store
	cache    cache.Cache
	clubID   int64
	baseURL  string
	base     *http.Client
	ttl      time.Duration
	log      logrus.FieldLogger
	group    singleflight.Group
}

func NewService(cfg Config) *Service {
	return &Service{
		athletes: cfg.Athletes,
		cache:    cfg.Cache,
		clubID:   cfg.ClubID,
		baseURL:  cfg.BaseURL,
		base:     cfg.Base,
		ttl:      cfg.TTL,
		log:      cfg.Logger,
	}
}

// Summary returns the ordered challenge summary for the window, serving from
// the cache when a fresh entry exists. Concurrent misses for the same window
// coalesce into a single aggregation pass.
func (s *Service) Summary(ctx context.Context, w window.Window) ([]Entry, error) {
	key := w.CacheKey()

	var entries []Entry
	err := s.cache.GetJSON(ctx, key, &entries)
	if err == nil {
		s.log.WithField("key", key).Debug("serving summary from cache")
		return entries, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("reading summary cache: %w", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		entries, err := s.aggregate(ctx, w)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetJSON(ctx, key, entries, s.ttl); err != nil {
			return nil, fmt.Errorf("writing summary cache: %w", err)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

// Invalidate drops the cached summary for the window so the next request
// recomputes it. Called after a new authorization so the athlete shows up
// without waiting out the TTL.
func (s *Service) Invalidate(ctx context.Context, w window.Window) error {
	return s.cache.Invalidate(ctx, w.CacheKey())
}

// aggregate fetches each authorized club member's activities in-window and
// reduces them to a total moving time. One Strava call per authorized member.
func (s *Service) aggregate(ctx context.Context, w window.Window) ([]Entry, error) {
	members, err := s.roster(ctx)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []Entry{}, nil
	}

	tokens, err := s.athletes.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	after, before := w.Bounds()
	titler := cases.Title(language.English)

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		name := titler.String(strings.TrimSpace(m.Firstname + " " + m.Lastname))
		total := Total{}
		if token, ok := tokens[m.ID]; ok {
			d, err := s.athleteTime(ctx, token, after, before)
			if err != nil {
				return nil, fmt.Errorf("summing activities for %s: %w", name, err)
			}
			total = Total{Authorized: true, Duration: d}
		}
		entries = append(entries, Entry{Name: name, Total: total})
	}

	s.log.WithFields(logrus.Fields{
		"members": len(members),
		"window":  w.CacheKey(),
	}).Info("aggregated challenge summary")

	return Sort(entries), nil
}

// roster lists the club members, authenticated as the most recently
// authorized athlete. With nobody authorized yet there is nobody to ask, so
// the roster is empty.
func (s *Service) roster(ctx context.Context) ([]strava.Member, error) {
	rep, err := s.athletes.Representative(ctx)
	if errors.Is(err, athlete.ErrNoAthletes) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c := strava.NewAPIClient(ctx, s.baseURL, rep.AccessToken, s.base)
	return strava.GetClubMembers(ctx, c, s.clubID)
}

func (s *Service) athleteTime(ctx context.Context, accessToken string, after, before time.Time) (time.Duration, error) {
	c := strava.NewAPIClient(ctx, s.baseURL, accessToken, s.base)
	activities, err := strava.GetActivities(ctx, c, after, before)
	if err != nil {
		return 0, err
	}

	var total time.Duration
	for _, a := range activities {
		total += time.Duration(a.MovingTime) * time.Second
	}
	return total, nil
}

// Sort orders entries for display: members with data first, longest total
// time first, then everyone who has not yet authorized, alphabetically.
// Authorized members keep their relative order on equal totals.
func Sort(entries []Entry) []Entry {
	authed := make([]Entry, 0, len(entries))
	unauthed := make([]Entry, 0)
	for _, e := range entries {
		if e.Total.Authorized {
			authed = append(authed, e)
		} else {
			unauthed = append(unauthed, e)
		}
	}

	sort.SliceStable(authed, func(i, j int) bool {
		return authed[i].Total.Duration > authed[j].Total.Duration
	})
	sort.SliceStable(unauthed, func(i, j int) bool {
		return unauthed[i].Name < unauthed[j].Name
	})

	return append(authed, unauthed...)
}
