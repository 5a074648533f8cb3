// Package strava implements the Strava API calls the challenge board needs:
// OAuth configuration, the authenticated athlete, club member listings and
// per-athlete activity listings.
package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lildude/clubtime/internal/client"
	"golang.org/x/oauth2"
)

// BaseURL is the default Strava API host.
var BaseURL = "https://www.strava.com"

const perPage = 200

// OauthConfig returns the OAuth2 config for the Strava authorization flow.
// The redirect URL is supplied per request via oauth2.SetAuthURLParam as it
// carries the challenge window query parameters.
func OauthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.strava.com/oauth/authorize",
			TokenURL: "https://www.strava.com/oauth/token",
		},
		Scopes: []string{"activity:read_all"},
	}
}

// NewAPIClient returns a REST client for baseURL that authenticates every
// request with the given access token. A non-nil base client is used as the
// underlying transport; pass nil to use the default transport.
func NewAPIClient(ctx context.Context, baseURL, accessToken string, base *http.Client) *client.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	u, _ := url.Parse(baseURL)
	return client.NewClient(u, hc)
}

// Athlete holds only the data we want about the authenticated athlete.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Member is one entry in a club member listing.
type Member struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Activity holds only the data we want from an activity listing.
type Activity struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	MovingTime     int64     `json:"moving_time"`
	StartDateLocal time.Time `json:"start_date_local"`
}

// GetAthlete returns the athlete the client is authenticated as.
func GetAthlete(ctx context.Context, c *client.Client) (*Athlete, error) {
	var a Athlete
	req, err := c.NewRequest(ctx, http.MethodGet, "/api/v3/athlete", nil)
	if err != nil {
		return nil, fmt.Errorf("creating get athlete request: %w", err)
	}

	if _, err := c.Do(req, &a); err != nil {
		return nil, fmt.Errorf("getting athlete: %w", err)
	}

	return &a, nil
}

// GetClubMembers returns all athletes belonging to the club.
func GetClubMembers(ctx context.Context, c *client.Client, clubID int64) ([]Member, error) {
	var members []Member
	for page := 1; ; page++ {
		path := fmt.Sprintf("/api/v3/clubs/%d/members?page=%d&per_page=%d", clubID, page, perPage)
		req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("creating club members request: %w", err)
		}

		var batch []Member
		if _, err := c.Do(req, &batch); err != nil {
			return nil, fmt.Errorf("listing members of club %d: %w", clubID, err)
		}

		members = append(members, batch...)
		if len(batch) < perPage {
			break
		}
	}

	return members, nil
}

// GetActivities returns the authenticated athlete's activities that started
// within [after, before). The bounds are sent as epoch seconds.
func GetActivities(ctx context.Context, c *client.Client, after, before time.Time) ([]Activity, error) {
	var activities []Activity
	for page := 1; ; page++ {
		path := fmt.Sprintf("/api/v3/athlete/activities?after=%d&before=%d&page=%d&per_page=%d",
			after.Unix(), before.Unix(), page, perPage)
		req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("creating activities request: %w", err)
		}

		var batch []Activity
		if _, err := c.Do(req, &batch); err != nil {
			return nil, fmt.Errorf("listing activities: %w", err)
		}

		activities = append(activities, batch...)
		if len(batch) < perPage {
			break
		}
	}

	return activities, nil
}
