package challenge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jarcoal/httpmock"
	"github.com/lildude/clubtime/internal/athlete"
	"github.com/lildude/clubtime/internal/cache"
	"github.com/lildude/clubtime/internal/model"
	"github.com/lildude/clubtime/internal/window"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testBaseURL = "https://strava.test"

var testWindow = window.Window{Start: "2016-01-25", End: "2016-05-30"}

func TestSortSeparatesSentinelsFromTotals(t *testing.T) {
	entries := []Entry{
		{Name: "Alice", Total: Total{Authorized: true, Duration: 120 * time.Second}},
		{Name: "Bob", Total: Total{Authorized: true, Duration: 300 * time.Second}},
		{Name: "Dave", Total: Total{}},
		{Name: "Carol", Total: Total{}},
	}

	got := Sort(entries)

	want := []string{"Bob", "Alice", "Carol", "Dave"}
	for i, name := range want {
		assert.Equal(t, name, got[i].Name)
	}
}

func TestSortZeroTotalIsNotASentinel(t *testing.T) {
	entries := []Entry{
		{Name: "Frank", Total: Total{}},
		{Name: "Erin", Total: Total{Authorized: true, Duration: 0}},
	}

	got := Sort(entries)

	assert.Equal(t, "Erin", got[0].Name)
	assert.Equal(t, "Frank", got[1].Name)
}

func TestSortEmptyGroups(t *testing.T) {
	assert.Empty(t, Sort([]Entry{}))

	onlyAuthed := Sort([]Entry{
		{Name: "A", Total: Total{Authorized: true, Duration: time.Minute}},
		{Name: "B", Total: Total{Authorized: true, Duration: time.Hour}},
	})
	assert.Equal(t, "B", onlyAuthed[0].Name)

	onlySentinels := Sort([]Entry{
		{Name: "B", Total: Total{}},
		{Name: "A", Total: Total{}},
	})
	assert.Equal(t, "A", onlySentinels[0].Name)
}

func TestTotalString(t *testing.T) {
	assert.Equal(t, "not yet joined", Total{}.String())
	assert.Equal(t, "0:00:00", Total{Authorized: true}.String())
	assert.Equal(t, "2:05:03", Total{Authorized: true, Duration: 2*time.Hour + 5*time.Minute + 3*time.Second}.String())
	assert.Equal(t, "26:00:00", Total{Authorized: true, Duration: 26 * time.Hour}.String())
}

func newTestService(t *testing.T) (*Service, *athlete.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Athlete{}))
	store := athlete.NewStore(db)

	r := miniredis.RunT(t)
	che, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewService(Config{
		Athletes: store,
		Cache:    che,
		ClubID:   42,
		BaseURL:  testBaseURL,
		TTL:      15 * time.Minute,
		Logger:   log,
	})
	return svc, store
}

// registerResponders mocks the club member listing and a per-token activity
// listing keyed by the bearer token used for the request.
func registerResponders(t *testing.T, members string, activitiesByToken map[string]string) {
	t.Helper()

	httpmock.RegisterResponder("GET", `=~^https://strava\.test/api/v3/clubs/42/members`,
		httpmock.NewStringResponder(200, members))

	httpmock.RegisterResponder("GET", `=~^https://strava\.test/api/v3/athlete/activities`,
		func(req *http.Request) (*http.Response, error) {
			token := req.Header.Get("Authorization")
			body, ok := activitiesByToken[token]
			if !ok {
				return httpmock.NewStringResponse(401, `{"message":"Authorization Error"}`), nil
			}
			return httpmock.NewStringResponse(200, body), nil
		})
}

func TestSummaryAggregatesAndSorts(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, 1, "token-1"))
	require.NoError(t, store.Upsert(ctx, 2, "token-2"))

	registerResponders(t,
		`[{"id":1,"firstname":"alice","lastname":"armstrong"},
		  {"id":2,"firstname":"bob","lastname":"baker"},
		  {"id":3,"firstname":"carol","lastname":"chase"}]`,
		map[string]string{
			"Bearer token-1": `[{"id":11,"moving_time":60},{"id":12,"moving_time":60}]`,
			"Bearer token-2": `[{"id":21,"moving_time":300}]`,
		})

	entries, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)

	want := []Entry{
		{Name: "Bob Baker", Total: Total{Authorized: true, Duration: 300 * time.Second}},
		{Name: "Alice Armstrong", Total: Total{Authorized: true, Duration: 120 * time.Second}},
		{Name: "Carol Chase", Total: Total{}},
	}
	assert.Equal(t, want, entries)

	// One roster call plus one activity call per authorized member.
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestSummaryServedFromCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, 1, "token-1"))
	registerResponders(t,
		`[{"id":1,"firstname":"alice","lastname":"armstrong"}]`,
		map[string]string{"Bearer token-1": `[{"id":11,"moving_time":90}]`})

	first, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)
	calls := httpmock.GetTotalCallCount()

	second, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, httpmock.GetTotalCallCount(), "cached call must not hit the API")
}

func TestInvalidateForcesRecompute(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, 1, "token-1"))
	registerResponders(t,
		`[{"id":1,"firstname":"alice","lastname":"armstrong"}]`,
		map[string]string{"Bearer token-1": `[{"id":11,"moving_time":90}]`})

	_, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)
	calls := httpmock.GetTotalCallCount()

	require.NoError(t, svc.Invalidate(ctx, testWindow))

	_, err = svc.Summary(ctx, testWindow)
	require.NoError(t, err)
	assert.Greater(t, httpmock.GetTotalCallCount(), calls, "invalidated window must recompute")
}

func TestSummaryEmptyRoster(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, _ := newTestService(t)

	// Nobody has authorized: no representative token, so no roster and no
	// API calls at all.
	entries, err := svc.Summary(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestSummaryZeroActivities(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, 1, "token-1"))
	registerResponders(t,
		`[{"id":1,"firstname":"erin","lastname":"eads"},
		  {"id":2,"firstname":"frank","lastname":"field"}]`,
		map[string]string{"Bearer token-1": `[]`})

	entries, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)

	want := []Entry{
		{Name: "Erin Eads", Total: Total{Authorized: true, Duration: 0}},
		{Name: "Frank Field", Total: Total{}},
	}
	assert.Equal(t, want, entries)
}

func TestSummaryFetchErrorAbortsAggregation(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, 1, "token-1"))

	httpmock.RegisterResponder("GET", `=~^https://strava\.test/api/v3/clubs/42/members`,
		httpmock.NewStringResponder(200, `[{"id":1,"firstname":"alice","lastname":"armstrong"}]`))
	httpmock.RegisterResponder("GET", `=~^https://strava\.test/api/v3/athlete/activities`,
		httpmock.NewStringResponder(500, `{"message":"upstream error"}`))

	_, err := svc.Summary(ctx, testWindow)
	assert.Error(t, err)

	// The failure must not have been cached.
	httpmock.RegisterResponder("GET", `=~^https://strava\.test/api/v3/athlete/activities`,
		httpmock.NewStringResponder(200, `[{"id":11,"moving_time":90}]`))
	entries, err := svc.Summary(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, entries[0].Total.Duration)
}
