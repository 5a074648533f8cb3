package main

import (
	"context"
	"fmt"
	"net/http"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/lildude/clubtime/internal/athlete"
	"github.com/lildude/clubtime/internal/cache"
	"github.com/lildude/clubtime/internal/challenge"
	"github.com/lildude/clubtime/internal/config"
	"github.com/lildude/clubtime/internal/database"
	authhandler "github.com/lildude/clubtime/internal/handlers/auth"
	summaryhandler "github.com/lildude/clubtime/internal/handlers/summary"
	"github.com/lildude/clubtime/internal/logger"
	"github.com/lildude/clubtime/internal/strava"
)

func main() {
	log := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("initializing database: %s", err)
	}

	che, err := cache.NewRedisCache(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("connecting to redis: %s", err)
	}

	// Strava calls go through a retrying client so transient errors and rate
	// limit responses don't immediately fail a summary build.
	retry := retryablehttp.NewClient()
	retry.Logger = nil

	athletes := athlete.NewStore(db)
	svc := challenge.NewService(challenge.Config{
		Athletes: athletes,
		Cache:    che,
		ClubID:   cfg.ClubID,
		BaseURL:  cfg.StravaBaseURL,
		Base:     retry.StandardClient(),
		TTL:      cfg.CacheTTL,
		Logger:   log,
	})

	oauthCfg := strava.OauthConfig(cfg.StravaClientID, cfg.StravaClientSecret)
	auth := authhandler.NewHandler(oauthCfg, athletes, svc, cfg.StateToken, cfg.StravaBaseURL, retry.StandardClient())
	summary := summaryhandler.NewHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK") //nolint:errcheck
	}).Methods(http.MethodGet)
	r.HandleFunc("/authorize", auth.Authorize).Methods(http.MethodGet)
	r.HandleFunc("/authorized", auth.Authorized).Methods(http.MethodGet)
	r.HandleFunc("/", summary.Summary).Methods(http.MethodGet)

	log.Infof("starting server on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r)) //#nosec: G114
}
