// Package athlete persists the access tokens of authorized club members.
package athlete

import (
	"context"
	"errors"
	"fmt"

	"github.com/lildude/clubtime/internal/model"
	"gorm.io/gorm"
)

// ErrNoAthletes is returned by Representative when nobody has authorized yet.
var ErrNoAthletes = errors.New("no authorized athletes")

// Store is the token store: one row per Strava athlete ID.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Upsert stores the access token for a Strava athlete ID, replacing any
// previously stored token for the same ID.
func (s *Store) Upsert(ctx context.Context, stravaID int64, accessToken string) error {
	var a model.Athlete
	err := s.db.WithContext(ctx).Where("strava_id = ?", stravaID).First(&a).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		a = model.Athlete{StravaID: stravaID, AccessToken: accessToken}
	case err != nil:
		return fmt.Errorf("looking up athlete %d: %w", stravaID, err)
	default:
		a.AccessToken = accessToken
	}

	if err := s.db.WithContext(ctx).Save(&a).Error; err != nil {
		return fmt.Errorf("saving athlete %d: %w", stravaID, err)
	}
	return nil
}

// Tokens returns the stored access tokens keyed by Strava athlete ID.
func (s *Store) Tokens(ctx context.Context) (map[int64]string, error) {
	var athletes []model.Athlete
	if err := s.db.WithContext(ctx).Find(&athletes).Error; err != nil {
		return nil, fmt.Errorf("listing athletes: %w", err)
	}

	tokens := make(map[int64]string, len(athletes))
	for _, a := range athletes {
		tokens[a.StravaID] = a.AccessToken
	}
	return tokens, nil
}

// Representative returns the most recently authorized athlete. Club-wide
// listings are fetched with this athlete's token so the pick must be
// deterministic.
func (s *Store) Representative(ctx context.Context) (*model.Athlete, error) {
	var a model.Athlete
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoAthletes
	}
	if err != nil {
		return nil, fmt.Errorf("picking representative athlete: %w", err)
	}
	return &a, nil
}
