package model

import (
	"gorm.io/gorm"
)

// Athlete represents an authorized club member in the database. The row is
// created on first authorization and the token is replaced in place on every
// re-authorization of the same Strava ID. Rows are never deleted by the app.
type Athlete struct {
	gorm.Model
	StravaID    int64 `gorm:"uniqueIndex"`
	AccessToken string
}
