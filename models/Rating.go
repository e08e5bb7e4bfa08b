package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating bounds accepted by the catalog. Values are integers on a
// five-point scale.
const (
	RatingMin = 1
	RatingMax = 5
)

// Rating is one immutable visitor observation for a plant. Rows are only
// ever appended; aggregates are derived at read time.
type Rating struct {
	RatingID    string    `gorm:"type:uuid;primaryKey" json:"rating_id"`
	PlantID     string    `gorm:"type:uuid;not null;index" json:"plant_id"`
	RatingValue int       `gorm:"not null" json:"rating_value"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.RatingID == "" {
		r.RatingID = uuid.NewString()
	}
	return nil
}

// ValidRatingValue reports whether value falls inside the accepted scale.
func ValidRatingValue(value int) bool {
	return value >= RatingMin && value <= RatingMax
}
