package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Administrator is an account allowed to mutate the catalog. Edits is the
// cumulative audit counter, bumped once per successful plant update.
type Administrator struct {
	AdminID      string `gorm:"type:uuid;primaryKey" json:"admin_id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	DisplayName  string `json:"display_name"`
	Edits        int64  `gorm:"not null;default:0" json:"edits"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Administrator) TableName() string {
	return "administrators"
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (a *Administrator) BeforeCreate(tx *gorm.DB) error {
	if a.AdminID == "" {
		a.AdminID = uuid.NewString()
	}
	return nil
}
