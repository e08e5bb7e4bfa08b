package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QRCode ties a hosted QR image asset to the plant it resolves to. One
// active code per plant, enforced by the unique index on PlantID.
type QRCode struct {
	QRID          string `gorm:"type:uuid;primaryKey" json:"qr_id"`
	PlantID       string `gorm:"type:uuid;uniqueIndex;not null" json:"plant_id"`
	QRImage       string `json:"qr_image"`
	QRDestination string `json:"qr_destination"`
	ImgurHash     string `json:"imgur_hash"`
}

func (QRCode) TableName() string {
	return "qr_codes"
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (q *QRCode) BeforeCreate(tx *gorm.DB) error {
	if q.QRID == "" {
		q.QRID = uuid.NewString()
	}
	return nil
}
