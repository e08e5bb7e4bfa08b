package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plant is the canonical catalogued record for one campus species.
// The photo link/hash pair is a weak reference into the image host: the
// row can outlive the remote asset and vice versa.
type Plant struct {
	PlantID        string         `gorm:"type:uuid;primaryKey" json:"plant_id"`
	ScientificName string         `gorm:"uniqueIndex;not null" json:"scientific_name"`
	CommonNames    datatypes.JSON `json:"common_names"`
	Description    string         `gorm:"type:text" json:"description"`
	PhotoLink      string         `json:"photo_link"`
	ImgurHash      string         `json:"imgur_hash"`
	UserID         string         `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt      time.Time      `json:"created_at"`
	LastModified   time.Time      `json:"last_modified"`
	QRCode         *QRCode        `gorm:"foreignKey:PlantID;references:PlantID;constraint:OnDelete:CASCADE" json:"qr_code,omitempty"`
}

func (Plant) TableName() string {
	return "plants"
}

// BeforeCreate assigns an identifier when the caller did not supply one.
func (p *Plant) BeforeCreate(tx *gorm.DB) error {
	if p.PlantID == "" {
		p.PlantID = uuid.NewString()
	}
	if p.LastModified.IsZero() {
		p.LastModified = time.Now().UTC()
	}
	return nil
}

// SetCommonNames replaces the stored common-name list with its JSON-encoded
// column representation.
func (p *Plant) SetCommonNames(names []string) error {
	if names == nil {
		names = []string{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return err
	}
	p.CommonNames = datatypes.JSON(encoded)
	return nil
}

// CommonNameList decodes the stored JSON array back into the list supplied
// at write time.
func (p *Plant) CommonNameList() ([]string, error) {
	if len(p.CommonNames) == 0 {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal(p.CommonNames, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// EncodeCommonNames builds the column representation without a Plant value,
// for bulk callers.
func EncodeCommonNames(names []string) (datatypes.JSON, error) {
	if names == nil {
		names = []string{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
