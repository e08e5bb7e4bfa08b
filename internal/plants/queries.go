package plants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"treetrack/models"
)

// PlantView is the read-side projection of one plant row with the common
// names decoded back into the list supplied at write time.
type PlantView struct {
	PlantID        string    `json:"plant_id"`
	ScientificName string    `json:"scientific_name"`
	CommonNames    []string  `json:"common_names"`
	Description    string    `json:"description"`
	PhotoLink      string    `json:"photo_link"`
	ImgurHash      string    `json:"imgur_hash"`
	CreatedAt      time.Time `json:"created_at"`
	LastModified   time.Time `json:"last_modified"`
}

// QRView is the read-side projection of a plant's QR association.
type QRView struct {
	QRID          string `json:"qr_id"`
	QRImage       string `json:"qr_image"`
	QRDestination string `json:"qr_destination"`
}

// PlantDetail is the full detail view: the record, its QR code when one
// exists, and the on-demand rating aggregate.
type PlantDetail struct {
	PlantView
	QRCode  *QRView       `json:"qr_code,omitempty"`
	Ratings RatingSummary `json:"ratings"`
}

// List returns every catalogued plant ordered by scientific name.
func (s *Service) List(ctx context.Context) ([]PlantView, error) {
	var rows []models.Plant
	if err := s.db.WithContext(ctx).Order("scientific_name asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	result := make([]PlantView, 0, len(rows))
	for _, row := range rows {
		view, err := projectPlant(row)
		if err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, nil
}

// Detail loads one plant with its QR association and rating aggregate.
func (s *Service) Detail(ctx context.Context, plantID string) (PlantDetail, error) {
	var row models.Plant
	err := s.db.WithContext(ctx).Where("plant_id = ?", plantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PlantDetail{}, fmt.Errorf("%w: plant %s", ErrNotFound, plantID)
		}
		return PlantDetail{}, fmt.Errorf("load plant: %w", err)
	}

	view, err := projectPlant(row)
	if err != nil {
		return PlantDetail{}, err
	}

	detail := PlantDetail{PlantView: view}

	var code models.QRCode
	err = s.db.WithContext(ctx).Where("plant_id = ?", plantID).First(&code).Error
	switch {
	case err == nil:
		detail.QRCode = &QRView{
			QRID:          code.QRID,
			QRImage:       code.QRImage,
			QRDestination: code.QRDestination,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// a plant should always carry a QR code, but the schema does not
		// force one to exist before attachment
	default:
		return PlantDetail{}, fmt.Errorf("load qr code: %w", err)
	}

	summary, err := s.Ratings(ctx, plantID)
	if err != nil {
		return PlantDetail{}, err
	}
	detail.Ratings = summary

	return detail, nil
}

func projectPlant(row models.Plant) (PlantView, error) {
	names, err := row.CommonNameList()
	if err != nil {
		return PlantView{}, fmt.Errorf("decode common names for %s: %w", row.PlantID, err)
	}
	return PlantView{
		PlantID:        row.PlantID,
		ScientificName: row.ScientificName,
		CommonNames:    names,
		Description:    row.Description,
		PhotoLink:      row.PhotoLink,
		ImgurHash:      row.ImgurHash,
		CreatedAt:      row.CreatedAt,
		LastModified:   row.LastModified,
	}, nil
}
