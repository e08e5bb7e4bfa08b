package plants

import (
	"context"
	"fmt"

	applog "treetrack/internal/log"
	"treetrack/internal/views"
	"treetrack/models"
)

// RatingSummary is the derived aggregate over a plant's ratings. It is
// never stored; both fields are computed at read time.
type RatingSummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
}

// SubmitRating appends one immutable rating observation. Values outside
// the accepted scale are rejected before any row is written. Ratings
// render inline with the plant, so the detail view goes stale.
func (s *Service) SubmitRating(ctx context.Context, plantID string, value int) Result {
	if !models.ValidRatingValue(value) {
		return failure(ctx, "submit rating",
			fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, models.RatingMin, models.RatingMax))
	}

	rating := models.Rating{
		PlantID:     plantID,
		RatingValue: value,
	}
	if err := s.db.WithContext(ctx).Create(&rating).Error; err != nil {
		return failure(ctx, "submit rating", storeError(err))
	}

	applog.Info(ctx, "plant received rating", "plantId", plantID, "value", value)
	s.views.Invalidate(ctx, views.DetailPath(plantID))

	return Result{
		Success: true,
		PlantID: plantID,
	}
}

// Ratings computes the count and mean over every rating row for the plant.
func (s *Service) Ratings(ctx context.Context, plantID string) (RatingSummary, error) {
	var summary RatingSummary
	err := s.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating_value), 0) AS mean").
		Where("plant_id = ?", plantID).
		Scan(&summary).Error
	if err != nil {
		return RatingSummary{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return summary, nil
}
