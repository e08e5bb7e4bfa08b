package plants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"treetrack/internal/imgur"
	applog "treetrack/internal/log"
	"treetrack/internal/views"
	"treetrack/models"
)

// Sentinel failures reported through the result envelope.
var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotFound         = errors.New("record not found")
	ErrValidation       = errors.New("invalid input")
)

// Result is the uniform envelope every mutating operation returns.
// Failures never escape as raw errors; they land in Error. Warnings carry
// degraded-but-successful outcomes, such as a best-effort asset deletion
// that the image host refused.
type Result struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	RedirectURL string   `json:"redirectUrl,omitempty"`
	PlantID     string   `json:"plantId,omitempty"`
	QRID        string   `json:"qrId,omitempty"`

	cause error
}

// Cause exposes the underlying failure for callers that map envelopes onto
// transport-level status codes. Nil on success.
func (r Result) Cause() error {
	return r.cause
}

// Service orchestrates plant record mutations across the relational store
// and the image host. The two systems share no transaction; the ordering
// inside each operation is what keeps rows from referencing assets that
// were never created.
type Service struct {
	db      *gorm.DB
	gateway imgur.Gateway
	views   views.Invalidator
	now     func() time.Time
}

// NewService wires the service to its store, gateway, and view notifier.
func NewService(db *gorm.DB, gateway imgur.Gateway, invalidator views.Invalidator) *Service {
	return &Service{
		db:      db,
		gateway: gateway,
		views:   invalidator,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// CreateInput carries the caller-supplied fields for a new plant record.
type CreateInput struct {
	ScientificName string
	CommonNames    []string
	Description    string
	Image          []byte
}

// UpdateInput carries the replacement fields for an existing record. A nil
// Image means the stored photo reference is left untouched.
type UpdateInput struct {
	ScientificName string
	CommonNames    []string
	Description    string
	Image          []byte
}

// Create uploads the photo, inserts the plant row, and marks the read
// views stale. The upload happens first so the row never references an
// asset that does not exist; if the insert then fails, the fresh upload is
// compensated with a best-effort delete.
func (s *Service) Create(ctx context.Context, adminID string, in CreateInput) Result {
	if strings.TrimSpace(adminID) == "" {
		return failure(ctx, "create plant", ErrNotAuthenticated)
	}

	name := strings.TrimSpace(in.ScientificName)
	if name == "" {
		return failure(ctx, "create plant", fmt.Errorf("%w: scientific name is required", ErrValidation))
	}
	if len(in.Image) == 0 {
		return failure(ctx, "create plant", fmt.Errorf("%w: plant image is required", ErrValidation))
	}

	asset, err := s.gateway.Upload(ctx, in.Image)
	if err != nil {
		return failure(ctx, "create plant", fmt.Errorf("image upload failed: %w", err))
	}

	plant := models.Plant{
		ScientificName: name,
		Description:    strings.TrimSpace(in.Description),
		PhotoLink:      asset.Link,
		ImgurHash:      asset.DeleteHash,
		UserID:         adminID,
		LastModified:   s.now(),
	}
	if err := plant.SetCommonNames(sanitizeNames(in.CommonNames)); err != nil {
		s.compensateUpload(ctx, asset.DeleteHash)
		return failure(ctx, "create plant", fmt.Errorf("encode common names: %w", err))
	}

	if err := s.db.WithContext(ctx).Create(&plant).Error; err != nil {
		result := failure(ctx, "create plant", storeError(err))
		if !s.compensateUpload(ctx, asset.DeleteHash) {
			result.Warnings = append(result.Warnings, "uploaded image could not be removed and is now orphaned")
		}
		return result
	}

	applog.Info(ctx, "plant entry created", "plantId", plant.PlantID, "adminId", adminID)
	s.views.Invalidate(ctx, views.ListingPath, views.DetailPath(plant.PlantID))

	return Result{
		Success:     true,
		PlantID:     plant.PlantID,
		RedirectURL: views.DetailPath(plant.PlantID),
	}
}

// Update replaces the record's fields. With a replacement image the new
// asset is uploaded and committed into the row before the old asset is
// deleted; the row therefore never points at a missing new asset, at the
// cost of a possible old-asset leak when the delete is refused. On
// success the owning administrator's edit counter is bumped atomically.
func (s *Service) Update(ctx context.Context, adminID, plantID, oldImageHash string, in UpdateInput) Result {
	if strings.TrimSpace(adminID) == "" {
		return failure(ctx, "update plant", ErrNotAuthenticated)
	}

	name := strings.TrimSpace(in.ScientificName)
	if name == "" {
		return failure(ctx, "update plant", fmt.Errorf("%w: scientific name is required", ErrValidation))
	}

	commonNames, err := models.EncodeCommonNames(sanitizeNames(in.CommonNames))
	if err != nil {
		return failure(ctx, "update plant", fmt.Errorf("encode common names: %w", err))
	}

	updates := map[string]any{
		"scientific_name": name,
		"common_names":    commonNames,
		"description":     strings.TrimSpace(in.Description),
		"last_modified":   s.now(),
	}

	var warnings []string

	if len(in.Image) > 0 {
		asset, err := s.gateway.Upload(ctx, in.Image)
		if err != nil {
			return failure(ctx, "update plant", fmt.Errorf("image upload failed: %w", err))
		}

		updates["photo_link"] = asset.Link
		updates["imgur_hash"] = asset.DeleteHash

		if err := s.writePlant(ctx, plantID, updates); err != nil {
			result := failure(ctx, "update plant", err)
			if !s.compensateUpload(ctx, asset.DeleteHash) {
				result.Warnings = append(result.Warnings, "uploaded image could not be removed and is now orphaned")
			}
			return result
		}

		// row committed; the old asset is now unreferenced
		if !s.gateway.Delete(ctx, oldImageHash) {
			applog.Warn(ctx, "previous image asset not removed", "plantId", plantID, "hash", oldImageHash)
			warnings = append(warnings, "previous image asset could not be removed from the image host")
		}
	} else {
		if err := s.writePlant(ctx, plantID, updates); err != nil {
			return failure(ctx, "update plant", err)
		}
	}

	if err := s.incrementEditCounter(ctx, adminID); err != nil {
		// the plant row is already committed; only the audit counter is off
		result := failure(ctx, "update plant audit counter", err)
		result.Warnings = warnings
		return result
	}

	applog.Info(ctx, "plant entry updated", "plantId", plantID, "adminId", adminID)
	s.views.Invalidate(ctx, views.DetailPath(plantID), views.ListingPath)

	return Result{
		Success:     true,
		Warnings:    warnings,
		PlantID:     plantID,
		RedirectURL: views.DetailPath(plantID),
	}
}

// Delete removes a plant and its QR association. The QR asset is deleted
// from the image host first (best effort), then the rows go in one store
// transaction. A plant without a QR row is treated as not found and left
// untouched.
func (s *Service) Delete(ctx context.Context, adminID, plantID string) Result {
	if strings.TrimSpace(adminID) == "" {
		return failure(ctx, "delete plant", ErrNotAuthenticated)
	}

	var codes []models.QRCode
	if err := s.db.WithContext(ctx).Where("plant_id = ?", plantID).Find(&codes).Error; err != nil {
		return failure(ctx, "delete plant", fmt.Errorf("load qr codes: %w", err))
	}
	if len(codes) == 0 {
		return failure(ctx, "delete plant", fmt.Errorf("%w: qr codes not found for the given plant id", ErrNotFound))
	}

	var warnings []string
	if !s.gateway.Delete(ctx, codes[0].ImgurHash) {
		applog.Warn(ctx, "qr image asset not removed", "plantId", plantID, "hash", codes[0].ImgurHash)
		warnings = append(warnings, "qr image asset could not be removed from the image host")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plant_id = ?", plantID).Delete(&models.QRCode{}).Error; err != nil {
			return fmt.Errorf("delete qr rows: %w", err)
		}
		if err := tx.Where("plant_id = ?", plantID).Delete(&models.Plant{}).Error; err != nil {
			return fmt.Errorf("delete plant row: %w", err)
		}
		return nil
	})
	if err != nil {
		result := failure(ctx, "delete plant", err)
		result.Warnings = warnings
		return result
	}

	applog.Info(ctx, "plant entry deleted", "plantId", plantID, "adminId", adminID)
	s.views.Invalidate(ctx, views.ListingPath, views.DetailPath(plantID))

	return Result{
		Success:  true,
		Warnings: warnings,
	}
}

// writePlant applies updates to one plant row and reports not-found when
// no row matched.
func (s *Service) writePlant(ctx context.Context, plantID string, updates map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&models.Plant{}).Where("plant_id = ?", plantID).Updates(updates)
	if tx.Error != nil {
		return storeError(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: plant %s", ErrNotFound, plantID)
	}
	return nil
}

// incrementEditCounter bumps the administrator's audit counter in a single
// atomic store operation, so concurrent updates never lose increments.
func (s *Service) incrementEditCounter(ctx context.Context, adminID string) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Administrator{}).
		Where("admin_id = ?", adminID).
		UpdateColumn("edits", gorm.Expr("edits + ?", 1))
	if tx.Error != nil {
		return fmt.Errorf("increment edit counter: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: administrator %s", ErrNotFound, adminID)
	}
	return nil
}

// compensateUpload removes an asset that was uploaded for a mutation that
// subsequently failed. Returns false when the asset could not be removed.
func (s *Service) compensateUpload(ctx context.Context, deleteHash string) bool {
	if s.gateway.Delete(ctx, deleteHash) {
		return true
	}
	applog.Warn(ctx, "compensating asset delete failed", "hash", deleteHash)
	return false
}

func sanitizeNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// storeError maps driver-level failures onto the envelope taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: scientific name is already catalogued", ErrValidation)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w", ErrNotFound)
	default:
		return fmt.Errorf("store write failed: %w", err)
	}
}

func failure(ctx context.Context, op string, err error) Result {
	applog.Error(ctx, op+" failed", "error", err)
	return Result{Error: err.Error(), cause: err}
}
