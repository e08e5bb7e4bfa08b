package plants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	applog "treetrack/internal/log"
	"treetrack/models"
)

// AttachQR uploads a QR image and ties the resulting asset plus its
// destination URL to a plant. The plant id is trusted: the only caller
// runs immediately after a successful Create. One code per plant is
// enforced by the store's unique index. QR attachment is not rendered on
// its own, so no view is invalidated.
func (s *Service) AttachQR(ctx context.Context, adminID, plantID, destination string, qrImage []byte) Result {
	if strings.TrimSpace(adminID) == "" {
		return failure(ctx, "attach qr code", ErrNotAuthenticated)
	}

	if strings.TrimSpace(plantID) == "" {
		return failure(ctx, "attach qr code", fmt.Errorf("%w: plant id is required", ErrValidation))
	}
	if strings.TrimSpace(destination) == "" {
		return failure(ctx, "attach qr code", fmt.Errorf("%w: destination url is required", ErrValidation))
	}
	if len(qrImage) == 0 {
		return failure(ctx, "attach qr code", fmt.Errorf("%w: qr image is required", ErrValidation))
	}

	asset, err := s.gateway.Upload(ctx, qrImage)
	if err != nil {
		return failure(ctx, "attach qr code", fmt.Errorf("qr image upload failed: %w", err))
	}

	code := models.QRCode{
		PlantID:       plantID,
		QRImage:       asset.Link,
		QRDestination: strings.TrimSpace(destination),
		ImgurHash:     asset.DeleteHash,
	}

	if err := s.db.WithContext(ctx).Create(&code).Error; err != nil {
		result := failure(ctx, "attach qr code", qrStoreError(err))
		if !s.compensateUpload(ctx, asset.DeleteHash) {
			result.Warnings = append(result.Warnings, "uploaded qr image could not be removed and is now orphaned")
		}
		return result
	}

	applog.Info(ctx, "plant qr code added", "plantId", plantID, "qrId", code.QRID, "adminId", adminID)

	return Result{
		Success: true,
		PlantID: plantID,
		QRID:    code.QRID,
	}
}

func qrStoreError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: plant already has a qr code", ErrValidation)
	}
	return storeError(err)
}
