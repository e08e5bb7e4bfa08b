package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "treetrack/internal/log"
	"treetrack/models"
)

// New returns an in-memory sqlite database seeded with representative
// campus catalog data.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:treetrack-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Administrator{},
		&models.Plant{},
		&models.QRCode{},
		&models.Rating{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("arboretum"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.Administrator{
		Email:        "curator@treetrack.app",
		DisplayName:  "Campus Curator",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	mahogany := models.Plant{
		ScientificName: "Swietenia macrophylla",
		Description:    "Broad-leaved canopy tree shading the east quad walkway.",
		PhotoLink:      "https://i.imgur.com/mahogany.jpg",
		ImgurHash:      "mockhash-mahogany",
		UserID:         admin.AdminID,
	}
	if err := mahogany.SetCommonNames([]string{"Mahogany", "Caoba"}); err != nil {
		return err
	}

	ceibo := models.Plant{
		ScientificName: "Erythrina crista-galli",
		Description:    "Coral-flowered ornamental near the library entrance.",
		PhotoLink:      "https://i.imgur.com/ceibo.jpg",
		ImgurHash:      "mockhash-ceibo",
		UserID:         admin.AdminID,
	}
	if err := ceibo.SetCommonNames([]string{"Ceibo", "Cockspur Coral Tree"}); err != nil {
		return err
	}

	plants := []*models.Plant{&mahogany, &ceibo}
	for _, plant := range plants {
		if err := db.WithContext(ctx).Create(plant).Error; err != nil {
			return err
		}
	}

	codes := []models.QRCode{
		{
			PlantID:       mahogany.PlantID,
			QRImage:       "https://i.imgur.com/mahogany-qr.png",
			QRDestination: "/plant/" + mahogany.PlantID,
			ImgurHash:     "mockhash-mahogany-qr",
		},
		{
			PlantID:       ceibo.PlantID,
			QRImage:       "https://i.imgur.com/ceibo-qr.png",
			QRDestination: "/plant/" + ceibo.PlantID,
			ImgurHash:     "mockhash-ceibo-qr",
		},
	}
	for _, code := range codes {
		codeCopy := code
		if err := db.WithContext(ctx).Create(&codeCopy).Error; err != nil {
			return err
		}
	}

	ratings := []models.Rating{
		{PlantID: mahogany.PlantID, RatingValue: 5},
		{PlantID: mahogany.PlantID, RatingValue: 4},
		{PlantID: ceibo.PlantID, RatingValue: 3},
	}
	for _, rating := range ratings {
		ratingCopy := rating
		if err := db.WithContext(ctx).Create(&ratingCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
