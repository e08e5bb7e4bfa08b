package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"treetrack/internal/config"
	"treetrack/internal/db"
	"treetrack/models"

	"gorm.io/gorm"
)

var cleanWhitespace = regexp.MustCompile(`\s+`)

func main() {
	csvPath := "campus plants - catalogue.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("locate csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := readCSV(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	ownerID, err := resolveImportOwner(database)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	imported, err := importRecords(database, records, ownerID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d plants from %s\n", imported, filepath.Base(csvPath))
	return nil
}

// importRecords upserts each row keyed on scientific name. Rows that match
// an existing record refresh its mutable columns; unknown names create new
// records owned by ownerID.
func importRecords(database *gorm.DB, records []map[string]string, ownerID string) (int, error) {
	imported := 0
	for idx, record := range records {
		if err := database.Transaction(func(tx *gorm.DB) error {
			plant, err := buildPlant(record)
			if err != nil {
				return err
			}
			plant.UserID = ownerID

			var existing models.Plant
			err = tx.Where("scientific_name = ?", plant.ScientificName).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&plant).Error; err != nil {
					return fmt.Errorf("create plant %q: %w", plant.ScientificName, err)
				}
			case err != nil:
				return fmt.Errorf("find plant %q: %w", plant.ScientificName, err)
			default:
				updates := map[string]any{
					"common_names":  plant.CommonNames,
					"description":   plant.Description,
					"last_modified": plant.LastModified,
				}
				if plant.PhotoLink != "" {
					updates["photo_link"] = plant.PhotoLink
					updates["imgur_hash"] = plant.ImgurHash
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("update plant %q: %w", plant.ScientificName, err)
				}
			}

			return nil
		}); err != nil {
			return imported, fmt.Errorf("record %d (%s): %w", idx+1, record["Scientific Name"], err)
		}
		imported++
	}
	return imported, nil
}

func resolveImportOwner(database *gorm.DB) (string, error) {
	if database == nil {
		return "", fmt.Errorf("database handle is nil")
	}

	ctx := context.Background()
	email := strings.TrimSpace(os.Getenv("TREETRACK_IMPORT_OWNER_EMAIL"))
	if email != "" {
		var admin models.Administrator
		if err := database.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(&admin).Error; err != nil {
			return "", fmt.Errorf("find owner by email %q: %w", strings.ToLower(email), err)
		}
		return admin.AdminID, nil
	}

	var admin models.Administrator
	if err := database.WithContext(ctx).Order("created_at asc").First(&admin).Error; err != nil {
		return "", fmt.Errorf("find default owner: %w", err)
	}
	return admin.AdminID, nil
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[key] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func buildPlant(row map[string]string) (models.Plant, error) {
	name := strings.TrimSpace(row["Scientific Name"])
	if name == "" {
		return models.Plant{}, errors.New("scientific name is required")
	}

	plant := models.Plant{
		ScientificName: name,
		Description:    normalizeText(row["Description"]),
		PhotoLink:      normalizeValue(row["Photo Link"]),
		ImgurHash:      normalizeValue(row["Imgur Hash"]),
		LastModified:   time.Now().UTC(),
	}

	if err := plant.SetCommonNames(splitCommonNames(row["Common Names"])); err != nil {
		return models.Plant{}, fmt.Errorf("encode common names for %q: %w", name, err)
	}

	return plant, nil
}

func splitCommonNames(value string) []string {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ";")
	names := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(clean)]; ok {
			continue
		}
		seen[strings.ToLower(clean)] = struct{}{}
		names = append(names, clean)
	}
	return names
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	value = normalizeValue(value)
	if value == "" {
		return value
	}
	value = cleanWhitespace.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
