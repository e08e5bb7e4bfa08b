package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	applog "treetrack/internal/log"
	"treetrack/internal/plants"
	"treetrack/internal/views"
)

// Uploaded photos and QR images are rejected beyond this size.
const maxUploadBytes = 10 << 20

type ratingRequest struct {
	RatingValue int `json:"rating_value"`
}

// PlantResource handles REST-style interactions for plant records, their
// QR codes, and their ratings.
func PlantResource(w http.ResponseWriter, r *http.Request) {
	if database == nil || catalog == nil {
		applog.Debug(r.Context(), "plant request without configured dependencies")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/plants")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listPlants(w, r)
		case http.MethodPost:
			createPlant(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	plantID := segments[0]

	if len(segments) > 1 {
		switch segments[1] {
		case "qr":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			attachQRCode(w, r, plantID)
		case "ratings":
			switch r.Method {
			case http.MethodGet:
				showRatingSummary(w, r, plantID)
			case http.MethodPost:
				submitRating(w, r, plantID)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showPlant(w, r, plantID)
	case http.MethodPut:
		updatePlant(w, r, plantID)
	case http.MethodDelete:
		deletePlant(w, r, plantID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listPlants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if payload, ok := cachedView(views.ListingPath); ok {
		writeJSONBytes(w, http.StatusOK, payload)
		return
	}

	listing, err := catalog.List(ctx)
	if err != nil {
		applog.Error(ctx, "failed to list plants", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load plants")
		return
	}

	payload, err := json.Marshal(listing)
	if err != nil {
		applog.Error(ctx, "failed to encode plant listing", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load plants")
		return
	}

	storeView(views.ListingPath, payload)
	writeJSONBytes(w, http.StatusOK, payload)
}

func showPlant(w http.ResponseWriter, r *http.Request, plantID string) {
	ctx := r.Context()
	detailPath := views.DetailPath(plantID)

	if payload, ok := cachedView(detailPath); ok {
		writeJSONBytes(w, http.StatusOK, payload)
		return
	}

	detail, err := catalog.Detail(ctx, plantID)
	if err != nil {
		if errors.Is(err, plants.ErrNotFound) {
			applog.Debug(ctx, "plant not found", "plantId", plantID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load plant", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load plant")
		return
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		applog.Error(ctx, "failed to encode plant detail", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load plant")
		return
	}

	storeView(detailPath, payload)
	writeJSONBytes(w, http.StatusOK, payload)
}

func createPlant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, _ := currentAdminID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		applog.Debug(ctx, "invalid create form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, err := readFormImage(r, "image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to read image upload")
		return
	}

	result := catalog.Create(ctx, adminID, plants.CreateInput{
		ScientificName: r.FormValue("scientific_name"),
		CommonNames:    r.PostForm["common_names"],
		Description:    r.FormValue("description"),
		Image:          image,
	})

	writeJSON(w, statusFor(result, http.StatusCreated), result)
}

func updatePlant(w http.ResponseWriter, r *http.Request, plantID string) {
	ctx := r.Context()
	adminID, _ := currentAdminID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		applog.Debug(ctx, "invalid update form", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, err := readFormImage(r, "image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to read image upload")
		return
	}

	result := catalog.Update(ctx, adminID, plantID, r.FormValue("old_image_hash"), plants.UpdateInput{
		ScientificName: r.FormValue("scientific_name"),
		CommonNames:    r.PostForm["common_names"],
		Description:    r.FormValue("description"),
		Image:          image,
	})

	writeJSON(w, statusFor(result, http.StatusOK), result)
}

func deletePlant(w http.ResponseWriter, r *http.Request, plantID string) {
	adminID, _ := currentAdminID(r)

	result := catalog.Delete(r.Context(), adminID, plantID)

	writeJSON(w, statusFor(result, http.StatusOK), result)
}

func attachQRCode(w http.ResponseWriter, r *http.Request, plantID string) {
	ctx := r.Context()
	adminID, _ := currentAdminID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		applog.Debug(ctx, "invalid qr form", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, err := readFormImage(r, "qr_image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to read qr image upload")
		return
	}

	result := catalog.AttachQR(ctx, adminID, plantID, r.FormValue("destination"), image)

	writeJSON(w, statusFor(result, http.StatusCreated), result)
}

func submitRating(w http.ResponseWriter, r *http.Request, plantID string) {
	var payload ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid rating payload", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result := catalog.SubmitRating(r.Context(), plantID, payload.RatingValue)

	writeJSON(w, statusFor(result, http.StatusCreated), result)
}

func showRatingSummary(w http.ResponseWriter, r *http.Request, plantID string) {
	summary, err := catalog.Ratings(r.Context(), plantID)
	if err != nil {
		applog.Error(r.Context(), "failed to aggregate ratings", "error", err, "plantId", plantID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ratings")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// readFormImage pulls the named upload out of a parsed multipart form. A
// missing file is not an error; mutation modes are selected by whether
// bytes were supplied.
func readFormImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// statusFor maps a result envelope onto an HTTP status without losing the
// envelope itself; failures keep their structured body.
func statusFor(result plants.Result, okStatus int) int {
	if result.Success {
		return okStatus
	}
	cause := result.Cause()
	switch {
	case errors.Is(cause, plants.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(cause, plants.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(cause, plants.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func cachedView(path string) ([]byte, bool) {
	if viewCache == nil {
		return nil, false
	}
	return viewCache.Get(path)
}

func storeView(path string, payload []byte) {
	if viewCache == nil {
		return
	}
	viewCache.Put(path, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONBytes(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		applog.Error(context.Background(), "failed to write json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
