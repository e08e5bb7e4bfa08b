package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	applog "treetrack/internal/log"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new administrator account and signs it in.
func Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable",
			"hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var payload signupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid signup payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	email := strings.TrimSpace(payload.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Error: "a valid email address is required"})
		return
	}
	if len(payload.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Error: "password must be at least 8 characters long"})
		return
	}

	if _, err := findAdministratorByEmail(r, email); err == nil {
		applog.Debug(r.Context(), "signup attempted with existing email", "email", strings.ToLower(email))
		writeJSON(w, http.StatusConflict, sessionResponse{Error: "an account with that email already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		applog.Error(r.Context(), "failed to check existing administrator", "error", err)
		writeJSON(w, http.StatusInternalServerError, sessionResponse{Error: "we couldn't create the account right now"})
		return
	}

	admin, err := createAdministrator(r, email, payload.Name, payload.Password)
	if err != nil {
		applog.Error(r.Context(), "failed to create administrator", "error", err)
		writeJSON(w, http.StatusInternalServerError, sessionResponse{Error: "we couldn't create the account right now"})
		return
	}

	if err := establishSession(r, admin); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeJSON(w, http.StatusInternalServerError, sessionResponse{Error: "account created but sign-in failed"})
		return
	}

	applog.Info(r.Context(), "administrator registered", "adminId", admin.AdminID, "email", admin.Email)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Success:     true,
		AdminID:     admin.AdminID,
		DisplayName: admin.DisplayName,
	})
}
