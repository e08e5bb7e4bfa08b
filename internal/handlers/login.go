package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	applog "treetrack/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	AdminID     string `json:"adminId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Login processes sign-in submissions and establishes a session.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable",
			"hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var payload credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid login payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	email := strings.TrimSpace(payload.Email)
	if email == "" || payload.Password == "" {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Error: "email and password are required"})
		return
	}

	if !authenticate(w, r, email, payload.Password) {
		applog.Debug(r.Context(), "authentication failed", "email", strings.ToLower(email))
		writeJSON(w, http.StatusUnauthorized, sessionResponse{Error: "invalid email or password"})
		return
	}

	applog.Info(r.Context(), "administrator signed in", "email", strings.ToLower(email))
	writeJSON(w, http.StatusOK, sessionResponse{
		Success:     true,
		AdminID:     sessionManager.GetString(r.Context(), sessionAdminIDKey),
		DisplayName: sessionManager.GetString(r.Context(), sessionAdminNameKey),
	})
}
