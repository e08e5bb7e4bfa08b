package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	applog "treetrack/internal/log"
	"treetrack/internal/plants"
	"treetrack/internal/views"
	"treetrack/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionAdminIDKey       = "auth:admin:id"
	sessionAdminEmailKey    = "auth:admin:email"
	sessionAdminNameKey     = "auth:admin:name"
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	catalog        *plants.Service
	viewCache      *views.Cache
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB, service *plants.Service, cache *views.Cache) {
	sessionManager = sm
	database = db
	catalog = service
	viewCache = cache
}

func createAdministrator(r *http.Request, email, name, password string) (*models.Administrator, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &models.Administrator{
		Email:        strings.ToLower(email),
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: string(hashed),
	}

	if err := database.WithContext(r.Context()).Create(admin).Error; err != nil {
		return nil, err
	}

	return admin, nil
}

func findAdministratorByEmail(r *http.Request, email string) (*models.Administrator, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	admin := &models.Administrator{}
	err := database.WithContext(r.Context()).Where("lower(email) = ?", strings.ToLower(email)).First(admin).Error
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// authenticate verifies the provided credentials and populates the session
// if successful.
func authenticate(w http.ResponseWriter, r *http.Request, email, password string) bool {
	if sessionManager == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return false
	}

	admin, err := findAdministratorByEmail(r, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Error(r.Context(), "failed to load administrator during login", "error", err)
		}
		return false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return false
	}

	if err := establishSession(r, admin); err != nil {
		applog.Error(r.Context(), "failed to establish session", "error", err)
		return false
	}

	return true
}

func establishSession(r *http.Request, admin *models.Administrator) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionAdminIDKey, admin.AdminID)
	sessionManager.Put(r.Context(), sessionAdminEmailKey, admin.Email)
	sessionManager.Put(r.Context(), sessionAdminNameKey, admin.DisplayName)
	return nil
}

// currentAdminID returns the authenticated administrator's id for this
// request, or false when no session is active. Mutating operations pass
// the empty id through to the service, which reports the authentication
// failure in its result envelope.
func currentAdminID(r *http.Request) (string, bool) {
	if sessionManager == nil {
		return "", false
	}
	if !sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) {
		return "", false
	}
	id := sessionManager.GetString(r.Context(), sessionAdminIDKey)
	return id, id != ""
}

// ActiveSession returns true when the current request has an authenticated
// session.
func ActiveSession(r *http.Request) bool {
	_, ok := currentAdminID(r)
	return ok
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
