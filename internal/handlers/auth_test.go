package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"treetrack/models"
)

func withTestSessionManager(t *testing.T) (*scs.SessionManager, func()) {
	t.Helper()
	original := sessionManager
	sm := scs.New()
	sessionManager = sm
	return sm, func() {
		sessionManager = original
	}
}

func withTestDatabase(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	original := database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&models.Administrator{}, &models.Plant{}, &models.QRCode{}, &models.Rating{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	database = db
	return db, func() {
		database = original
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func withSessionContext(t *testing.T, sm *scs.SessionManager, r *http.Request) *http.Request {
	t.Helper()
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	return r.WithContext(ctx)
}

func TestActiveSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ActiveSession(req) {
		t.Fatal("expected inactive session when manager is nil")
	}

	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	req = withSessionContext(t, sm, req)
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionAdminIDKey, uuid.NewString())

	if !ActiveSession(req) {
		t.Fatal("expected active session when flags are set")
	}
}

func TestCurrentAdminID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := currentAdminID(req); ok {
		t.Fatal("expected currentAdminID to fail without session manager")
	}

	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	req = withSessionContext(t, sm, req)
	if _, ok := currentAdminID(req); ok {
		t.Fatal("expected false when admin id not set")
	}

	adminID := uuid.NewString()
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionAdminIDKey, adminID)
	id, ok := currentAdminID(req)
	if !ok || id != adminID {
		t.Fatalf("expected admin id %q, got %q (ok=%t)", adminID, id, ok)
	}
}

func TestEstablishSession(t *testing.T) {
	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = withSessionContext(t, sm, req)

	admin := &models.Administrator{AdminID: uuid.NewString(), Email: "curator@example.com", DisplayName: "Curator"}
	if err := establishSession(req, admin); err != nil {
		t.Fatalf("establishSession returned error: %v", err)
	}

	if !sm.GetBool(req.Context(), sessionAuthenticatedKey) {
		t.Fatal("expected session authenticated flag to be true")
	}
	if got := sm.GetString(req.Context(), sessionAdminIDKey); got != admin.AdminID {
		t.Fatalf("expected session admin id %q, got %q", admin.AdminID, got)
	}
	if got := sm.GetString(req.Context(), sessionAdminEmailKey); got != "curator@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := sm.GetString(req.Context(), sessionAdminNameKey); got != "Curator" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestEstablishSessionWithoutManager(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := establishSession(req, &models.Administrator{}); err == nil {
		t.Fatal("expected error when session manager is nil")
	}
}

func TestCreateAdministrator(t *testing.T) {
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := httptest.NewRequest(http.MethodPost, "/signup", nil)
	admin, err := createAdministrator(req, "Example@Email.com", "  Test Curator  ", "password123")
	if err != nil {
		t.Fatalf("createAdministrator returned error: %v", err)
	}
	if admin.Email != "example@email.com" {
		t.Fatalf("expected email to be lowercased, got %q", admin.Email)
	}
	if admin.DisplayName != "Test Curator" {
		t.Fatalf("expected trimmed name, got %q", admin.DisplayName)
	}
	if admin.AdminID == "" {
		t.Fatal("expected generated admin id")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("password123")); err != nil {
		t.Fatalf("password hash does not match original: %v", err)
	}

	var count int64
	if err := db.Model(&models.Administrator{}).Where("email = ?", "example@email.com").Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected administrator persisted, count=%d err=%v", count, err)
	}
}

func TestCreateAdministratorWithoutDatabase(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/signup", nil)
	if _, err := createAdministrator(req, "test@example.com", "Curator", "password"); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("expected ErrInvalidDB, got %v", err)
	}
}

func TestFindAdministratorByEmail(t *testing.T) {
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := findAdministratorByEmail(req, "missing@example.com"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for missing administrator, got %v", err)
	}

	if _, err := createAdministrator(req, "curator@example.com", "Curator", "password123"); err != nil {
		t.Fatalf("failed to seed administrator: %v", err)
	}

	admin, err := findAdministratorByEmail(req, "CURATOR@example.com")
	if err != nil {
		t.Fatalf("findAdministratorByEmail returned error: %v", err)
	}
	if admin.Email != "curator@example.com" {
		t.Fatalf("expected lowercase email, got %q", admin.Email)
	}
}

func TestAuthenticate(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req = withSessionContext(t, sm, req)
	w := httptest.NewRecorder()

	if _, err := createAdministrator(req, "curator@example.com", "Curator", "password123"); err != nil {
		t.Fatalf("failed to create administrator: %v", err)
	}

	if ok := authenticate(w, req, "curator@example.com", "password123"); !ok {
		t.Fatal("expected authentication to succeed")
	}
	if !sm.GetBool(req.Context(), sessionAuthenticatedKey) {
		t.Fatal("expected session authenticated flag to be true")
	}

	w = httptest.NewRecorder()
	if ok := authenticate(w, req, "curator@example.com", "wrong"); ok {
		t.Fatal("expected authentication failure with bad password")
	}
	w = httptest.NewRecorder()
	if ok := authenticate(w, req, "unknown@example.com", "password123"); ok {
		t.Fatal("expected authentication failure for unknown email")
	}
}

func TestLoginHandler(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	seedReq := httptest.NewRequest(http.MethodPost, "/signup", nil)
	if _, err := createAdministrator(seedReq, "curator@example.com", "Curator", "password123"); err != nil {
		t.Fatalf("failed to seed administrator: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"curator@example.com","password":"password123"}`))
	req = withSessionContext(t, sm, req)
	w := httptest.NewRecorder()
	Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"curator@example.com","password":"nope"}`))
	req = withSessionContext(t, sm, req)
	w = httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	w = httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", w.Code)
	}
}

func TestSignupHandler(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	db, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"name":"Curator","email":"curator@example.com","password":"password123"}`))
	req = withSessionContext(t, sm, req)
	w := httptest.NewRecorder()
	Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&models.Administrator{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected one administrator, count=%d err=%v", count, err)
	}

	// Duplicate email is rejected before touching the database again.
	req = httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"name":"Other","email":"curator@example.com","password":"password456"}`))
	req = withSessionContext(t, sm, req)
	w = httptest.NewRecorder()
	Signup(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"X","password":"password123"}`},
		{"invalid email", `{"name":"X","email":"not-an-email","password":"password123"}`},
		{"short password", `{"name":"X","email":"x@example.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(tt.body))
			req = withSessionContext(t, sm, req)
			w := httptest.NewRecorder()
			Signup(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = withSessionContext(t, sm, req)
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionAdminIDKey, uuid.NewString())

	w := httptest.NewRecorder()
	Logout(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ActiveSession(req) {
		t.Fatal("expected session to be destroyed")
	}

	req = httptest.NewRequest(http.MethodDelete, "/logout", nil)
	w = httptest.NewRecorder()
	Logout(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for DELETE, got %d", w.Code)
	}
}
