package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/identity"
)

func identityTestConfig() config.IdentityConfig {
	return config.IdentityConfig{
		JWTSecret: "test-secret",
		JWTIssuer: "innkeep-identity",
	}
}

func TestIdentitySeedsHolderContext(t *testing.T) {
	cfg := identityTestConfig()
	holderID := uuid.New()
	propertyID := uuid.New()

	token, err := identity.MintHolderToken(cfg, time.Now(), time.Hour, identity.HolderClaims{
		HolderID:   holderID,
		PropertyID: &propertyID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotHolder, gotProperty string
	handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHolder = HolderIDFromContext(r.Context())
		gotProperty = PropertyIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotHolder != holderID.String() {
		t.Fatalf("expected holder %s got %q", holderID, gotHolder)
	}
	if gotProperty != propertyID.String() {
		t.Fatalf("expected property %s got %q", propertyID, gotProperty)
	}
}

func TestIdentityRejectsMissingOrInvalidToken(t *testing.T) {
	cfg := identityTestConfig()
	handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing header got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestIdentityRejectsExpiredToken(t *testing.T) {
	cfg := identityTestConfig()
	token, err := identity.MintHolderToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, identity.HolderClaims{
		HolderID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token got %d", resp.Code)
	}
}
