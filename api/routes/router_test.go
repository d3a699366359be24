package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/internal/catalog"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/identity"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) CreateResource(context.Context, catalog.CreateResourceInput) (*catalog.ResourceDTO, error) {
	return &catalog.ResourceDTO{ID: uuid.New()}, nil
}

func (stubCatalogService) GetResource(_ context.Context, id uuid.UUID) (*catalog.ResourceDTO, error) {
	return &catalog.ResourceDTO{ID: id}, nil
}

func (stubCatalogService) UpdateCapacity(_ context.Context, id uuid.UUID, capacity int) (*catalog.ResourceDTO, error) {
	return &catalog.ResourceDTO{ID: id, Capacity: capacity}, nil
}

func (stubCatalogService) RetireResource(_ context.Context, id uuid.UUID) (*catalog.ResourceDTO, error) {
	return &catalog.ResourceDTO{ID: id}, nil
}

func (stubCatalogService) ListResources(context.Context, catalog.ListResourcesInput) (*catalog.ResourceListResult, error) {
	return &catalog.ResourceListResult{}, nil
}

type stubReservationService struct {
	lastGet uuid.UUID
}

func (s *stubReservationService) Reserve(_ context.Context, input reservation.ReserveInput) (*reservation.ReservationDTO, error) {
	return &reservation.ReservationDTO{ID: uuid.New(), ResourceID: input.ResourceID, HolderID: input.HolderID}, nil
}

func (s *stubReservationService) Confirm(_ context.Context, id uuid.UUID) (*reservation.ReservationDTO, error) {
	return &reservation.ReservationDTO{ID: id}, nil
}

func (s *stubReservationService) Cancel(_ context.Context, id uuid.UUID) (*reservation.ReservationDTO, error) {
	return &reservation.ReservationDTO{ID: id}, nil
}

func (s *stubReservationService) Release(_ context.Context, id uuid.UUID, _ reservation.ReleaseInput) (*reservation.ReservationDTO, error) {
	return &reservation.ReservationDTO{ID: id}, nil
}

func (s *stubReservationService) Get(_ context.Context, id uuid.UUID) (*reservation.ReservationDTO, error) {
	s.lastGet = id
	return &reservation.ReservationDTO{ID: id}, nil
}

func (s *stubReservationService) SweepExpiredHolds(context.Context, int) (int, error) {
	return 0, nil
}

func (s *stubReservationService) ReconcileSlots(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func routerTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		Identity: config.IdentityConfig{
			JWTSecret: "router-test-secret",
			JWTIssuer: "innkeep-identity",
		},
	}
}

func newTestRouter(t *testing.T, resSvc reservation.Service) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(routerTestConfig(), logg, stubPinger{}, nil, stubCatalogService{}, resSvc, nil, nil)
}

func TestRouterHealthEndpointsAreOpen(t *testing.T) {
	router := newTestRouter(t, &stubReservationService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestRouterRequiresIdentityOnAPIRoutes(t *testing.T) {
	router := newTestRouter(t, &stubReservationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterRoutesAuthenticatedRequests(t *testing.T) {
	cfg := routerTestConfig()
	svc := &stubReservationService{}
	router := newTestRouter(t, svc)

	token, err := identity.MintHolderToken(cfg.Identity, time.Now(), time.Hour, identity.HolderClaims{
		HolderID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	reservationID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/"+reservationID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastGet != reservationID {
		t.Fatalf("expected service to receive %s got %s", reservationID, svc.lastGet)
	}
	if !strings.Contains(resp.Body.String(), reservationID.String()) {
		t.Fatalf("expected body to echo the reservation id: %s", resp.Body.String())
	}
}
