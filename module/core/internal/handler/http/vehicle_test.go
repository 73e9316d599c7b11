package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type mockRuntimeService struct {
	stateFn func(vehicleID string, now time.Time) (domain.RuntimeState, bool)
	allFn   func(now time.Time) []domain.RuntimeState
}

func (m *mockRuntimeService) State(vehicleID string, now time.Time) (domain.RuntimeState, bool) {
	return m.stateFn(vehicleID, now)
}

func (m *mockRuntimeService) All(now time.Time) []domain.RuntimeState {
	return m.allFn(now)
}

type mockHistoryService struct {
	getHistoryFn func(ctx context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error)
}

func (m *mockHistoryService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error) {
	return m.getHistoryFn(ctx, query)
}

func setupVehicleRouter(runtime runtimeService, history historyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewVehicleHandler(runtime, history).Register(r.Group("/"))
	return r
}

func TestGetState_Success(t *testing.T) {
	runtime := &mockRuntimeService{
		stateFn: func(vehicleID string, _ time.Time) (domain.RuntimeState, bool) {
			return domain.RuntimeState{
				VehicleID: vehicleID,
				Online:    true,
				Activity:  domain.ActivityMoving,
			}, true
		},
	}
	r := setupVehicleRouter(runtime, &mockHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles/V1/state", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got domain.RuntimeState
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.VehicleID != "V1" || !got.Online || got.Activity != domain.ActivityMoving {
		t.Errorf("unexpected state: %+v", got)
	}
}

func TestGetState_NotFound(t *testing.T) {
	runtime := &mockRuntimeService{
		stateFn: func(_ string, _ time.Time) (domain.RuntimeState, bool) {
			return domain.RuntimeState{}, false
		},
	}
	r := setupVehicleRouter(runtime, &mockHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles/NOPE/state", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetAllStates(t *testing.T) {
	runtime := &mockRuntimeService{
		allFn: func(_ time.Time) []domain.RuntimeState {
			return []domain.RuntimeState{
				{VehicleID: "V1", Online: true, Activity: domain.ActivityParked},
				{VehicleID: "V2", Online: false, Activity: domain.ActivityOffline},
			}
		},
	}
	r := setupVehicleRouter(runtime, &mockHistoryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []domain.RuntimeState
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 states, got %d", len(got))
	}
}

func TestGetHistory_Success(t *testing.T) {
	var capturedQuery *domain.HistoryQuery
	history := &mockHistoryService{
		getHistoryFn: func(_ context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error) {
			capturedQuery = query
			return []domain.TrackPoint{
				{VehicleID: query.VehicleID, Latitude: -6.2088, Longitude: 106.8456, Timestamp: query.Start},
			}, nil
		},
	}
	r := setupVehicleRouter(&mockRuntimeService{}, history)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles/V1/history?start=1715000000&end=1715003600", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if capturedQuery == nil {
		t.Fatal("expected GetHistory to be called")
	}
	if capturedQuery.VehicleID != "V1" {
		t.Errorf("expected V1, got %s", capturedQuery.VehicleID)
	}
	if !capturedQuery.Start.Equal(time.Unix(1715000000, 0)) {
		t.Errorf("unexpected start: %v", capturedQuery.Start)
	}
	if !capturedQuery.End.Equal(time.Unix(1715003600, 0)) {
		t.Errorf("unexpected end: %v", capturedQuery.End)
	}
}

func TestGetHistory_InvalidParams(t *testing.T) {
	r := setupVehicleRouter(&mockRuntimeService{}, &mockHistoryService{})

	for _, path := range []string{
		"/vehicles/V1/history",
		"/vehicles/V1/history?start=abc&end=1715003600",
		"/vehicles/V1/history?start=1715000000&end=xyz",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestGetHistory_RepositoryError(t *testing.T) {
	history := &mockHistoryService{
		getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.TrackPoint, error) {
			return nil, errors.New("db down")
		},
	}
	r := setupVehicleRouter(&mockRuntimeService{}, history)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles/V1/history?start=1&end=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestGetHistory_EmptyResultIsArray(t *testing.T) {
	history := &mockHistoryService{
		getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.TrackPoint, error) {
			return nil, nil
		},
	}
	r := setupVehicleRouter(&mockRuntimeService{}, history)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/vehicles/V1/history?start=1&end=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}
