package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type mockGeofenceRegistry struct {
	upsertFn func(g domain.Geofence) (bool, error)
	allFn    func() []domain.Geofence
}

func (m *mockGeofenceRegistry) Upsert(g domain.Geofence) (bool, error) {
	return m.upsertFn(g)
}

func (m *mockGeofenceRegistry) All() []domain.Geofence {
	return m.allFn()
}

type mockViolationDetector struct {
	resetCalls []string
}

func (m *mockViolationDetector) ResetGeofence(geofenceID string) {
	m.resetCalls = append(m.resetCalls, geofenceID)
}

func setupGeofenceRouter(registry geofenceRegistry, detector violationDetector) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGeofenceHandler(registry, detector).Register(r.Group("/"))
	return r
}

func validCircleBody() []byte {
	b, _ := json.Marshal(domain.Geofence{
		Name:    "Depot",
		Kind:    domain.ShapeCircle,
		Rule:    domain.RuleForbidden,
		Active:  true,
		Center:  domain.Coordinate{106.8456, -6.2088},
		RadiusM: 500,
	})
	return b
}

func TestUpsertGeofence_Success(t *testing.T) {
	var upserted domain.Geofence
	registry := &mockGeofenceRegistry{
		upsertFn: func(g domain.Geofence) (bool, error) {
			upserted = g
			return false, nil
		},
	}
	detector := &mockViolationDetector{}
	r := setupGeofenceRouter(registry, detector)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/geofences/G1", bytes.NewReader(validCircleBody()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	// path param wins over any id in the body
	if upserted.GeofenceID != "G1" {
		t.Errorf("expected geofence id G1, got %s", upserted.GeofenceID)
	}
	if len(detector.resetCalls) != 0 {
		t.Errorf("plain update must not reset history, got %v", detector.resetCalls)
	}
}

func TestUpsertGeofence_ReactivationResetsHistory(t *testing.T) {
	registry := &mockGeofenceRegistry{
		upsertFn: func(_ domain.Geofence) (bool, error) { return true, nil },
	}
	detector := &mockViolationDetector{}
	r := setupGeofenceRouter(registry, detector)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/geofences/G1", bytes.NewReader(validCircleBody()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(detector.resetCalls) != 1 || detector.resetCalls[0] != "G1" {
		t.Errorf("reactivation must reset history for G1, got %v", detector.resetCalls)
	}
}

func TestUpsertGeofence_InvalidBody(t *testing.T) {
	r := setupGeofenceRouter(&mockGeofenceRegistry{}, &mockViolationDetector{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/geofences/G1", bytes.NewReader([]byte("not json")))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUpsertGeofence_ValidationRejected(t *testing.T) {
	registry := &mockGeofenceRegistry{
		upsertFn: func(_ domain.Geofence) (bool, error) {
			return false, errors.New("geofence G1: circle radius must be > 0")
		},
	}
	detector := &mockViolationDetector{}
	r := setupGeofenceRouter(registry, detector)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/geofences/G1", bytes.NewReader(validCircleBody()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if len(detector.resetCalls) != 0 {
		t.Error("rejected update must not touch detector history")
	}
}

func TestGetAllGeofences(t *testing.T) {
	registry := &mockGeofenceRegistry{
		allFn: func() []domain.Geofence {
			return []domain.Geofence{
				{GeofenceID: "G1", Kind: domain.ShapeCircle, Rule: domain.RuleForbidden, Active: true},
				{GeofenceID: "G2", Kind: domain.ShapePolygon, Rule: domain.RuleStayIn, Active: false},
			}
		},
	}
	r := setupGeofenceRouter(registry, &mockViolationDetector{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/geofences", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []domain.Geofence
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 geofences, got %d", len(got))
	}
}

func TestGetAllGeofences_EmptyIsArray(t *testing.T) {
	registry := &mockGeofenceRegistry{
		allFn: func() []domain.Geofence { return nil },
	}
	r := setupGeofenceRouter(registry, &mockViolationDetector{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/geofences", nil)
	r.ServeHTTP(w, req)

	if body := w.Body.String(); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}
