package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adityav2131/major-project-sub000/internal/app/features/health"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"go.uber.org/zap"
)

type deadStore struct{}

func (deadStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestServe_StoreConnected(t *testing.T) {
	handler := health.NewHandler(memstore.New(), "memory", zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}

	var response struct {
		Status  string `json:"status"`
		Store   string `json:"store"`
		Backend string `json:"backend"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "ok" || response.Store != "connected" || response.Backend != "memory" {
		t.Errorf("unexpected response %+v", response)
	}
}

func TestServe_StoreDown(t *testing.T) {
	handler := health.NewHandler(deadStore{}, "mongo", zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var response struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "error" || response.Error != "connection refused" {
		t.Errorf("unexpected response %+v", response)
	}
}
