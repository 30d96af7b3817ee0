package met

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wsilva/contrail/pkg/logger"
)

func TestBackoffPolicyDelay(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 5, BaseDelayMs: 2000, MaxDelayMs: 30000}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // capped, not 32s
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func testPayload() gridPayload {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cell := [][][]float64{{{5.0}}}
	return gridPayload{
		Times:      []time.Time{t0},
		Latitudes:  []float64{50},
		Longitudes: []float64{-1},
		Levels:     []int{250},
		UWind:      [][][][]float64{cell},
		VWind:      [][][][]float64{cell},
	}
}

func TestFetchGridRetriesUntilSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "upstream busy", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(testPayload())
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:               srv.URL,
		RequestTimeoutSeconds: 5,
		Retry:                 BackoffPolicy{MaxAttempts: 3, BaseDelayMs: 1, MaxDelayMs: 5},
	}
	client := NewClient(cfg, logger.NewNop())
	grid, err := client.FetchGrid(context.Background(), GridRequest{Levels: []int{250}})
	if err != nil {
		t.Fatalf("FetchGrid: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
	if grid.UWind[0][0][0][0] != 5.0 {
		t.Errorf("unexpected grid data: %v", grid.UWind)
	}
}

func TestFetchGridExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no data", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:               srv.URL,
		RequestTimeoutSeconds: 5,
		Retry:                 BackoffPolicy{MaxAttempts: 2, BaseDelayMs: 1, MaxDelayMs: 5},
	}
	client := NewClient(cfg, logger.NewNop())
	if _, err := client.FetchGrid(context.Background(), GridRequest{Levels: []int{250}}); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestServiceFallsBackToStaleCache(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	req := GridRequest{
		Start: t0, End: t0,
		LatMin: 50, LatMax: 50,
		LonMin: -1, LonMax: -1,
		Levels: []int{250},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:               srv.URL,
		RequestTimeoutSeconds: 5,
		CacheDir:              t.TempDir(),
		CacheExpiryMinutes:    1,
		Retry:                 BackoffPolicy{MaxAttempts: 1, BaseDelayMs: 1, MaxDelayMs: 1},
	}
	svc := NewService(cfg, logger.NewNop())

	// Seed the cache with an already-expired grid
	payload := testPayload()
	stale, err := newGrid(&payload)
	if err != nil {
		t.Fatalf("newGrid: %v", err)
	}
	stale.FetchedAt = time.Now().Add(-time.Hour)
	svc.cache.Put(req, stale)

	grid, err := svc.GetGrid(context.Background(), req)
	if err != nil {
		t.Fatalf("GetGrid: %v", err)
	}
	if grid.UWind[0][0][0][0] != 5.0 {
		t.Errorf("expected stale cached grid, got %v", grid.UWind)
	}
}
