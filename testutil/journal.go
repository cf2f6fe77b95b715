package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/storage"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewMemoryAdapter returns a mounted storage.Adapter over a fresh
// MemoryBackend, plus the backend for inspecting what was persisted.
func NewMemoryAdapter(t *testing.T) (*storage.Adapter, *storage.MemoryBackend) {
	t.Helper()
	b := storage.NewMemoryBackend()
	a := storage.NewAdapter(b, DiscardLogger(), nil)
	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("testutil.NewMemoryAdapter: mount: %v", err)
	}
	return a, b
}

// Date parses "YYYY-MM-DD" and fails the test on malformed input.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("testutil.Date: %v", err)
	}
	return d
}

// Record builds a TravelRecord with the given id and visit date and
// deterministic values for everything else.
func Record(t *testing.T, id, visitDate string) domain.TravelRecord {
	t.Helper()
	return domain.TravelRecord{
		ID:        id,
		Location:  "Location " + id,
		Latitude:  35.0,
		Longitude: 139.0,
		VisitDate: Date(t, visitDate),
		Feelings:  "Feelings about " + id,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}
