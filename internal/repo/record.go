// Package repo maps the record collection to its persisted JSON layout.
// The whole collection lives under one storage key and is rewritten in full
// on every save. No business logic lives here.
package repo

import (
	"context"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/storage"
)

// DefaultKey is the storage key holding the record array.
const DefaultKey = "travel-records"

// RecordRepo loads and saves the full record collection.
// Persistence is best-effort, so neither method reports errors: Load falls
// back to an empty collection and Save failures are logged by the adapter.
type RecordRepo interface {
	// Load returns the persisted records in insertion order.
	Load(ctx context.Context) []domain.TravelRecord

	// Save replaces the persisted collection with records.
	Save(ctx context.Context, records []domain.TravelRecord)
}

// storedRecord is the persisted shape of one record. Field names and formats
// are part of the on-disk contract: visitDate is "YYYY-MM-DD" and createdAt
// is an RFC 3339 timestamp.
type storedRecord struct {
	ID        string             `json:"id"`
	Location  string             `json:"location"`
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	VisitDate openapi_types.Date `json:"visitDate"`
	Feelings  string             `json:"feelings"`
	CreatedAt time.Time          `json:"createdAt"`
}

type storeRecordRepo struct {
	store *storage.Adapter
	key   string
}

// NewRecordRepo constructs a RecordRepo writing under key through store.
// An empty key selects DefaultKey.
func NewRecordRepo(store *storage.Adapter, key string) RecordRepo {
	if key == "" {
		key = DefaultKey
	}
	return &storeRecordRepo{store: store, key: key}
}

func (r *storeRecordRepo) Load(ctx context.Context) []domain.TravelRecord {
	stored := storage.Load(ctx, r.store, r.key, []storedRecord{})

	records := make([]domain.TravelRecord, 0, len(stored))
	for _, s := range stored {
		records = append(records, fromStored(s))
	}
	return records
}

func (r *storeRecordRepo) Save(ctx context.Context, records []domain.TravelRecord) {
	stored := make([]storedRecord, len(records))
	for i, rec := range records {
		stored[i] = toStored(rec)
	}
	r.store.Save(ctx, r.key, stored)
}

func toStored(r domain.TravelRecord) storedRecord {
	return storedRecord{
		ID:        r.ID,
		Location:  r.Location,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		VisitDate: openapi_types.Date{Time: r.VisitDate},
		Feelings:  r.Feelings,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func fromStored(s storedRecord) domain.TravelRecord {
	return domain.TravelRecord{
		ID:        s.ID,
		Location:  s.Location,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		VisitDate: domain.TruncateToDate(s.VisitDate.Time),
		Feelings:  s.Feelings,
		CreatedAt: s.CreatedAt,
	}
}
