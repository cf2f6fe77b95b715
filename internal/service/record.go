// Package service contains the business logic of the Travel Journal.
// Services enforce collection rules and orchestrate repo calls; no storage
// details live here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/repo"
)

// RecordService owns the canonical record array and the selection pointer.
// Every mutation writes the full array back through the repo before
// returning.
//
// RecordService is not safe for concurrent use; its owner (the shell)
// serializes access.
type RecordService struct {
	repo    repo.RecordRepo
	log     *slog.Logger
	metrics *metrics.Metrics

	records  []domain.TravelRecord
	selected string
}

// NewRecordService constructs an empty RecordService backed by r.
// Call Load once the storage layer is mounted.
func NewRecordService(r repo.RecordRepo, log *slog.Logger, m *metrics.Metrics) *RecordService {
	return &RecordService{repo: r, log: log, metrics: m, records: []domain.TravelRecord{}}
}

// Load replaces the in-memory collection with the persisted one and clears
// the selection. A record whose ID repeats an earlier one is dropped with a
// warning; the first occurrence wins.
func (s *RecordService) Load(ctx context.Context) {
	loaded := s.repo.Load(ctx)
	s.records = make([]domain.TravelRecord, 0, len(loaded))
	seen := make(map[string]struct{}, len(loaded))
	for i, r := range loaded {
		if _, dup := seen[r.ID]; dup {
			s.log.WarnContext(ctx, "duplicate record id dropped", "id", r.ID, "position", i)
			continue
		}
		seen[r.ID] = struct{}{}
		s.records = append(s.records, r)
	}
	s.selected = ""
	s.metrics.SetRecords(len(s.records))
	s.log.InfoContext(ctx, "records loaded", "count", len(s.records))
}

// Records returns a copy of the collection in insertion order.
// Always non-nil so callers can range over it.
func (s *RecordService) Records() []domain.TravelRecord {
	return slices.Clone(s.records)
}

// Len returns the number of records.
func (s *RecordService) Len() int { return len(s.records) }

// Get returns the record with id, or domain.ErrNotFound.
func (s *RecordService) Get(id string) (domain.TravelRecord, error) {
	i := s.index(id)
	if i < 0 {
		return domain.TravelRecord{}, fmt.Errorf("service.RecordService.Get: %w", domain.ErrNotFound)
	}
	return s.records[i], nil
}

// Add appends record. Returns domain.ErrConflict if its ID is already present.
func (s *RecordService) Add(ctx context.Context, record domain.TravelRecord) error {
	if s.index(record.ID) >= 0 {
		return fmt.Errorf("service.RecordService.Add: record %q: %w", record.ID, domain.ErrConflict)
	}
	s.records = append(s.records, record)
	s.persist(ctx, "add")
	return nil
}

// Update replaces Location, VisitDate and Feelings of the record with the same
// ID, in place. ID, coordinates and CreatedAt are kept from the stored record.
// Returns the stored result, or domain.ErrNotFound.
func (s *RecordService) Update(ctx context.Context, record domain.TravelRecord) (domain.TravelRecord, error) {
	i := s.index(record.ID)
	if i < 0 {
		return domain.TravelRecord{}, fmt.Errorf("service.RecordService.Update: record %q: %w", record.ID, domain.ErrNotFound)
	}
	updated := s.records[i]
	updated.Location = record.Location
	updated.VisitDate = record.VisitDate
	updated.Feelings = record.Feelings
	s.records[i] = updated
	s.persist(ctx, "update")
	return updated, nil
}

// Delete removes the record with id and clears the selection if it pointed
// at it. Returns domain.ErrNotFound if no such record exists.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("service.RecordService.Delete: record %q: %w", id, domain.ErrNotFound)
	}
	s.records = slices.Delete(s.records, i, i+1)
	if s.selected == id {
		s.selected = ""
	}
	s.persist(ctx, "delete")
	return nil
}

// Select points the selection at id. Returns domain.ErrNotFound if the record
// does not exist; the previous selection is kept in that case.
func (s *RecordService) Select(id string) error {
	if s.index(id) < 0 {
		return fmt.Errorf("service.RecordService.Select: record %q: %w", id, domain.ErrNotFound)
	}
	s.selected = id
	return nil
}

// ClearSelection sets the selection to none.
func (s *RecordService) ClearSelection() {
	s.selected = ""
}

// SelectedID returns the selected record's ID, or "" when nothing is selected.
func (s *RecordService) SelectedID() string {
	return s.selected
}

// Selected returns the selected record and whether there is one.
func (s *RecordService) Selected() (domain.TravelRecord, bool) {
	i := s.index(s.selected)
	if s.selected == "" || i < 0 {
		return domain.TravelRecord{}, false
	}
	return s.records[i], true
}

func (s *RecordService) index(id string) int {
	return slices.IndexFunc(s.records, func(r domain.TravelRecord) bool { return r.ID == id })
}

func (s *RecordService) persist(ctx context.Context, op string) {
	s.repo.Save(ctx, s.records)
	s.metrics.Mutation(op)
	s.metrics.SetRecords(len(s.records))
	s.log.DebugContext(ctx, "records saved", "op", op, "count", len(s.records))
}
