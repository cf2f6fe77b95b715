package service

import (
	"context"

	"github.com/pkordes/travel-journal/internal/domain"
)

// ExportRow is one record flattened for export.
// VisitDate is "2006-01-02"; CreatedAt keeps full precision.
type ExportRow struct {
	ID        string
	Location  string
	Latitude  float64
	Longitude float64
	VisitDate string
	Feelings  string
	CreatedAt string // RFC 3339, UTC
}

// RecordLister is the read side of the collection that ExportService needs.
type RecordLister interface {
	Records(ctx context.Context) []domain.TravelRecord
}

// ExportService produces a flat export of the whole collection.
type ExportService struct {
	records RecordLister
}

// NewExportService constructs an ExportService reading from l.
func NewExportService(l RecordLister) *ExportService {
	return &ExportService{records: l}
}

// Export returns one row per record, in insertion order.
// Always returns a non-nil slice.
func (s *ExportService) Export(ctx context.Context) ([]ExportRow, error) {
	records := s.records.Records(ctx)
	rows := make([]ExportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, ExportRow{
			ID:        r.ID,
			Location:  r.Location,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			VisitDate: r.VisitDate.Format(domain.DateLayout),
			Feelings:  r.Feelings,
			CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return rows, nil
}
