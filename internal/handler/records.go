package handler

import (
	"context"
	"errors"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/shell"
	"github.com/pkordes/travel-journal/internal/sidebar"
)

// ListRecords handles GET /records.
// Without ?view the collection is returned in insertion order; view=list
// sorts by visit date (most recent first) and view=timeline also groups by
// month.
func (s *Server) ListRecords(ctx context.Context, req gen.ListRecordsRequestObject) (gen.ListRecordsResponseObject, error) {
	records := s.records.Records(ctx)
	if req.Params.View == nil {
		return gen.ListRecords200JSONResponse{Data: recordsToResponse(records)}, nil
	}

	mode, err := sidebar.ParseMode(string(*req.Params.View))
	if err != nil {
		return gen.ListRecords400JSONResponse(requestBody("view must be list or timeline")), nil
	}
	if mode == sidebar.ModeList {
		return gen.ListRecords200JSONResponse{Data: recordsToResponse(sidebar.SortByVisitDate(records))}, nil
	}

	groups := sidebar.GroupByMonth(records)
	data := make([]gen.Record, 0, len(records))
	out := make([]gen.TimelineGroup, len(groups))
	for i, g := range groups {
		out[i] = gen.TimelineGroup{
			Label:   g.Label(),
			Year:    g.Year,
			Month:   int(g.Month),
			Records: recordsToResponse(g.Records),
		}
		data = append(data, out[i].Records...)
	}
	return gen.ListRecords200JSONResponse{Data: data, Groups: &out}, nil
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(_ context.Context, req gen.GetRecordRequestObject) (gen.GetRecordResponseObject, error) {
	rec, err := s.records.Record(req.Id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return gen.GetRecord404JSONResponse(notFoundBody("record not found")), nil
		}
		return nil, err
	}
	return gen.GetRecord200JSONResponse(recordToResponse(rec)), nil
}

// CreateRecord handles POST /records.
func (s *Server) CreateRecord(ctx context.Context, req gen.CreateRecordRequestObject) (gen.CreateRecordResponseObject, error) {
	if req.Body.Latitude == nil || req.Body.Longitude == nil {
		return gen.CreateRecord422JSONResponse(invalidBody("latitude and longitude are required")), nil
	}

	created, err := s.records.CreateRecord(ctx, requestToInput(req.Body))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return gen.CreateRecord422JSONResponse(validationBody(err)), nil
		}
		if errors.Is(err, domain.ErrConflict) {
			return gen.CreateRecord409JSONResponse(conflictBody("record already exists")), nil
		}
		return nil, err
	}
	return gen.CreateRecord201JSONResponse(recordToResponse(created)), nil
}

// UpdateRecord handles PUT /records/{id}. Coordinates in the body are
// ignored.
func (s *Server) UpdateRecord(ctx context.Context, req gen.UpdateRecordRequestObject) (gen.UpdateRecordResponseObject, error) {
	updated, err := s.records.ReplaceRecord(ctx, req.Id, requestToInput(req.Body))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return gen.UpdateRecord404JSONResponse(notFoundBody("record not found")), nil
		}
		if errors.Is(err, domain.ErrValidation) {
			return gen.UpdateRecord422JSONResponse(validationBody(err)), nil
		}
		return nil, err
	}
	return gen.UpdateRecord200JSONResponse(recordToResponse(updated)), nil
}

// DeleteRecord handles DELETE /records/{id}.
func (s *Server) DeleteRecord(ctx context.Context, req gen.DeleteRecordRequestObject) (gen.DeleteRecordResponseObject, error) {
	if err := s.records.RemoveRecord(ctx, req.Id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return gen.DeleteRecord404JSONResponse(notFoundBody("record not found")), nil
		}
		return nil, err
	}
	return gen.DeleteRecord204Response{}, nil
}

// --- mapping helpers --------------------------------------------------------

func requestToInput(body *gen.RecordInput) shell.RecordInput {
	in := shell.RecordInput{
		Location:  body.Location,
		VisitDate: body.VisitDate,
		Feelings:  body.Feelings,
	}
	if body.Latitude != nil {
		in.Latitude = *body.Latitude
	}
	if body.Longitude != nil {
		in.Longitude = *body.Longitude
	}
	return in
}

func recordToResponse(r domain.TravelRecord) gen.Record {
	return gen.Record{
		Id:        r.ID,
		Location:  r.Location,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		VisitDate: openapi_types.Date{Time: r.VisitDate},
		Feelings:  r.Feelings,
		CreatedAt: r.CreatedAt,
	}
}

// recordsToResponse always returns a non-nil slice so the body is [] rather
// than null.
func recordsToResponse(records []domain.TravelRecord) []gen.Record {
	out := make([]gen.Record, len(records))
	for i, r := range records {
		out[i] = recordToResponse(r)
	}
	return out
}
