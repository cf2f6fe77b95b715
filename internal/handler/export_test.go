package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/service"
)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	export func(ctx context.Context) ([]service.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]service.ExportRow, error) {
	return m.export(ctx)
}

// compile-time check: mockExportServicer must satisfy handler.ExportServicer.
var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- helpers ---------------------------------------------------------------

func newExportHTTPHandler(svc handler.ExportServicer) http.Handler {
	return newRouter(handler.NewServer(nil, nil, svc, nil))
}

func exportRowFixture() service.ExportRow {
	return service.ExportRow{
		ID:        "record-1",
		Location:  "Kyoto, Japan",
		Latitude:  35.0116,
		Longitude: 135.7681,
		VisitDate: "2024-04-02",
		Feelings:  "Cherry blossoms, \"quiet\" temples",
		CreatedAt: "2024-04-03T08:00:00.000Z",
	}
}

func fixedRows(rows ...service.ExportRow) *mockExportServicer {
	return &mockExportServicer{
		export: func(context.Context) ([]service.ExportRow, error) { return rows, nil },
	}
}

// ---- JSON ------------------------------------------------------------------

func TestGetExport_JSON(t *testing.T) {
	h := newExportHTTPHandler(fixedRows(exportRowFixture()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body []gen.ExportRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "record-1", body[0].Id)
	assert.Equal(t, "2024-04-02", body[0].VisitDate)
	assert.Equal(t, 135.7681, body[0].Longitude)
}

func TestGetExport_JSON_EmptyIsArray(t *testing.T) {
	h := newExportHTTPHandler(fixedRows())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// ---- CSV -------------------------------------------------------------------

func TestGetExport_CSV(t *testing.T) {
	second := exportRowFixture()
	second.ID = "record-2"
	second.Feelings = "line one\nline two"
	h := newExportHTTPHandler(fixedRows(exportRowFixture(), second))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "location", "latitude", "longitude", "visit_date", "feelings", "created_at"}, records[0])
	assert.Equal(t, []string{
		"record-1", "Kyoto, Japan", "35.0116", "135.7681", "2024-04-02",
		"Cherry blossoms, \"quiet\" temples", "2024-04-03T08:00:00.000Z",
	}, records[1])
	assert.Equal(t, "line one\nline two", records[2][5], "embedded newlines survive quoting")
}

func TestGetExport_CSV_HeaderOnlyWhenEmpty(t *testing.T) {
	h := newExportHTTPHandler(fixedRows())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "id,location,latitude,longitude,visit_date,feelings,created_at\n", rec.Body.String())
}

// ---- errors ----------------------------------------------------------------

func TestGetExport_UnknownFormat_400(t *testing.T) {
	h := newExportHTTPHandler(fixedRows())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=xml", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertErrorCode(t, rec, "bad_request")
}

func TestGetExport_ExplicitJSON(t *testing.T) {
	h := newExportHTTPHandler(fixedRows(exportRowFixture()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestGetExport_ServiceError_500(t *testing.T) {
	h := newExportHTTPHandler(&mockExportServicer{
		export: func(context.Context) ([]service.ExportRow, error) { return nil, errors.New("boom") },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assertErrorCode(t, rec, "internal_error")
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var body gen.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, code, body.Error.Code)
}
