package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/mapview/scene"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/shell"
	"github.com/pkordes/travel-journal/testutil"
)

// ---- helpers ---------------------------------------------------------------

type app struct {
	h     http.Handler
	shell *shell.Shell
}

// newApp wires a real shell over an in-memory store. The map is started
// unless startMap is false.
func newApp(t *testing.T, startMap bool, seed ...domain.TravelRecord) app {
	t.Helper()
	ctx := context.Background()
	adapter, _ := testutil.NewMemoryAdapter(t)
	r := repo.NewRecordRepo(adapter, "")
	if len(seed) > 0 {
		r.Save(ctx, seed)
	}
	sh := shell.New(service.NewRecordService(r, testutil.DiscardLogger(), nil), shell.Options{
		Map: mapview.Options{MaxAttempts: 1, Interval: time.Millisecond},
		Now: func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
	}, testutil.DiscardLogger(), nil)
	sh.Mount(ctx)
	if startMap {
		require.NoError(t, sh.StartMap(ctx, scene.NewLoader(scene.Config{})))
	}
	t.Cleanup(sh.Close)

	srv := handler.NewServer(sh, sh, service.NewExportService(sh), testutil.DiscardLogger())
	return app{h: newRouter(srv), shell: sh}
}

// postForm sends a form-encoded event as a plain HTML form would.
func (a app) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

// postJSON sends the same event the way the page script does.
func (a app) postJSON(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func (a app) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) handler.StateResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st handler.StateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return st
}

func assertRedirectHome(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func firstLayer(t *testing.T, a app) string {
	t.Helper()
	sc, ok := a.shell.State().Map.Scene.(scene.Scene)
	require.True(t, ok)
	require.NotEmpty(t, sc.Markers)
	return string(sc.Markers[0].LayerID)
}

// ---- page ------------------------------------------------------------------

func TestGetPage_Empty(t *testing.T) {
	a := newApp(t, true)

	rec := a.get(t, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Travel Log")
	assert.Contains(t, body, "No travel records yet.")
	assert.Contains(t, body, "Click on the map to add one!")
	assert.Contains(t, body, "0 records")
	assert.Contains(t, body, `id="overlay-root"`)
	assert.NotContains(t, body, "Add Travel Record")
	assert.Contains(t, body, `id="journal-state"`)
}

func TestGetPage_MapFailed(t *testing.T) {
	a := newApp(t, false)
	never := mapview.LoaderFunc(func(context.Context) (mapview.Library, error) { return nil, mapview.ErrNotLoaded })
	require.Error(t, a.shell.StartMap(context.Background(), never))

	body := a.get(t, "/").Body.String()

	assert.Contains(t, body, "Could not load the map after 1 attempts")
	assert.Contains(t, body, "Please refresh the page and try again")
	assert.Contains(t, body, "My Records", "sidebar still renders")
}

func TestGetPage_OverlayAndRows(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))
	require.NoError(t, a.shell.ClickMap(35, 139))

	body := a.get(t, "/").Body.String()

	overlay := body[strings.Index(body, `id="overlay-root"`):]
	assert.Contains(t, overlay, "Add Travel Record")
	assert.Contains(t, overlay, "Lat: 35.0000, Lng: 139.0000")
	assert.Contains(t, overlay, `value="2024-05-01"`)
	assert.Contains(t, body, "Location record-a")
	assert.Contains(t, body, "Mar 10, 2024")
	assert.Contains(t, body, "1 record<")
}

func TestGetPage_TimelineGroups(t *testing.T) {
	a := newApp(t, true,
		testutil.Record(t, "record-10", "2024-03-10"),
		testutil.Record(t, "record-02", "2024-03-02"),
	)
	require.NoError(t, a.shell.SetSidebarMode("timeline"))

	body := a.get(t, "/").Body.String()

	assert.Contains(t, body, "March 2024")
	assert.Less(t, strings.Index(body, "Location record-10"), strings.Index(body, "Location record-02"))
}

func TestGetState(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.get(t, "/state"))

	assert.True(t, st.Mounted)
	require.Len(t, st.Records, 1)
	assert.Nil(t, st.SelectedID)
	assert.Nil(t, st.Overlay)
	assert.Equal(t, "list", st.Sidebar.Mode)
	assert.Equal(t, "1 record", st.Sidebar.CountLabel)
	assert.Equal(t, mapview.StatusReady, st.Map.Status)
	assert.NotNil(t, st.Map.Scene)
}

// ---- map events ------------------------------------------------------------

func TestPostMapClick_FormRedirects(t *testing.T) {
	a := newApp(t, true)

	rec := a.postForm(t, "/map/click", url.Values{"lat": {"35"}, "lng": {"139"}})

	assertRedirectHome(t, rec)
	assert.NotNil(t, a.shell.State().Overlay)
}

func TestPostMapClick_JSON(t *testing.T) {
	a := newApp(t, true)

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/map/click", url.Values{"lat": {"35"}, "lng": {"139"}}))

	require.NotNil(t, st.Overlay)
	assert.Equal(t, "create", st.Overlay.Mode)
	assert.Equal(t, "Add Record", st.Overlay.SubmitLabel)
	assert.Equal(t, 35.0, st.Overlay.Latitude)
}

func TestPostMapClick_BadCoordinates_400(t *testing.T) {
	a := newApp(t, true)

	rec := a.postJSON(t, http.MethodPost, "/map/click", url.Values{"lat": {"north"}, "lng": {"139"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertErrorCode(t, rec, "bad_request")
}

func TestPostMapClick_MapNotReady_503(t *testing.T) {
	a := newApp(t, false)

	rec := a.postJSON(t, http.MethodPost, "/map/click", url.Values{"lat": {"1"}, "lng": {"2"}})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assertErrorCode(t, rec, "map_not_ready")
}

func TestMarkerPopupFlow(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/map/layers/"+firstLayer(t, a)+"/click", nil))
	require.NotNil(t, st.SelectedID)
	assert.Equal(t, "record-a", *st.SelectedID)
	assert.Equal(t, "record-a", st.Map.PopupRecordID)

	st = decodeState(t, a.postJSON(t, http.MethodPost, "/map/popup/edit", nil))
	assert.Empty(t, st.Map.PopupRecordID)
	require.NotNil(t, st.Overlay)
	assert.Equal(t, "edit", st.Overlay.Mode)
	assert.Equal(t, "record-a", st.Overlay.RecordID)
	assert.Equal(t, "Edit Travel Record", st.Overlay.Title)
}

func TestPostMarkerClick(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/map/markers/record-a/click", nil))
	assert.Equal(t, "record-a", st.Map.PopupRecordID)

	rec := a.postJSON(t, http.MethodPost, "/map/markers/record-404/click", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostPopupDelete_KeepsRecord(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))
	require.NoError(t, a.shell.ClickMarker("record-a"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/map/popup/delete", nil))

	assert.Empty(t, st.Map.PopupRecordID)
	assert.Len(t, st.Records, 1)
}

func TestPostPopupClose(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))
	require.NoError(t, a.shell.ClickMarker("record-a"))

	assertRedirectHome(t, a.postForm(t, "/map/popup/close", nil))
	assert.Empty(t, a.shell.State().Map.PopupRecordID)
}

func TestPostLayerClick_Unknown(t *testing.T) {
	a := newApp(t, true)

	assert.Equal(t, http.StatusNotFound, a.postJSON(t, http.MethodPost, "/map/layers/layer-404/click", nil).Code)
	assertRedirectHome(t, a.postForm(t, "/map/layers/layer-404/click", nil))
}

// ---- editor events ---------------------------------------------------------

func TestEditorSubmit_CreatesRecord(t *testing.T) {
	a := newApp(t, true)
	require.NoError(t, a.shell.ClickMap(35, 139))

	rec := a.postForm(t, "/editor/submit", url.Values{
		"location": {"Tokyo"}, "visitDate": {"2024-05-01"}, "feelings": {"Great trip"},
	})

	assertRedirectHome(t, rec)
	st := a.shell.State()
	require.Len(t, st.Records, 1)
	assert.Equal(t, "Tokyo", st.Records[0].Location)
	assert.Nil(t, st.Overlay)
}

func TestEditorSubmit_Blank_JSON422(t *testing.T) {
	a := newApp(t, true)
	require.NoError(t, a.shell.ClickMap(35, 139))

	rec := a.postJSON(t, http.MethodPost, "/editor/submit", url.Values{
		"location": {" "}, "visitDate": {"2024-05-01"}, "feelings": {"x"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body gen.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Please fill in all fields", body.Error.Message)
	assert.NotNil(t, a.shell.State().Overlay, "modal stays open")
}

func TestEditorSubmit_Blank_FormShowsMessage(t *testing.T) {
	a := newApp(t, true)
	require.NoError(t, a.shell.ClickMap(35, 139))

	rec := a.postForm(t, "/editor/submit", url.Values{"location": {"Tokyo"}, "visitDate": {"2024-05-01"}})

	assertRedirectHome(t, rec)
	body := a.get(t, "/").Body.String()
	assert.Contains(t, body, "Please fill in all fields")
	assert.Contains(t, body, `value="Tokyo"`)
	assert.Empty(t, a.shell.State().Records)
}

func TestEditorCancel(t *testing.T) {
	a := newApp(t, true)
	require.NoError(t, a.shell.ClickMap(35, 139))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/editor/cancel", nil))

	assert.Nil(t, st.Overlay)
}

// ---- sidebar events --------------------------------------------------------

func TestSidebarMode(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/sidebar/mode", url.Values{"mode": {"timeline"}}))
	assert.Equal(t, "timeline", st.Sidebar.Mode)
	require.Len(t, st.Sidebar.Groups, 1)
	assert.Equal(t, "March 2024", st.Sidebar.Groups[0].Label)

	rec := a.postJSON(t, http.MethodPost, "/sidebar/mode", url.Values{"mode": {"grid"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSelection(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/selection/record-a", nil))
	require.NotNil(t, st.SelectedID)
	assert.True(t, st.Sidebar.Rows[0].Selected)

	assert.Equal(t, http.StatusNotFound, a.postJSON(t, http.MethodPost, "/selection/record-404", nil).Code)

	st = decodeState(t, a.postJSON(t, http.MethodDelete, "/selection", nil))
	assert.Nil(t, st.SelectedID)
}

func TestRecordEditAndDelete(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	st := decodeState(t, a.postJSON(t, http.MethodPost, "/records/record-a/edit", nil))
	require.NotNil(t, st.Overlay)
	assert.Equal(t, "Location record-a", st.Overlay.Location)

	st = decodeState(t, a.postJSON(t, http.MethodPost, "/records/record-a/delete", nil))
	assert.Empty(t, st.Records)

	assertRedirectHome(t, a.postForm(t, "/records/record-a/delete", nil))
}

// ---- export through the shell ----------------------------------------------

func TestExport_ThroughShell(t *testing.T) {
	a := newApp(t, true, testutil.Record(t, "record-a", "2024-03-10"))

	rec := a.get(t, "/export?format=csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "record-a,Location record-a,35,139,2024-03-10,Feelings about record-a,2024-01-01T12:00:00.000Z")
}

// ---- body limits -----------------------------------------------------------

func TestPostForm_Malformed_400(t *testing.T) {
	a := newApp(t, true)
	req := httptest.NewRequest(http.MethodPost, "/sidebar/mode", strings.NewReader("mode=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	a.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
