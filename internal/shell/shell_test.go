package shell_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/mapview/scene"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/shell"
	"github.com/pkordes/travel-journal/internal/sidebar"
	"github.com/pkordes/travel-journal/internal/storage"
	"github.com/pkordes/travel-journal/testutil"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// ---- helpers ----

type fixture struct {
	shell *shell.Shell
	repo  repo.RecordRepo
}

// newFixture builds a mounted shell with a ready map over a memory store
// seeded with seed.
func newFixture(t *testing.T, seed ...domain.TravelRecord) fixture {
	t.Helper()
	ctx := context.Background()
	adapter, _ := testutil.NewMemoryAdapter(t)
	r := repo.NewRecordRepo(adapter, "")
	if len(seed) > 0 {
		r.Save(ctx, seed)
	}

	n := 0
	s := shell.New(service.NewRecordService(r, testutil.DiscardLogger(), nil), shell.Options{
		Map: mapview.Options{MaxAttempts: 1, Interval: time.Millisecond},
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("record-%d", n)
		},
	}, testutil.DiscardLogger(), nil)
	s.Mount(ctx)
	require.NoError(t, s.StartMap(ctx, scene.NewLoader(scene.Config{})))
	t.Cleanup(s.Close)
	return fixture{shell: s, repo: r}
}

func sceneOf(t *testing.T, st shell.State) scene.Scene {
	t.Helper()
	sc, ok := st.Map.Scene.(scene.Scene)
	require.True(t, ok)
	return sc
}

func ids(records []domain.TravelRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// ---- lifecycle ----

func TestShell_Mount_LoadsPersisted(t *testing.T) {
	a := testutil.Record(t, "record-a", "2024-01-01")
	f := newFixture(t, a)

	st := f.shell.State()

	assert.True(t, st.Mounted)
	assert.Equal(t, []domain.TravelRecord{a}, st.Records)
	assert.Equal(t, mapview.StatusReady, st.Map.Status)
	assert.Len(t, sceneOf(t, st).Markers, 1)
}

func TestShell_OverlayHiddenBeforeMount(t *testing.T) {
	adapter, _ := testutil.NewMemoryAdapter(t)
	s := shell.New(service.NewRecordService(repo.NewRecordRepo(adapter, ""), testutil.DiscardLogger(), nil),
		shell.Options{Map: mapview.Options{MaxAttempts: 1, Interval: time.Millisecond}}, testutil.DiscardLogger(), nil)
	require.NoError(t, s.StartMap(context.Background(), scene.NewLoader(scene.Config{})))
	defer s.Close()

	require.NoError(t, s.ClickMap(1, 2))
	assert.Nil(t, s.State().Overlay)

	s.Mount(context.Background())
	assert.NotNil(t, s.State().Overlay)
}

func TestShell_MapFailureKeepsSidebarAndEditorWorking(t *testing.T) {
	adapter, _ := testutil.NewMemoryAdapter(t)
	s := shell.New(service.NewRecordService(repo.NewRecordRepo(adapter, ""), testutil.DiscardLogger(), nil),
		shell.Options{Map: mapview.Options{MaxAttempts: 2, Interval: time.Millisecond}}, testutil.DiscardLogger(), nil)
	s.Mount(context.Background())
	never := mapview.LoaderFunc(func(context.Context) (mapview.Library, error) { return nil, mapview.ErrNotLoaded })

	err := s.StartMap(context.Background(), never)

	require.ErrorIs(t, err, mapview.ErrNotLoaded)
	st := s.State()
	assert.Equal(t, mapview.StatusFailed, st.Map.Status)
	assert.Equal(t, "Could not load the map after 2 attempts", st.Map.Error)
	assert.ErrorIs(t, s.ClickMap(1, 2), shell.ErrMapNotReady)

	_, err = s.CreateRecord(context.Background(), shell.RecordInput{Location: "Oslo", VisitDate: "2024-01-01", Feelings: "Cold"})
	require.NoError(t, err)
	assert.Len(t, s.State().Sidebar.Rows, 1)
}

// ---- scenarios ----

// TestShell_AddFromMapClick covers: empty collection, click the map, submit
// the form, exactly one record with the typed values.
func TestShell_AddFromMapClick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.shell.ClickMap(35.0, 139.0))

	st := f.shell.State()
	require.NotNil(t, st.Overlay)
	assert.Equal(t, editor.ModeCreate, st.Overlay.Mode)
	assert.Equal(t, 35.0, st.Overlay.Latitude)
	assert.Equal(t, 139.0, st.Overlay.Longitude)
	assert.Equal(t, "2024-05-01", st.Overlay.Fields.VisitDate)
	require.NotNil(t, st.Clicked)
	assert.Equal(t, mapview.LatLng{Lat: 35, Lng: 139}, *st.Clicked)

	err := f.shell.SubmitEditor(ctx, editor.Fields{Location: "Tokyo", VisitDate: "2024-05-01", Feelings: "Great trip"})
	require.NoError(t, err)

	st = f.shell.State()
	require.Len(t, st.Records, 1)
	r := st.Records[0]
	assert.Equal(t, "record-1", r.ID)
	assert.Equal(t, "Tokyo", r.Location)
	assert.Equal(t, "Great trip", r.Feelings)
	assert.Equal(t, 35.0, r.Latitude)
	assert.Equal(t, 139.0, r.Longitude)
	assert.Equal(t, "2024-05-01", r.VisitDate.Format(domain.DateLayout))
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Nil(t, st.Overlay)
	assert.Nil(t, st.Clicked)
	assert.Len(t, sceneOf(t, st).Markers, 1)

	assert.Equal(t, st.Records, f.repo.Load(ctx), "every mutation is persisted")
}

func TestShell_SubmitBlankKeepsModalOpen(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shell.ClickMap(1, 2))

	err := f.shell.SubmitEditor(context.Background(), editor.Fields{Location: "  ", VisitDate: "2024-05-01", Feelings: "x"})

	require.ErrorIs(t, err, domain.ErrValidation)
	st := f.shell.State()
	assert.Empty(t, st.Records)
	require.NotNil(t, st.Overlay)
	assert.Equal(t, editor.MsgRequired, st.Overlay.Message)
}

// TestShell_PopupEditPreservesIdentity covers: click a marker, the popup
// shows the record, popup Edit opens the pre-filled editor, and the update
// keeps id and coordinates.
func TestShell_PopupEditPreservesIdentity(t *testing.T) {
	a := testutil.Record(t, "record-a", "2024-03-10")
	f := newFixture(t, a)
	ctx := context.Background()
	require.NoError(t, f.shell.SelectRecord("record-a"))

	layer := sceneOf(t, f.shell.State()).Markers[0].LayerID
	require.NoError(t, f.shell.ClickLayer(layer))

	st := f.shell.State()
	assert.Equal(t, "record-a", st.SelectedID)
	popup := sceneOf(t, st).Popup
	require.NotNil(t, popup)
	assert.Equal(t, mapview.PopupContent{RecordID: "record-a", Location: a.Location, Date: "Mar 10, 2024", Feelings: a.Feelings}, popup.Content)

	f.shell.PopupEdit()

	st = f.shell.State()
	assert.Nil(t, sceneOf(t, st).Popup)
	require.NotNil(t, st.Overlay)
	assert.Equal(t, editor.ModeEdit, st.Overlay.Mode)
	assert.Equal(t, editor.Fields{Location: a.Location, VisitDate: "2024-03-10", Feelings: a.Feelings}, st.Overlay.Fields)

	require.NoError(t, f.shell.SubmitEditor(ctx, editor.Fields{Location: "Nara", VisitDate: "2024-03-11", Feelings: "Deer"}))

	got, err := f.shell.Record("record-a")
	require.NoError(t, err)
	assert.Equal(t, "Nara", got.Location)
	assert.Equal(t, "Deer", got.Feelings)
	assert.Equal(t, a.Latitude, got.Latitude)
	assert.Equal(t, a.Longitude, got.Longitude)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	assert.Len(t, f.shell.State().Records, 1)
}

func TestShell_PopupDeleteOnlyClosesPopup(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-03-10"))
	require.NoError(t, f.shell.ClickMarker("record-a"))
	require.NotNil(t, sceneOf(t, f.shell.State()).Popup)

	f.shell.PopupDelete()

	st := f.shell.State()
	assert.Nil(t, sceneOf(t, st).Popup)
	assert.Len(t, st.Records, 1)
}

func TestShell_ClosePopup(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-03-10"))
	require.NoError(t, f.shell.ClickMarker("record-a"))

	f.shell.ClosePopup()

	assert.Nil(t, sceneOf(t, f.shell.State()).Popup)
}

func TestShell_ClickUnknownLayer(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.shell.ClickLayer("layer-404"), domain.ErrNotFound)
	assert.ErrorIs(t, f.shell.ClickMarker("record-404"), domain.ErrNotFound)
}

// TestShell_TimelineKeepsInsertionOrder covers two records in March 2024
// grouped together in insertion order, not by day.
func TestShell_TimelineKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t,
		testutil.Record(t, "record-10", "2024-03-10"),
		testutil.Record(t, "record-02", "2024-03-02"),
	)

	require.NoError(t, f.shell.SetSidebarMode("timeline"))

	v := f.shell.State().Sidebar
	assert.Equal(t, sidebar.ModeTimeline, v.Mode)
	require.Len(t, v.Groups, 1)
	assert.Equal(t, "March 2024", v.Groups[0].Label)
	require.Len(t, v.Groups[0].Rows, 2)
	assert.Equal(t, "record-10", v.Groups[0].Rows[0].ID)
	assert.Equal(t, "record-02", v.Groups[0].Rows[1].ID)
}

func TestShell_SetSidebarMode_Invalid(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.shell.SetSidebarMode("grid"), domain.ErrValidation)
	assert.Equal(t, sidebar.ModeList, f.shell.State().Sidebar.Mode)
}

// TestShell_DeleteSelected covers deleting the selected record: selection
// becomes none and nothing stays highlighted.
func TestShell_DeleteSelected(t *testing.T) {
	f := newFixture(t,
		testutil.Record(t, "record-a", "2024-01-01"),
		testutil.Record(t, "record-b", "2024-02-01"),
	)
	require.NoError(t, f.shell.SelectRecord("record-b"))
	sc := sceneOf(t, f.shell.State())
	assert.Equal(t, mapview.SelectedRadius, sc.Markers[1].Style.Radius)

	f.shell.DeleteRecord(context.Background(), "record-b")

	st := f.shell.State()
	assert.Empty(t, st.SelectedID)
	assert.Equal(t, []string{"record-a"}, ids(st.Records))
	for _, row := range st.Sidebar.Rows {
		assert.False(t, row.Selected)
	}
	for _, m := range sceneOf(t, st).Markers {
		assert.Equal(t, mapview.MarkerColor, m.Style.FillColor)
	}
}

func TestShell_DeleteMissingIsNoOp(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-01-01"))

	f.shell.DeleteRecord(context.Background(), "record-404")

	assert.Len(t, f.shell.State().Records, 1)
}

func TestShell_UpdateAfterDeleteIsDropped(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-01-01"))
	ctx := context.Background()
	require.NoError(t, f.shell.EditRecord("record-a"))
	f.shell.DeleteRecord(ctx, "record-a")

	err := f.shell.SubmitEditor(ctx, editor.Fields{Location: "X", VisitDate: "2024-01-02", Feelings: "Y"})

	require.NoError(t, err)
	st := f.shell.State()
	assert.Empty(t, st.Records)
	assert.Nil(t, st.Overlay)
}

func TestShell_EditRecord_NotFound(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.shell.EditRecord("record-404"), domain.ErrNotFound)
	assert.Nil(t, f.shell.State().Overlay)
}

func TestShell_SelectAndClear(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-01-01"))

	require.NoError(t, f.shell.SelectRecord("record-a"))
	assert.True(t, f.shell.State().Sidebar.Rows[0].Selected)
	assert.ErrorIs(t, f.shell.SelectRecord("record-404"), domain.ErrNotFound)
	assert.Equal(t, "record-a", f.shell.State().SelectedID, "failed select keeps the selection")

	f.shell.ClearSelection()
	assert.Empty(t, f.shell.State().SelectedID)
}

func TestShell_CancelEditor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.shell.ClickMap(1, 2))

	f.shell.CancelEditor()

	st := f.shell.State()
	assert.Nil(t, st.Overlay)
	assert.Nil(t, st.Clicked)
	assert.Empty(t, st.Records)
}

func TestShell_ClickMap_RejectsNaN(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.shell.ClickMap(math.NaN(), 1), domain.ErrValidation)
}

// ---- REST ----

func TestShell_CreateRecord(t *testing.T) {
	f := newFixture(t)

	r, err := f.shell.CreateRecord(context.Background(), shell.RecordInput{
		Location: " Lima ", Latitude: -12.05, Longitude: -77.04, VisitDate: "2023-11-02", Feelings: "Ceviche ",
	})

	require.NoError(t, err)
	assert.Equal(t, "record-1", r.ID)
	assert.Equal(t, "Lima", r.Location)
	assert.Equal(t, "Ceviche", r.Feelings)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Equal(t, []domain.TravelRecord{r}, f.shell.Records(context.Background()))
}

func TestShell_CreateRecord_Validation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]shell.RecordInput{
		"blank feelings": {Location: "A", VisitDate: "2024-01-01"},
		"bad date":       {Location: "A", VisitDate: "01/02/2024", Feelings: "x"},
		"latitude":       {Location: "A", Latitude: 91, VisitDate: "2024-01-01", Feelings: "x"},
		"longitude":      {Location: "A", Longitude: -181, VisitDate: "2024-01-01", Feelings: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.shell.CreateRecord(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Empty(t, f.shell.State().Records)
}

func TestShell_ReplaceRecord(t *testing.T) {
	a := testutil.Record(t, "record-a", "2024-01-01")
	f := newFixture(t, a)
	ctx := context.Background()

	got, err := f.shell.ReplaceRecord(ctx, "record-a", shell.RecordInput{
		Location: "Porto", Latitude: 1, Longitude: 1, VisitDate: "2024-06-06", Feelings: "Wine",
	})

	require.NoError(t, err)
	assert.Equal(t, "Porto", got.Location)
	assert.Equal(t, a.Latitude, got.Latitude, "coordinates are fixed at creation")
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	_, err = f.shell.ReplaceRecord(ctx, "record-404", shell.RecordInput{Location: "x", VisitDate: "2024-01-01", Feelings: "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestShell_RemoveRecord(t *testing.T) {
	f := newFixture(t, testutil.Record(t, "record-a", "2024-01-01"))
	ctx := context.Background()

	require.NoError(t, f.shell.RemoveRecord(ctx, "record-a"))
	assert.ErrorIs(t, f.shell.RemoveRecord(ctx, "record-a"), domain.ErrNotFound)
	assert.Empty(t, f.repo.Load(ctx))
}

// TestShell_AddDeleteRoundTrip checks that add then delete of the same id
// restores the prior collection exactly.
func TestShell_AddDeleteRoundTrip(t *testing.T) {
	f := newFixture(t,
		testutil.Record(t, "record-a", "2024-01-01"),
		testutil.Record(t, "record-b", "2024-02-01"),
	)
	ctx := context.Background()
	before := f.shell.Records(ctx)

	r, err := f.shell.CreateRecord(ctx, shell.RecordInput{Location: "A", VisitDate: "2024-01-01", Feelings: "x"})
	require.NoError(t, err)
	f.shell.DeleteRecord(ctx, r.ID)

	assert.Equal(t, before, f.shell.Records(ctx))
}

func TestShell_PersistenceUnmountedFallsBack(t *testing.T) {
	adapter := storage.NewAdapter(storage.NewMemoryBackend(), testutil.DiscardLogger(), nil)
	s := shell.New(service.NewRecordService(repo.NewRecordRepo(adapter, ""), testutil.DiscardLogger(), nil),
		shell.Options{}, testutil.DiscardLogger(), nil)
	s.Mount(context.Background())

	_, err := s.CreateRecord(context.Background(), shell.RecordInput{Location: "A", VisitDate: "2024-01-01", Feelings: "x"})

	require.NoError(t, err, "storage failures are never surfaced")
	assert.Len(t, s.State().Records, 1)
}
