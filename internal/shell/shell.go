// Package shell is the application state container. It owns the record
// collection, the editor modal, the map view and the sidebar mode, and
// applies every user event under one mutex so the server behaves as a single
// writer no matter how many requests arrive at once.
//
// Events flow in through the exported methods; the map view reports pointer
// events back through callbacks that only touch shell state. After every
// event the shell redraws the map markers from the collection.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/sidebar"
)

// ErrMapNotReady is returned by map events while the map is not drawn.
var ErrMapNotReady = errors.New("map not ready")

// Options configures a Shell. Now and NewID may be nil.
type Options struct {
	Map   mapview.Options
	Now   func() time.Time
	NewID func() string
}

// RecordInput is a record as supplied through the REST API.
type RecordInput struct {
	Location  string
	Latitude  float64
	Longitude float64
	VisitDate string // "YYYY-MM-DD"
	Feelings  string
}

// State is a read-only snapshot of everything the page renders.
type State struct {
	Mounted    bool
	Records    []domain.TravelRecord
	SelectedID string
	Sidebar    sidebar.View
	Map        mapview.State
	// Overlay is the open editor. Nil while closed or before Mount.
	Overlay *editor.View
	// Clicked holds the coordinates of the map click that opened the
	// create form.
	Clicked *mapview.LatLng
}

// Shell serializes all application events.
type Shell struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	records *service.RecordService
	editor  *editor.Editor
	view    *mapview.View
	mode    sidebar.Mode
	clicked *mapview.LatLng
	mounted bool
}

// New constructs a Shell over records. Call Mount before serving events.
func New(records *service.RecordService, opts Options, log *slog.Logger, m *metrics.Metrics) *Shell {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = editor.NewID
	}
	s := &Shell{
		log:     log,
		metrics: m,
		now:     opts.Now,
		newID:   opts.NewID,
		records: records,
		editor:  editor.New(opts.Now, opts.NewID),
		mode:    sidebar.ModeList,
	}
	s.view = mapview.New(opts.Map, mapview.Handlers{
		OnMapClick: s.mapClicked,
		OnSelect:   s.markerSelected,
		OnEdit:     s.popupEdit,
	}, log, m)
	return s
}

// Mount loads the persisted collection and enables the overlay layer.
func (s *Shell) Mount(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Load(ctx)
	s.mounted = true
	s.render()
}

// StartMap initializes the map view; see mapview.View.Init. It blocks until
// the map is ready, has failed or ctx is cancelled, and is meant to run in
// its own goroutine.
func (s *Shell) StartMap(ctx context.Context, loader mapview.Loader) error {
	if err := s.view.Init(ctx, loader); err != nil {
		return fmt.Errorf("shell.Shell.StartMap: %w", err)
	}
	return nil
}

// Close releases the map.
func (s *Shell) Close() {
	s.view.Close()
}

// ---- map events ----

// ClickMap handles a click on the map background: it remembers the
// coordinates and opens the editor in create mode.
func (s *Shell) ClickMap(lat, lng float64) error {
	if !finite(lat, lng) {
		return fmt.Errorf("shell.Shell.ClickMap: %w: coordinates must be finite", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.render()
	if !s.view.Click(lat, lng) {
		return fmt.Errorf("shell.Shell.ClickMap: %w", ErrMapNotReady)
	}
	return nil
}

// ClickLayer handles a click on a map layer.
func (s *Shell) ClickLayer(id mapview.LayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.render()
	if s.view.ClickLayer(id) {
		return nil
	}
	if s.view.Status() != mapview.StatusReady {
		return fmt.Errorf("shell.Shell.ClickLayer: %w", ErrMapNotReady)
	}
	return fmt.Errorf("shell.Shell.ClickLayer: layer %q: %w", id, domain.ErrNotFound)
}

// ClickMarker handles a click on the marker of a record.
func (s *Shell) ClickMarker(recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.render()
	if s.view.ClickMarker(recordID) {
		return nil
	}
	if s.view.Status() != mapview.StatusReady {
		return fmt.Errorf("shell.Shell.ClickMarker: %w", ErrMapNotReady)
	}
	return fmt.Errorf("shell.Shell.ClickMarker: record %q: %w", recordID, domain.ErrNotFound)
}

// PopupEdit opens the editor for the record in the open popup.
func (s *Shell) PopupEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PopupEdit()
	s.render()
}

// PopupDelete closes the open popup without deleting anything.
func (s *Shell) PopupDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PopupDelete()
}

// ClosePopup closes the open popup.
func (s *Shell) ClosePopup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ClosePopup()
}

// The callbacks below run inside a View dispatch, while the event method
// that triggered it holds s.mu.

func (s *Shell) mapClicked(lat, lng float64) {
	s.clicked = &mapview.LatLng{Lat: lat, Lng: lng}
	s.editor.OpenCreate(lat, lng)
}

func (s *Shell) markerSelected(id string) {
	if err := s.records.Select(id); err != nil {
		s.log.Debug("marker select ignored", "id", id, "error", err)
	}
}

func (s *Shell) popupEdit(id string) {
	if err := s.openEdit(id); err != nil {
		s.log.Debug("popup edit ignored", "id", id, "error", err)
	}
}

// ---- sidebar events ----

// SelectRecord points the selection at id.
func (s *Shell) SelectRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.Select(id); err != nil {
		return fmt.Errorf("shell.Shell.SelectRecord: %w", err)
	}
	s.render()
	return nil
}

// ClearSelection deselects.
func (s *Shell) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.ClearSelection()
	s.render()
}

// EditRecord opens the editor pre-filled with the record id.
func (s *Shell) EditRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openEdit(id); err != nil {
		return fmt.Errorf("shell.Shell.EditRecord: %w", err)
	}
	return nil
}

// DeleteRecord removes the record id. Deleting a record that does not exist
// is a no-op.
func (s *Shell) DeleteRecord(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.Delete(ctx, id); err != nil {
		s.log.DebugContext(ctx, "delete ignored", "id", id, "error", err)
		return
	}
	s.render()
}

// SetSidebarMode switches between the list and timeline views.
func (s *Shell) SetSidebarMode(mode string) error {
	m, err := sidebar.ParseMode(mode)
	if err != nil {
		return fmt.Errorf("shell.Shell.SetSidebarMode: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	return nil
}

// ---- editor events ----

// SubmitEditor validates fields and stores the result. On a validation
// error the modal stays open with the message and the error wraps
// domain.ErrValidation. An update whose record has meanwhile been deleted is
// dropped silently.
func (s *Shell) SubmitEditor(ctx context.Context, f editor.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.editor.Submit(f)
	if err != nil {
		return fmt.Errorf("shell.Shell.SubmitEditor: %w", err)
	}
	s.clicked = nil

	switch res.Mode {
	case editor.ModeCreate:
		if err := s.records.Add(ctx, res.Record); err != nil {
			return fmt.Errorf("shell.Shell.SubmitEditor: %w", err)
		}
	case editor.ModeEdit:
		if _, err := s.records.Update(ctx, res.Record); err != nil {
			s.log.DebugContext(ctx, "update ignored", "id", res.Record.ID, "error", err)
		}
	}
	s.render()
	return nil
}

// CancelEditor closes the modal without saving.
func (s *Shell) CancelEditor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.Cancel()
	s.clicked = nil
}

// ---- REST ----

// CreateRecord validates in and appends a new record with a fresh ID.
func (s *Shell) CreateRecord(ctx context.Context, in RecordInput) (domain.TravelRecord, error) {
	visit, err := validateInput(in)
	if err != nil {
		return domain.TravelRecord{}, fmt.Errorf("shell.Shell.CreateRecord: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := domain.TravelRecord{
		ID:        s.newID(),
		Location:  strings.TrimSpace(in.Location),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		VisitDate: visit,
		Feelings:  strings.TrimSpace(in.Feelings),
		CreatedAt: s.now().UTC(),
	}
	if err := s.records.Add(ctx, r); err != nil {
		return domain.TravelRecord{}, fmt.Errorf("shell.Shell.CreateRecord: %w", err)
	}
	s.render()
	return r, nil
}

// ReplaceRecord validates in and overwrites location, visit date and
// feelings of the record id. Coordinates in in are ignored: a record stays
// where it was created.
func (s *Shell) ReplaceRecord(ctx context.Context, id string, in RecordInput) (domain.TravelRecord, error) {
	visit, err := editor.Validate(in.fields())
	if err != nil {
		return domain.TravelRecord{}, fmt.Errorf("shell.Shell.ReplaceRecord: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.records.Update(ctx, domain.TravelRecord{
		ID:        id,
		Location:  strings.TrimSpace(in.Location),
		VisitDate: visit,
		Feelings:  strings.TrimSpace(in.Feelings),
	})
	if err != nil {
		return domain.TravelRecord{}, fmt.Errorf("shell.Shell.ReplaceRecord: %w", err)
	}
	s.render()
	return updated, nil
}

// RemoveRecord deletes the record id, reporting domain.ErrNotFound.
func (s *Shell) RemoveRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("shell.Shell.RemoveRecord: %w", err)
	}
	s.render()
	return nil
}

// Record returns the record id.
func (s *Shell) Record(id string) (domain.TravelRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.records.Get(id)
	if err != nil {
		return domain.TravelRecord{}, fmt.Errorf("shell.Shell.Record: %w", err)
	}
	return r, nil
}

// Records returns the collection in insertion order.
func (s *Shell) Records(_ context.Context) []domain.TravelRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Records()
}

// State returns a snapshot for rendering.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records.Records()
	st := State{
		Mounted:    s.mounted,
		Records:    records,
		SelectedID: s.records.SelectedID(),
		Sidebar:    sidebar.Build(records, s.records.SelectedID(), s.mode),
		Map:        s.view.Inspect(),
	}
	if s.clicked != nil {
		c := *s.clicked
		st.Clicked = &c
	}
	if v, ok := s.editor.View(); ok && s.mounted {
		st.Overlay = &v
	}
	return st
}

// ---- helpers (caller holds s.mu) ----

func (s *Shell) openEdit(id string) error {
	r, err := s.records.Get(id)
	if err != nil {
		return err
	}
	s.clicked = nil
	s.editor.OpenEdit(r)
	return nil
}

func (s *Shell) render() {
	s.view.Render(s.records.Records(), s.records.SelectedID())
}

func (in RecordInput) fields() editor.Fields {
	return editor.Fields{Location: in.Location, VisitDate: in.VisitDate, Feelings: in.Feelings}
}

func validateInput(in RecordInput) (time.Time, error) {
	visit, err := editor.Validate(in.fields())
	if err != nil {
		return time.Time{}, err
	}
	if !finite(in.Latitude, in.Longitude) || math.Abs(in.Latitude) > 90 || math.Abs(in.Longitude) > 180 {
		return time.Time{}, fmt.Errorf("%w: latitude must be within [-90, 90] and longitude within [-180, 180]", domain.ErrValidation)
	}
	return visit, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
