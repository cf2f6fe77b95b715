package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/metrics"
)

// Defaults for Options.
const (
	DefaultMaxAttempts = 20
	DefaultInterval    = 200 * time.Millisecond
	DefaultZoom        = 3
)

// DefaultCenter is the initial view of a new map.
var DefaultCenter = LatLng{Lat: 20, Lng: 100}

// ErrorHint is shown under the error panel when the map failed to load.
const ErrorHint = "Please refresh the page and try again"

// Options configures a View. Zero fields take the defaults above; a nil
// Center takes DefaultCenter, so (0,0) in the Gulf of Guinea is a valid
// choice.
type Options struct {
	Center      *LatLng
	Zoom        int
	MaxAttempts int
	Interval    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Center == nil {
		c := DefaultCenter
		o.Center = &c
	}
	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Handlers are the callbacks a View raises. They run while the View is
// busy with the triggering event and must not call back into the View.
type Handlers struct {
	OnMapClick func(lat, lng float64)
	OnSelect   func(id string)
	OnEdit     func(id string)
}

// State is a read-only description of the View.
type State struct {
	Status        Status `json:"status"`
	Attempts      int    `json:"attempts"`
	MaxAttempts   int    `json:"maxAttempts"`
	Error         string `json:"error,omitempty"`
	Hint          string `json:"hint,omitempty"`
	PopupRecordID string `json:"popupRecordId,omitempty"`
	Scene         any    `json:"scene,omitempty"`
}

// View owns one map instance and keeps its markers in sync with the
// collection. It is safe for concurrent use.
type View struct {
	opts     Options
	handlers Handlers
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu           sync.Mutex
	status       Status
	attempts     int
	initializing bool
	closed       bool
	errMsg       string

	lib           Library
	m             Map
	layers        map[string]LayerID // record ID -> marker
	records       []domain.TravelRecord
	selectedID    string
	popup         PopupID
	popupRecordID string
}

// New constructs a View in the waiting state.
func New(opts Options, h Handlers, log *slog.Logger, m *metrics.Metrics) *View {
	if log == nil {
		log = slog.Default()
	}
	return &View{
		opts:     opts.withDefaults(),
		handlers: h,
		log:      log,
		metrics:  m,
		status:   StatusWaiting,
	}
}

// Init obtains the mapping library through loader and creates the map.
// It polls loader at a fixed interval until it succeeds, returns an error
// other than ErrNotLoaded, or MaxAttempts is reached. A cancelled ctx leaves
// the View waiting. Init is a no-op while a map exists or another Init is
// running.
func (v *View) Init(ctx context.Context, loader Loader) error {
	v.mu.Lock()
	if v.m != nil || v.initializing || v.closed {
		v.mu.Unlock()
		return nil
	}
	v.initializing = true
	v.status = StatusWaiting
	v.attempts = 0
	v.errMsg = ""
	v.mu.Unlock()

	lib, err := v.load(ctx, loader)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.initializing = false

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fmt.Errorf("mapview.View.Init: %w", err)
		}
		v.fail(err)
		return fmt.Errorf("mapview.View.Init: %w", err)
	}
	if v.closed {
		return nil
	}

	m, err := lib.NewMap(*v.opts.Center, v.opts.Zoom)
	if err != nil {
		v.fail(err)
		return fmt.Errorf("mapview.View.Init: new map: %w", err)
	}
	v.lib = lib
	v.m = m
	m.OnClick(v.mapClicked)
	v.status = StatusReady
	v.rebuild()

	v.log.Info("map ready", "attempts", v.attempts)
	return nil
}

func (v *View) load(ctx context.Context, loader Loader) (Library, error) {
	b := retry.WithMaxRetries(uint64(v.opts.MaxAttempts-1), retry.NewConstant(v.opts.Interval))

	var lib Library
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v.mu.Lock()
		v.attempts++
		v.mu.Unlock()
		v.metrics.MapInitAttempt()

		l, err := loader.Load(ctx)
		if errors.Is(err, ErrNotLoaded) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		if l == nil {
			return retry.RetryableError(ErrNotLoaded)
		}
		lib = l
		return nil
	})
	return lib, err
}

// fail moves the View to its terminal failed state. Caller holds v.mu.
func (v *View) fail(err error) {
	v.status = StatusFailed
	if errors.Is(err, ErrNotLoaded) {
		v.errMsg = fmt.Sprintf("Could not load the map after %d attempts", v.opts.MaxAttempts)
	} else {
		v.errMsg = "Could not load the map: " + err.Error()
	}
	v.log.Error("map init failed", "attempts", v.attempts, "error", err)
}

// Status reports the lifecycle state.
func (v *View) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Render replaces every marker with one per record. The selected record is
// drawn larger in the accent color. Records passed before the map is ready
// are drawn as soon as it is.
func (v *View) Render(records []domain.TravelRecord, selectedID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = slices.Clone(records)
	v.selectedID = selectedID
	if v.m != nil {
		v.rebuild()
	}
}

// rebuild clears and re-adds all markers. Caller holds v.mu.
func (v *View) rebuild() {
	for _, id := range v.layers {
		v.m.RemoveLayer(id)
	}
	v.layers = make(map[string]LayerID, len(v.records))

	popupAlive := false
	for _, r := range v.records {
		r := r
		at := LatLng{Lat: r.Latitude, Lng: r.Longitude}
		v.layers[r.ID] = v.m.AddCircleMarker(at, StyleFor(r.ID == v.selectedID), func() {
			v.markerClicked(r)
		})
		if r.ID == v.popupRecordID {
			popupAlive = true
		}
	}
	if v.popup != "" && !popupAlive {
		v.closePopup()
	}
}

// Click delivers a background click. It reports false when no map is ready
// or the map handles its own pointer events.
func (v *View) Click(lat, lng float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.m.(Surface)
	if !ok {
		return false
	}
	return s.DispatchClick(LatLng{Lat: lat, Lng: lng})
}

// ClickLayer delivers a click on a map layer.
func (v *View) ClickLayer(id LayerID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.m.(Surface)
	if !ok {
		return false
	}
	return s.DispatchLayerClick(id)
}

// ClickMarker delivers a click on the marker of the given record.
func (v *View) ClickMarker(recordID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.m.(Surface)
	if !ok {
		return false
	}
	id, ok := v.layers[recordID]
	if !ok {
		return false
	}
	return s.DispatchLayerClick(id)
}

// PopupEdit raises OnEdit for the record in the open popup and closes it.
func (v *View) PopupEdit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.popup == "" {
		return false
	}
	id := v.popupRecordID
	if v.handlers.OnEdit != nil {
		v.handlers.OnEdit(id)
	}
	v.closePopup()
	return true
}

// PopupDelete closes the open popup. It does not delete the record; deletion
// is only offered from the sidebar.
func (v *View) PopupDelete() bool {
	return v.ClosePopup()
}

// ClosePopup closes the open popup, if any.
func (v *View) ClosePopup() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.popup == "" {
		return false
	}
	v.closePopup()
	return true
}

// Close releases the map. The View cannot be initialized again afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.m == nil {
		return
	}
	v.m.Remove()
	v.m = nil
	v.lib = nil
	v.layers = nil
	v.popup = ""
	v.popupRecordID = ""
	v.status = StatusWaiting
}

// Inspect returns the current State.
func (v *View) Inspect() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := State{
		Status:        v.status,
		Attempts:      v.attempts,
		MaxAttempts:   v.opts.MaxAttempts,
		Error:         v.errMsg,
		PopupRecordID: v.popupRecordID,
	}
	if v.status == StatusFailed {
		st.Hint = ErrorHint
	}
	if s, ok := v.m.(Snapshotter); ok {
		st.Scene = s.Snapshot()
	}
	return st
}

// The handlers below run from inside Surface dispatch, with v.mu held.

func (v *View) mapClicked(at LatLng) {
	if v.handlers.OnMapClick != nil {
		v.handlers.OnMapClick(at.Lat, at.Lng)
	}
}

func (v *View) markerClicked(r domain.TravelRecord) {
	if v.handlers.OnSelect != nil {
		v.handlers.OnSelect(r.ID)
	}
	if v.popup != "" {
		v.m.ClosePopup(v.popup)
	}
	v.popup = v.m.OpenPopup(LatLng{Lat: r.Latitude, Lng: r.Longitude}, PopupContent{
		RecordID: r.ID,
		Location: r.Location,
		Date:     r.VisitDate.Format("Jan 2, 2006"),
		Feelings: r.Feelings,
	})
	v.popupRecordID = r.ID
}

func (v *View) closePopup() {
	if v.m != nil {
		v.m.ClosePopup(v.popup)
	}
	v.popup = ""
	v.popupRecordID = ""
}
