// Package editor implements the modal form that creates or edits one travel
// record.
//
// An Editor is either closed, open in create mode (with coordinates fixed by
// the map click that opened it) or open in edit mode (bound to an existing
// record whose ID, coordinates and creation time are preserved). Every open
// resets the form, so values from a previous open never leak into the next.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Mode is the editor's current binding.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	}
	return "closed"
}

// Validation messages shown to the user.
const (
	MsgRequired    = "Please fill in all fields"
	MsgInvalidDate = "Visit date must be a valid date (YYYY-MM-DD)"
)

// Fields are the three user-entered values, exactly as typed.
type Fields struct {
	Location  string
	VisitDate string // "YYYY-MM-DD"
	Feelings  string
}

// Result is what a successful submit emits.
type Result struct {
	Mode   Mode
	Record domain.TravelRecord
}

// View is the render model of an open editor.
type View struct {
	Mode        Mode
	Title       string
	SubmitLabel string
	Fields      Fields
	Latitude    float64
	Longitude   float64
	RecordID    string // empty in create mode
	Message     string
}

// Editor holds the modal's form state.
type Editor struct {
	now   func() time.Time
	newID func() string

	mode    Mode
	fields  Fields
	lat     float64
	lng     float64
	base    domain.TravelRecord
	message string
}

// New constructs a closed Editor. now and newID may be nil, selecting
// time.Now and NewID.
func New(now func() time.Time, newID func() string) *Editor {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = NewID
	}
	return &Editor{now: now, newID: newID}
}

// NewID mints a record ID.
func NewID() string {
	return "record-" + uuid.NewString()
}

// OpenCreate opens a blank form for a new record at (lat, lng), with the
// visit date defaulting to today.
func (e *Editor) OpenCreate(lat, lng float64) {
	*e = Editor{now: e.now, newID: e.newID}
	e.mode = ModeCreate
	e.lat, e.lng = lat, lng
	e.fields = Fields{VisitDate: e.now().Format(domain.DateLayout)}
}

// OpenEdit opens the form pre-filled with record's values.
func (e *Editor) OpenEdit(record domain.TravelRecord) {
	*e = Editor{now: e.now, newID: e.newID}
	e.mode = ModeEdit
	e.base = record
	e.lat, e.lng = record.Latitude, record.Longitude
	e.fields = Fields{
		Location:  record.Location,
		VisitDate: record.VisitDate.Format(domain.DateLayout),
		Feelings:  record.Feelings,
	}
}

// Mode returns the current binding.
func (e *Editor) Mode() Mode { return e.mode }

// IsOpen reports whether the modal is showing.
func (e *Editor) IsOpen() bool { return e.mode != ModeClosed }

// EditingID returns the ID of the record being edited, or "".
func (e *Editor) EditingID() string {
	if e.mode != ModeEdit {
		return ""
	}
	return e.base.ID
}

// Submit validates f. On failure the editor stays open, keeps f and shows the
// validation message; the returned error wraps domain.ErrValidation. On
// success the editor closes and returns the record to store.
func (e *Editor) Submit(f Fields) (Result, error) {
	if e.mode == ModeClosed {
		return Result{}, errors.New("editor.Editor.Submit: editor is closed")
	}

	e.fields = f
	visit, err := Validate(f)
	if err != nil {
		e.message = Message(err)
		return Result{}, err
	}

	res := Result{Mode: e.mode}
	switch e.mode {
	case ModeCreate:
		res.Record = domain.TravelRecord{
			ID:        e.newID(),
			Latitude:  e.lat,
			Longitude: e.lng,
			CreatedAt: e.now().UTC(),
		}
	case ModeEdit:
		res.Record = e.base
	}
	res.Record.Location = strings.TrimSpace(f.Location)
	res.Record.VisitDate = visit
	res.Record.Feelings = strings.TrimSpace(f.Feelings)

	e.Close()
	return res, nil
}

// Cancel closes the modal without emitting anything. Escape and clicks
// outside the form are handled as Cancel.
func (e *Editor) Cancel() {
	e.Close()
}

// Close resets the editor to the closed state.
func (e *Editor) Close() {
	*e = Editor{now: e.now, newID: e.newID}
}

// View returns the render model, or false when closed.
func (e *Editor) View() (View, bool) {
	if e.mode == ModeClosed {
		return View{}, false
	}
	v := View{
		Mode:        e.mode,
		Title:       "Add Travel Record",
		SubmitLabel: "Add Record",
		Fields:      e.fields,
		Latitude:    e.lat,
		Longitude:   e.lng,
		Message:     e.message,
	}
	if e.mode == ModeEdit {
		v.Title = "Edit Travel Record"
		v.SubmitLabel = "Update Record"
		v.RecordID = e.base.ID
	}
	return v, true
}

// Validate applies the form rules: location and feelings must be non-blank
// after trimming and the visit date must be a valid "YYYY-MM-DD" date.
// It returns the parsed visit date.
func Validate(f Fields) (time.Time, error) {
	date := strings.TrimSpace(f.VisitDate)
	if strings.TrimSpace(f.Location) == "" || date == "" || strings.TrimSpace(f.Feelings) == "" {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrValidation, MsgRequired)
	}
	visit, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrValidation, MsgInvalidDate)
	}
	return visit, nil
}

// Message extracts the user-facing text from a (possibly wrapped) validation
// error, e.g. "shell.Shell.CreateRecord: validation error: Please fill in all
// fields" becomes "Please fill in all fields".
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
