package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/shell"
)

// Event endpoints take form values and answer in one of two ways: clients
// that accept application/json get the new state document (or an error
// envelope), everything else is sent back to the page with 303 See Other so
// plain HTML forms work.

// PostMapClick handles POST /map/click with form values lat and lng.
func (s *Server) PostMapClick(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	lat, errLat := strconv.ParseFloat(r.PostForm.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.PostForm.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		badRequest(w, "lat and lng must be numbers")
		return
	}
	s.respondEvent(w, r, s.ui.ClickMap(lat, lng))
}

// PostLayerClick handles POST /map/layers/{layerID}/click.
func (s *Server) PostLayerClick(w http.ResponseWriter, r *http.Request) {
	s.respondEvent(w, r, s.ui.ClickLayer(mapview.LayerID(chi.URLParam(r, "layerID"))))
}

// PostMarkerClick handles POST /map/markers/{id}/click.
func (s *Server) PostMarkerClick(w http.ResponseWriter, r *http.Request) {
	s.respondEvent(w, r, s.ui.ClickMarker(chi.URLParam(r, "id")))
}

// PostPopupEdit handles POST /map/popup/edit.
func (s *Server) PostPopupEdit(w http.ResponseWriter, r *http.Request) {
	s.ui.PopupEdit()
	s.respondEvent(w, r, nil)
}

// PostPopupDelete handles POST /map/popup/delete. It only closes the popup.
func (s *Server) PostPopupDelete(w http.ResponseWriter, r *http.Request) {
	s.ui.PopupDelete()
	s.respondEvent(w, r, nil)
}

// PostPopupClose handles POST /map/popup/close.
func (s *Server) PostPopupClose(w http.ResponseWriter, r *http.Request) {
	s.ui.ClosePopup()
	s.respondEvent(w, r, nil)
}

// PostSidebarMode handles POST /sidebar/mode with form value mode.
func (s *Server) PostSidebarMode(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	s.respondEvent(w, r, s.ui.SetSidebarMode(r.PostForm.Get("mode")))
}

// PostSelection handles POST /selection/{id}.
func (s *Server) PostSelection(w http.ResponseWriter, r *http.Request) {
	s.respondEvent(w, r, s.ui.SelectRecord(chi.URLParam(r, "id")))
}

// DeleteSelection handles DELETE /selection.
func (s *Server) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	s.ui.ClearSelection()
	s.respondEvent(w, r, nil)
}

// PostRecordEdit handles POST /records/{id}/edit.
func (s *Server) PostRecordEdit(w http.ResponseWriter, r *http.Request) {
	s.respondEvent(w, r, s.ui.EditRecord(chi.URLParam(r, "id")))
}

// PostRecordDelete handles POST /records/{id}/delete, the sidebar's delete
// control. A missing record is not an error.
func (s *Server) PostRecordDelete(w http.ResponseWriter, r *http.Request) {
	s.ui.DeleteRecord(r.Context(), chi.URLParam(r, "id"))
	s.respondEvent(w, r, nil)
}

// PostEditorSubmit handles POST /editor/submit with form values location,
// visitDate and feelings.
func (s *Server) PostEditorSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	err := s.ui.SubmitEditor(r.Context(), editor.Fields{
		Location:  r.PostForm.Get("location"),
		VisitDate: r.PostForm.Get("visitDate"),
		Feelings:  r.PostForm.Get("feelings"),
	})
	s.respondEvent(w, r, err)
}

// PostEditorCancel handles POST /editor/cancel.
func (s *Server) PostEditorCancel(w http.ResponseWriter, r *http.Request) {
	s.ui.CancelEditor()
	s.respondEvent(w, r, nil)
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateToResponse(s.ui.State()))
}

// respondEvent finishes an event request. Expected event failures (invalid
// form, unknown record, map not ready) are visible in the state the page
// re-renders, so form clients are redirected regardless.
func (s *Server) respondEvent(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		if err != nil {
			s.writeServiceError(w, r, err, "record")
			return
		}
		writeJSON(w, http.StatusOK, stateToResponse(s.ui.State()))
		return
	}

	if err != nil && !expectedEventError(err) {
		s.writeServiceError(w, r, err, "record")
		return
	}
	if err != nil {
		s.log.DebugContext(r.Context(), "event rejected", "path", r.URL.Path, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func expectedEventError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, shell.ErrMapNotReady)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// parseForm parses the request form, writing 400 (or 413) on failure.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseForm()
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
		return false
	}
	badRequest(w, "malformed form body")
	return false
}
