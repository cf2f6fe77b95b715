package handler

import (
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/shell"
	"github.com/pkordes/travel-journal/internal/sidebar"
)

// StateResponse is the body of GET /state and of JSON event responses.
type StateResponse struct {
	Mounted    bool             `json:"mounted"`
	Records    []gen.Record     `json:"records"`
	SelectedID *string          `json:"selectedId"`
	Sidebar    SidebarResponse  `json:"sidebar"`
	Map        mapview.State    `json:"map"`
	Overlay    *OverlayResponse `json:"overlay"`
}

// SidebarResponse mirrors sidebar.View.
type SidebarResponse struct {
	Mode       string          `json:"mode"`
	Empty      bool            `json:"empty"`
	Count      int             `json:"count"`
	CountLabel string          `json:"countLabel"`
	Rows       []RowResponse   `json:"rows,omitempty"`
	Groups     []GroupResponse `json:"groups,omitempty"`
}

// RowResponse is one sidebar row.
type RowResponse struct {
	ID        string `json:"id"`
	Location  string `json:"location"`
	VisitDate string `json:"visitDate"`
	Date      string `json:"date"`
	Preview   string `json:"preview"`
	Selected  bool   `json:"selected"`
}

// GroupResponse is one timeline month.
type GroupResponse struct {
	Label string        `json:"label"`
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Rows  []RowResponse `json:"rows"`
}

// OverlayResponse is the open editor modal.
type OverlayResponse struct {
	Mode        string  `json:"mode"`
	Title       string  `json:"title"`
	SubmitLabel string  `json:"submitLabel"`
	Location    string  `json:"location"`
	VisitDate   string  `json:"visitDate"`
	Feelings    string  `json:"feelings"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RecordID    string  `json:"recordId,omitempty"`
	Message     string  `json:"message,omitempty"`
}

func stateToResponse(st shell.State) StateResponse {
	resp := StateResponse{
		Mounted: st.Mounted,
		Records: recordsToResponse(st.Records),
		Sidebar: sidebarToResponse(st.Sidebar),
		Map:     st.Map,
	}
	if st.SelectedID != "" {
		id := st.SelectedID
		resp.SelectedID = &id
	}
	if st.Overlay != nil {
		o := overlayToResponse(*st.Overlay)
		resp.Overlay = &o
	}
	return resp
}

func sidebarToResponse(v sidebar.View) SidebarResponse {
	resp := SidebarResponse{
		Mode:       string(v.Mode),
		Empty:      v.Empty,
		Count:      v.Count,
		CountLabel: v.CountLabel,
		Rows:       rowsToResponse(v.Rows),
	}
	for _, g := range v.Groups {
		resp.Groups = append(resp.Groups, GroupResponse{
			Label: g.Label,
			Year:  g.Year,
			Month: int(g.Month),
			Rows:  rowsToResponse(g.Rows),
		})
	}
	return resp
}

func rowsToResponse(rows []sidebar.Row) []RowResponse {
	if len(rows) == 0 {
		return nil
	}
	out := make([]RowResponse, len(rows))
	for i, r := range rows {
		out[i] = RowResponse{
			ID:        r.ID,
			Location:  r.Location,
			VisitDate: r.VisitDate,
			Date:      r.Date,
			Preview:   r.Preview,
			Selected:  r.Selected,
		}
	}
	return out
}

func overlayToResponse(v editor.View) OverlayResponse {
	return OverlayResponse{
		Mode:        v.Mode.String(),
		Title:       v.Title,
		SubmitLabel: v.SubmitLabel,
		Location:    v.Fields.Location,
		VisitDate:   v.Fields.VisitDate,
		Feelings:    v.Fields.Feelings,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		RecordID:    v.RecordID,
		Message:     v.Message,
	}
}
