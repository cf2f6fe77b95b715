// Package handler implements the HTTP surface of the Travel Journal: the
// HTML page, the UI event endpoints the page posts to, and the JSON REST API.
// All handlers are methods on Server; routes are registered on a chi router
// by Routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/editor"
	"github.com/pkordes/travel-journal/internal/handler/gen"
	"github.com/pkordes/travel-journal/internal/mapview"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/shell"
)

// UIServicer is the event side of the application shell.
// Defining it here, in the consumer, lets handler tests inject a double.
type UIServicer interface {
	State() shell.State

	ClickMap(lat, lng float64) error
	ClickLayer(id mapview.LayerID) error
	ClickMarker(recordID string) error
	PopupEdit()
	PopupDelete()
	ClosePopup()

	SelectRecord(id string) error
	ClearSelection()
	EditRecord(id string) error
	DeleteRecord(ctx context.Context, id string)
	SetSidebarMode(mode string) error

	SubmitEditor(ctx context.Context, f editor.Fields) error
	CancelEditor()
}

// RecordServicer is the REST side of the collection.
type RecordServicer interface {
	Records(ctx context.Context) []domain.TravelRecord
	Record(id string) (domain.TravelRecord, error)
	CreateRecord(ctx context.Context, in shell.RecordInput) (domain.TravelRecord, error)
	ReplaceRecord(ctx context.Context, id string, in shell.RecordInput) (domain.TravelRecord, error)
	RemoveRecord(ctx context.Context, id string) error
}

// ExportServicer produces the flat export.
type ExportServicer interface {
	Export(ctx context.Context) ([]service.ExportRow, error)
}

// compile-time check: Server must satisfy the generated strict interface.
var _ gen.StrictServerInterface = (*Server)(nil)

// Server holds the dependencies of every handler.
type Server struct {
	ui      UIServicer
	records RecordServicer
	export  ExportServicer
	log     *slog.Logger
}

// NewServer constructs the Server. Any servicer may be nil when the routes
// using it are not exercised, as in tests.
func NewServer(ui UIServicer, records RecordServicer, export ExportServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{ui: ui, records: records, export: export, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes registers every endpoint on r. The REST operations come from the
// generated router; the page, the UI events and the static assets are
// registered by hand.
func (s *Server) Routes(r chi.Router) {
	strict := gen.NewStrictHandlerWithOptions(s, nil, gen.StrictHTTPServerOptions{
		RequestErrorHandlerFunc:  requestError,
		ResponseErrorHandlerFunc: s.internalError,
	})
	gen.HandlerWithOptions(strict, gen.ChiServerOptions{
		BaseRouter:       r,
		Middlewares:      []gen.MiddlewareFunc{strictRecordBody},
		ErrorHandlerFunc: paramError,
	})

	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Get("/", s.GetPage)
	r.Get("/state", s.GetState)

	r.Route("/map", func(r chi.Router) {
		r.Post("/click", s.PostMapClick)
		r.Post("/layers/{layerID}/click", s.PostLayerClick)
		r.Post("/markers/{id}/click", s.PostMarkerClick)
		r.Post("/popup/edit", s.PostPopupEdit)
		r.Post("/popup/delete", s.PostPopupDelete)
		r.Post("/popup/close", s.PostPopupClose)
	})
	r.Post("/sidebar/mode", s.PostSidebarMode)
	r.Post("/selection/{id}", s.PostSelection)
	r.Delete("/selection", s.DeleteSelection)
	r.Post("/editor/submit", s.PostEditorSubmit)
	r.Post("/editor/cancel", s.PostEditorCancel)
	r.Post("/records/{id}/edit", s.PostRecordEdit)
	r.Post("/records/{id}/delete", s.PostRecordDelete)
}
