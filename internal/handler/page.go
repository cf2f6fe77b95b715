package handler

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var embeddedStatic embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// staticFS serves the page's script and stylesheet under /static/.
var staticFS = mustSub(embeddedStatic, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("handler: " + err.Error())
	}
	return sub
}

type pageData struct {
	State StateResponse
}

// GetPage handles GET /. The editor modal, when open, is rendered into the
// top-level #overlay-root element rather than inside the map or sidebar.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{State: stateToResponse(s.ui.State())}); err != nil {
		s.log.ErrorContext(r.Context(), "render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	//nolint:errcheck
	buf.WriteTo(w)
}
