package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pkordes/travel-journal/internal/handler/gen"
)

// strictRecordBody rejects record bodies the generated decoder would accept
// silently. An unknown field is a 422 so a mistyped key such as visit_date
// is reported instead of being dropped; anything after the JSON object is a
// 400. Bodies that are not JSON at all pass through to the generated decoder,
// which reports them.
func strictRecordBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			requestError(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		var body gen.RecordInput
		if err := dec.Decode(&body); err != nil {
			if msg, ok := unknownField(err); ok {
				writeJSON(w, http.StatusUnprocessableEntity, invalidBody(msg))
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			badRequest(w, "request body must hold a single JSON record")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// unknownField reports whether err is encoding/json's unknown field error
// and returns it without the package prefix.
func unknownField(err error) (string, bool) {
	msg, ok := strings.CutPrefix(err.Error(), "json: ")
	if !ok || !strings.HasPrefix(msg, "unknown field ") {
		return "", false
	}
	return msg, true
}
