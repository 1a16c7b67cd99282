package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, extra map[string]interface{}) {
	payload := map[string]interface{}{"status": "ok"}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the known sentinels is logged and reported as an internal error without
// leaking details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := "internal error"

	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
		detail = err.Error()
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, errs.ErrPermissionDenied):
		status = http.StatusForbidden
		detail = err.Error()
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
		detail = err.Error()
	default:
		logutil.GetLogger(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, status, map[string]interface{}{"detail": detail})
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrValidation
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.ErrValidation
	}
	return nil
}

// limitQuery parses an integer query param clamped to [min, max], falling
// back to def when absent or unparsable.
func limitQuery(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

func boolQuery(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}
