package api

import (
	"encoding/json"
	"net/http"

	"gallery-gateway/internal/models"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// noCache stops browsers and proxies from keeping a copy of the response.
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func requestLogger(r *http.Request) *zerolog.Logger {
	ctx := log.With()
	if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
		ctx = ctx.Str("request_id", reqID)
	}
	l := ctx.Logger()
	return &l
}
