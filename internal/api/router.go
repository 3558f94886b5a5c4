package api

import (
	"net/http"

	"gallery-gateway/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	AllowOrigins []string

	// UploadLimiter throttles POST /upload when set.
	UploadLimiter ratelimit.Limiter

	// TrustProxyHeaders keys the limiter on X-Real-IP / X-Forwarded-For.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Static serves the gallery page and its assets.
	Static http.Handler
}

func NewRouter(h *APIHandler, opts RouterOptions) http.Handler {

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(Logging)
	r.Use(Recover)
	if len(opts.AllowOrigins) > 0 {
		r.Use(CORS(opts.AllowOrigins))
	}

	r.Get("/health", h.Health)

	r.Get("/list-files", h.ListFiles)

	upload := r.With()
	if opts.UploadLimiter != nil {
		upload = r.With(RateLimit(opts.UploadLimiter, opts.TrustProxyHeaders))
	}
	upload.Post("/upload", h.Upload)

	if opts.Static != nil {
		r.Handle("/*", opts.Static)
	}

	return r
}
