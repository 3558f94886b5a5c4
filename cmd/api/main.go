package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-gateway/internal/api"
	"gallery-gateway/internal/config"
	"gallery-gateway/internal/minio"
	"gallery-gateway/internal/objectstore"
	"gallery-gateway/internal/ratelimit"
	"gallery-gateway/internal/s3"
	"gallery-gateway/internal/valkeydb"
	"gallery-gateway/web"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway stopped with error")
	}
}

func run() error {

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	log.Info().Str("driver", cfg.Store.Driver).Str("bucket", cfg.Store.Bucket).Msg("object store initialized")

	routerOpts := api.RouterOptions{
		AllowOrigins:      cfg.AllowOrigins,
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		Static:            web.Handler(),
	}

	if cfg.RateLimit.Enabled() {
		limiter, closeLimiter, err := newLimiter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		defer closeLimiter()
		routerOpts.UploadLimiter = limiter
	}

	apiHandler := api.NewAPIHandler(store, cfg.Store.Bucket, api.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		Policy:        cfg.Upload,
	})

	router := api.NewRouter(apiHandler, routerOpts)

	ln, err := listen(cfg.Port, cfg.PortFallback)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Int64("max_upload_bytes", cfg.Upload.MaxBytes).Msg("gateway listening")
		errCh <- srv.Serve(ln)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == config.FormatConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return nil
}

func newStore(ctx context.Context, conf config.StoreConfig) (objectstore.FileStorer, error) {
	switch conf.Driver {
	case config.DriverMinio:
		store, err := minio.NewFileStore(minio.Config{
			Endpoint:  conf.Endpoint(),
			Region:    conf.Region,
			AccessKey: conf.AccessKey,
			SecretKey: conf.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx, conf.Bucket); err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := s3.NewFileStore(ctx, s3.S3Config{
			EndpointURL: conf.Endpoint(),
			Region:      conf.Region,
			AccessKey:   conf.AccessKey,
			SecretKey:   conf.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// newLimiter shares counters through Valkey when configured, otherwise
// limits per process.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.Valkey.URL == "" {
		log.Info().Float64("rps", cfg.RateLimit.RequestsPerSecond).Int("burst", cfg.RateLimit.Burst).Msg("in-memory upload rate limit enabled")
		return ratelimit.NewMemory(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), func() {}, nil
	}

	client, err := valkeydb.New(ctx, cfg.Valkey.URL, cfg.Valkey.Password)
	if err != nil {
		return nil, nil, err
	}

	window, limit := valkeydb.WindowFor(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	log.Info().Dur("window", window).Int64("limit", limit).Msg("valkey upload rate limit enabled")
	return valkeydb.NewWindowLimiter(client, limit, window), client.Close, nil
}
