package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jaennil/guide_helper/backend/offline/internal/infrastructure/broadcast"
	v1 "github.com/jaennil/guide_helper/backend/offline/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/offline/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/upstream"
	"github.com/jaennil/guide_helper/backend/offline/internal/tile"
	"github.com/jaennil/guide_helper/backend/offline/internal/usecase"
	"github.com/jaennil/guide_helper/backend/offline/pkg/config"
	"github.com/jaennil/guide_helper/backend/offline/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l, err := logger.NewZapLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		log.Fatalln("failed to build logger: ", err)
	}
	defer l.Sync()

	l.Info("starting offline service", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	regions, err := tile.LoadRegions(cfg.Precache.RegionsFile)
	if err != nil {
		l.Fatal("failed to load precache regions", "error", err)
	}

	storage, err := cache.NewStorage(cfg.Cache, cfg.Redis, l)
	if err != nil {
		l.Fatal("failed to initialize cache storage", "error", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			l.Error("failed to close cache storage", "error", err)
		}
	}()

	store, err := storage.Open(ctx, cfg.Cache.Version)
	if err != nil {
		l.Fatal("failed to open cache", "version", cfg.Cache.Version, "error", err)
	}

	fetcher := upstream.NewHTTPFetcher(upstream.Config{
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: cfg.Upstream.UserAgent,
		Referer:   cfg.Upstream.Referer,
	}, l)

	hub := broadcast.NewHub()
	defer hub.Close()

	interceptUseCase, err := usecase.NewInterceptUseCase(usecase.InterceptConfig{
		TileOrigin:  cfg.Upstream.TileServerURL,
		FallbackURL: strings.TrimRight(cfg.Upstream.AppURL, "/") + "/" + strings.TrimLeft(cfg.Precache.FallbackPage, "/"),
	}, store, fetcher, l)
	if err != nil {
		l.Fatal("failed to initialize interceptor", "error", err)
	}

	precacheUseCase := usecase.NewPrecacheUseCase(usecase.PrecacheConfig{
		TileOrigin:    cfg.Upstream.TileServerURL,
		AppOrigin:     cfg.Upstream.AppURL,
		StaticAssets:  cfg.Precache.StaticAssets,
		Regions:       regions,
		PauseEvery:    cfg.Precache.PauseEvery,
		Pause:         cfg.Precache.Pause,
		ProgressEvery: cfg.Precache.ProgressEvery,
	}, fetcher, hub, l)

	h := handler.NewHandler(handler.Config{
		TileOrigin: cfg.Upstream.TileServerURL,
		AppOrigin:  cfg.Upstream.AppURL,
		Version:    cfg.Cache.Version,
		Backend:    cfg.Cache.Backend,
	}, interceptUseCase, fetcher, hub, storage, store)

	lifecycleUseCase := usecase.NewLifecycleUseCase(storage, cfg.Cache.Version, h, l)

	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)
	httpServer := http_server.NewServer(cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		install(ctx, cfg.Precache.Enabled, precacheUseCase, lifecycleUseCase, store, l)
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// end event streams so Shutdown does not wait on them
	hub.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		l.Warn("timeout waiting for precache to stop")
	}

	l.Info("application shutdown completed")
}

// install precaches the offline data set and then activates the current cache.
// Activation runs whether or not precaching succeeded.
func install(
	ctx context.Context,
	enabled bool,
	precache *usecase.PrecacheUseCase,
	lifecycle *usecase.LifecycleUseCase,
	store cache.Store,
	l logger.Logger,
) {
	if enabled {
		start := time.Now()
		n, err := precache.Install(ctx, store)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.Error("offline precache failed", "cached", n, "error", err)
		} else {
			l.Info("offline precache complete", "tiles", n, "duration", time.Since(start))
		}
	} else {
		l.Info("precache disabled")
	}

	deleted, err := lifecycle.Activate(ctx)
	if err != nil {
		l.Error("cache activation finished with errors", "deleted", deleted, "error", err)
		return
	}
	l.Info("offline cache activated", "deleted_versions", deleted)
}
