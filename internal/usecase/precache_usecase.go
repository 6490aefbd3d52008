package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/offline/internal/tile"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/offline/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultPauseEvery    = 50
	defaultPause         = 100 * time.Millisecond
	defaultProgressEvery = 10

	installFailedMessage = "Failed to cache map tiles. Some areas may not work offline."
)

type PrecacheConfig struct {
	TileOrigin   string
	AppOrigin    string
	StaticAssets []string
	Regions      []tile.Region

	// PauseEvery network-stored tiles the run sleeps for Pause.
	PauseEvery    int
	Pause         time.Duration
	ProgressEvery int
}

type PrecacheUseCase struct {
	cfg     PrecacheConfig
	fetcher Fetcher
	sink    NotificationSink
	logger  logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPrecacheUseCase(cfg PrecacheConfig, fetcher Fetcher, sink NotificationSink, l logger.Logger) *PrecacheUseCase {
	if cfg.PauseEvery <= 0 {
		cfg.PauseEvery = defaultPauseEvery
	}
	if cfg.Pause < 0 {
		cfg.Pause = defaultPause
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}

	return &PrecacheUseCase{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		logger:  l,
		sleep:   sleepContext,
	}
}

// Install stores the static assets, then every region tile, publishing progress.
// A static asset failure is fatal and published as CACHE_ERROR; tile failures never are.
func (uc *PrecacheUseCase) Install(ctx context.Context, store cache.Store) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "precache.install")
	defer span.End()

	uc.logger.Info("installing offline cache", "assets", len(uc.cfg.StaticAssets), "regions", len(uc.cfg.Regions))

	if err := uc.cacheStaticAssets(ctx, store); err != nil {
		uc.fail(ctx, err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	uc.sink.Publish(entity.NewProgressEvent(0, "Starting to download map tiles for offline use..."))

	n, err := uc.Run(ctx, store)
	span.SetAttributes(attribute.Int("precache.tiles_cached", n))
	if err != nil {
		uc.fail(ctx, err)
		span.SetStatus(codes.Error, err.Error())
		return n, err
	}

	uc.sink.Publish(entity.NewCompleteEvent(
		fmt.Sprintf("%s map tiles cached! Region now available offline.", humanize.Comma(int64(n))),
	))

	return n, nil
}

func (uc *PrecacheUseCase) fail(ctx context.Context, err error) {
	// the process is going away; nobody is left to tell
	if ctx.Err() != nil {
		uc.logger.Warn("offline cache install interrupted", "error", err)
		return
	}

	uc.logger.Error("offline cache install failed", "error", err)
	uc.sink.Publish(entity.NewErrorEvent(installFailedMessage))
}

func (uc *PrecacheUseCase) cacheStaticAssets(ctx context.Context, store cache.Store) error {
	for _, path := range uc.cfg.StaticAssets {
		url := resolve(uc.cfg.AppOrigin, path)

		resp, err := uc.fetcher.Fetch(ctx, entity.NewGetRequest(url))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStaticAsset, path, err)
		}
		if !resp.OK() {
			return fmt.Errorf("%w: %s: status %d", ErrStaticAsset, path, resp.Status)
		}

		if err := store.Put(ctx, url, resp); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStaticAsset, path, err)
		}
		metrics.PrecacheAssets.Inc()
	}

	uc.logger.Info("static assets cached", "count", len(uc.cfg.StaticAssets))
	return nil
}

// Run downloads every tile of the configured regions into store and returns
// how many are now cached. Tiles already present are counted without a request.
func (uc *PrecacheUseCase) Run(ctx context.Context, store cache.Store) (int, error) {
	total := tile.Count(uc.cfg.Regions)
	uc.logger.Info("starting tile precache", "total", total)

	var (
		cached   int
		fetched  int
		failed   int
		reported int
	)

	for t := range tile.Enumerate(uc.cfg.Regions) {
		if err := ctx.Err(); err != nil {
			return cached, err
		}

		stored, fromNetwork := uc.cacheTile(ctx, store, tile.URL(uc.cfg.TileOrigin, t))
		if !stored {
			failed++
			continue
		}
		cached++

		if fromNetwork {
			fetched++
			if fetched%uc.cfg.PauseEvery == 0 {
				if err := uc.sleep(ctx, uc.cfg.Pause); err != nil {
					return cached, err
				}
			}
		}

		if cached%uc.cfg.ProgressEvery == 0 {
			uc.reportProgress(cached, total)
			reported = cached
		}
	}

	if cached != reported {
		uc.reportProgress(cached, total)
	}

	uc.logger.Info("tile precache finished", "cached", cached, "fetched", fetched, "failed", failed, "total", total)

	return cached, nil
}

func (uc *PrecacheUseCase) cacheTile(ctx context.Context, store cache.Store, url string) (stored, fromNetwork bool) {
	_, ok, err := store.Match(ctx, url)
	if err != nil {
		uc.logger.Warn("cache lookup failed, fetching tile", "url", url, "error", err)
	} else if ok {
		metrics.PrecacheTiles.WithLabelValues("present").Inc()
		return true, false
	}

	resp, err := uc.fetcher.Fetch(ctx, entity.NewGetRequest(url))
	if err != nil {
		uc.logger.Warn("failed to cache tile", "url", url, "error", err)
		metrics.PrecacheTiles.WithLabelValues("failed").Inc()
		return false, false
	}
	if !resp.OK() {
		uc.logger.Warn("failed to cache tile", "url", url, "status", resp.Status)
		metrics.PrecacheTiles.WithLabelValues("failed").Inc()
		return false, false
	}

	if err := store.Put(ctx, url, resp); err != nil {
		uc.logger.Warn("failed to store tile", "url", url, "error", err)
		metrics.PrecacheTiles.WithLabelValues("failed").Inc()
		return false, false
	}

	metrics.PrecacheTiles.WithLabelValues("fetched").Inc()
	return true, true
}

func (uc *PrecacheUseCase) reportProgress(cached, total int) {
	progress := percent(cached, total)
	metrics.PrecacheProgress.Set(float64(progress))

	uc.sink.Publish(entity.NewProgressEvent(progress,
		fmt.Sprintf("Downloading map tiles... %d/%d (%d%%)", cached, total, progress),
	))
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(float64(done) / float64(total) * 100))
	return min(p, 100)
}

func resolve(origin, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
