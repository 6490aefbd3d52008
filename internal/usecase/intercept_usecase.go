package usecase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/metrics"
)

const (
	categoryTile        = "tile"
	categoryAsset       = "asset"
	categoryPassthrough = "passthrough"

	offlineBody = "Service unavailable - offline"
)

type InterceptConfig struct {
	// TileOrigin identifies tile requests by host.
	TileOrigin string
	// FallbackURL is the cached document served to navigations while offline.
	FallbackURL string
}

// InterceptUseCase answers every client request from the cache or the network.
// Handle always returns a response.
type InterceptUseCase struct {
	store       cache.Store
	fetcher     Fetcher
	tileHost    string
	fallbackURL string
	placeholder []byte
	logger      logger.Logger
}

func NewInterceptUseCase(cfg InterceptConfig, store cache.Store, fetcher Fetcher, l logger.Logger) (*InterceptUseCase, error) {
	u, err := url.Parse(cfg.TileOrigin)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid tile origin %q", cfg.TileOrigin)
	}

	placeholder, err := renderPlaceholder()
	if err != nil {
		return nil, fmt.Errorf("failed to render offline tile: %w", err)
	}

	return &InterceptUseCase{
		store:       store,
		fetcher:     fetcher,
		tileHost:    strings.ToLower(u.Host),
		fallbackURL: cfg.FallbackURL,
		placeholder: placeholder,
		logger:      l,
	}, nil
}

func (uc *InterceptUseCase) IsTileRequest(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.ToLower(u.Host) == uc.tileHost
}

func (uc *InterceptUseCase) Handle(ctx context.Context, req *entity.Request) *entity.Response {
	var (
		category string
		resp     *entity.Response
	)

	switch {
	case req.Method != http.MethodGet:
		category = categoryPassthrough
		resp = uc.passthrough(ctx, req)
	case uc.IsTileRequest(req.URL):
		category = categoryTile
		resp = uc.handleTile(ctx, req)
	default:
		category = categoryAsset
		resp = uc.handleAsset(ctx, req)
	}

	metrics.InterceptedRequests.WithLabelValues(category, string(resp.Source)).Inc()
	return resp
}

func (uc *InterceptUseCase) passthrough(ctx context.Context, req *entity.Request) *entity.Response {
	resp, err := uc.fetcher.Fetch(ctx, req)
	if err != nil {
		uc.logger.Warn("passthrough request failed", "method", req.Method, "url", req.URL, "error", err)
		resp = textResponse(http.StatusBadGateway, "Bad gateway - upstream unreachable")
	}
	resp.Source = entity.SourcePassthrough
	return resp
}

// Tiles are immutable within a cache version, so a cached tile always wins.
func (uc *InterceptUseCase) handleTile(ctx context.Context, req *entity.Request) *entity.Response {
	if resp, ok := uc.match(ctx, req.URL); ok {
		return resp
	}

	resp, err := uc.fetcher.Fetch(ctx, req)
	if err != nil {
		uc.logger.Debug("tile unavailable, serving placeholder", "url", req.URL, "error", err)
		return uc.placeholderResponse()
	}

	if resp.OK() {
		uc.put(ctx, req.URL, resp)
	}
	return resp
}

func (uc *InterceptUseCase) handleAsset(ctx context.Context, req *entity.Request) *entity.Response {
	if resp, ok := uc.match(ctx, req.URL); ok {
		return resp
	}

	resp, err := uc.fetcher.Fetch(ctx, req)
	if err != nil {
		uc.logger.Debug("asset unavailable, serving offline fallback", "url", req.URL, "error", err)
		return uc.offlineFallback(ctx, req)
	}

	if resp.Status == http.StatusOK {
		uc.put(ctx, req.URL, resp)
	}
	return resp
}

func (uc *InterceptUseCase) offlineFallback(ctx context.Context, req *entity.Request) *entity.Response {
	if req.IsNavigation() && uc.fallbackURL != "" {
		if resp, ok := uc.match(ctx, uc.fallbackURL); ok {
			resp.Source = entity.SourceFallback
			return resp
		}
	}

	if req.WantsImage() {
		return &entity.Response{
			Status: http.StatusOK,
			Header: http.Header{},
			Source: entity.SourceFallback,
		}
	}

	resp := textResponse(http.StatusServiceUnavailable, offlineBody)
	resp.Source = entity.SourceFallback
	return resp
}

// match treats a store failure as a miss so the request falls through to the network.
func (uc *InterceptUseCase) match(ctx context.Context, url string) (*entity.Response, bool) {
	resp, ok, err := uc.store.Match(ctx, url)
	if err != nil {
		uc.logger.Warn("cache match failed", "url", url, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	resp.Source = entity.SourceCache
	return resp, true
}

func (uc *InterceptUseCase) put(ctx context.Context, url string, resp *entity.Response) {
	if err := uc.store.Put(ctx, url, resp); err != nil {
		uc.logger.Warn("failed to cache response", "url", url, "error", err)
	}
}

func (uc *InterceptUseCase) placeholderResponse() *entity.Response {
	return &entity.Response{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type":  []string{"image/png"},
			"Cache-Control": []string{"no-store"},
		},
		Body:   uc.placeholder,
		Source: entity.SourceFallback,
	}
}

func textResponse(status int, body string) *entity.Response {
	return &entity.Response{
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   []byte(body),
	}
}
