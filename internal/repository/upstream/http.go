package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const maxBodySize = 32 << 20

var ErrBodyTooLarge = errors.New("upstream response body too large")

// not forwarded in either direction
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Accept-Encoding",
	"Content-Length",
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
	Referer   string
}

// HTTPFetcher performs upstream requests and buffers the whole response.
// A non-2xx status is a valid response, not an error; only transport
// failures are returned as errors.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	referer   string
	maxBody   int64
	logger    logger.Logger
}

func NewHTTPFetcher(cfg Config, l logger.Logger) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		maxBody:   maxBodySize,
		logger:    l,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r *entity.Request) (*entity.Response, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vv := range r.Header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	// tile usage policy requires an identifying User-Agent and Referer
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.referer != "" && req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", f.referer)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		f.logger.Debug("upstream request failed", "url", r.URL, "error", err)
		return nil, fmt.Errorf("failed to fetch %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read response body of %s: %w", r.URL, err)
	}
	// a truncated body must never reach the cache
	if int64(len(data)) > f.maxBody {
		metrics.UpstreamLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, r.URL, f.maxBody)
	}

	metrics.UpstreamLatency.WithLabelValues(outcome(resp.StatusCode)).Observe(time.Since(start).Seconds())

	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}

	f.logger.Debug("fetched from upstream", "url", r.URL, "status", resp.StatusCode, "size", len(data))

	return &entity.Response{
		Status: resp.StatusCode,
		Header: header,
		Body:   data,
		Source: entity.SourceNetwork,
	}, nil
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
