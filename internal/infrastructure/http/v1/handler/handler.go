package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/internal/infrastructure/broadcast"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/offline/internal/usecase"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
)

const (
	maxRequestBody = 8 << 20

	HeaderCacheSource = "X-Cache-Source"
)

var ErrRequestTooLarge = errors.New("request body too large")

type Config struct {
	TileOrigin string
	AppOrigin  string
	Version    string
	Backend    string
}

type Handler struct {
	cfg        Config
	intercept  *usecase.InterceptUseCase
	fetcher    usecase.Fetcher
	hub        *broadcast.Hub
	storage    cache.Storage
	store      cache.Store
	controlled atomic.Bool
}

func NewHandler(
	cfg Config,
	intercept *usecase.InterceptUseCase,
	fetcher usecase.Fetcher,
	hub *broadcast.Hub,
	storage cache.Storage,
	store cache.Store,
) *Handler {
	return &Handler{
		cfg:       cfg,
		intercept: intercept,
		fetcher:   fetcher,
		hub:       hub,
		storage:   storage,
		store:     store,
	}
}

// Claim routes every following request through the interceptor.
func (h *Handler) Claim(_ context.Context) error {
	h.controlled.Store(true)
	return nil
}

func (h *Handler) Controlled() bool {
	return h.controlled.Load()
}

func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// serve answers req through the interceptor once claimed, and straight from
// the network before that.
func (h *Handler) serve(c *gin.Context, req *entity.Request) {
	l := requestLogger(c)

	var resp *entity.Response
	if h.Controlled() {
		resp = h.intercept.Handle(c.Request.Context(), req)
	} else {
		var err error
		resp, err = h.fetcher.Fetch(c.Request.Context(), req)
		if err != nil {
			l.Warn("upstream request failed", "method", req.Method, "url", req.URL, "error", err)
			c.Header(HeaderCacheSource, string(entity.SourcePassthrough))
			c.String(http.StatusBadGateway, "Bad gateway - upstream unreachable")
			return
		}
		resp.Source = entity.SourcePassthrough
	}

	l.Debug("request served", "method", req.Method, "url", req.URL, "status", resp.Status, "source", resp.Source)
	writeResponse(c, resp)
}

func (h *Handler) newRequest(c *gin.Context, target string) (*entity.Request, error) {
	r := c.Request

	req := &entity.Request{
		Method:      r.Method,
		URL:         target,
		Mode:        entity.ModeOther,
		Destination: r.Header.Get("Sec-Fetch-Dest"),
		Header:      r.Header.Clone(),
	}

	if r.Header.Get("Sec-Fetch-Mode") == "navigate" ||
		(r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")) {
		req.Mode = entity.ModeNavigate
	}
	if req.Destination == "" && strings.HasPrefix(r.Header.Get("Accept"), "image/") {
		req.Destination = "image"
	}

	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
		if err != nil {
			return nil, err
		}
		if len(body) > maxRequestBody {
			return nil, ErrRequestTooLarge
		}
		req.Body = body
	}

	return req, nil
}

func writeResponse(c *gin.Context, resp *entity.Response) {
	header := c.Writer.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set(HeaderCacheSource, string(resp.Source))

	c.Status(resp.Status)
	c.Writer.WriteHeaderNow()
	if len(resp.Body) > 0 && c.Request.Method != http.MethodHead {
		if _, err := c.Writer.Write(resp.Body); err != nil {
			requestLogger(c).Warn("failed to write response", "error", err)
		}
	}
}

func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
