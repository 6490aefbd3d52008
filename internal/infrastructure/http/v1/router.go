package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/offline/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware())
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)
	v1.GET("/events", handler.Events)
	v1.GET("/cache/stats", handler.CacheStats)
	v1.Any("/tile/:z/:x/:y", handler.Tile)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// everything else belongs to the application origin
	r.NoRoute(handler.Proxy)

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rl := l.With("method", c.Request.Method, "path", c.Request.URL.Path)
		c.Set("logger", rl)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), rl))

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"source", c.Writer.Header().Get(handler.HeaderCacheSource),
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
