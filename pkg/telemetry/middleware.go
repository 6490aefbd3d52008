package telemetry

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "github.com/jaennil/guide_helper/backend/offline"
)

// GinMiddleware returns a Gin middleware that creates spans for each HTTP request
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(TracerName)

	return func(c *gin.Context) {
		// health checks, metrics and the long-lived event stream are not traced
		switch c.FullPath() {
		case "/api/v1/healthz", "/metrics", "/api/v1/events":
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "proxy"
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.URLPath(c.Request.URL.Path),
				semconv.HTTPRoute(route),
				semconv.ServerAddress(c.Request.Host),
				semconv.UserAgentOriginal(c.Request.UserAgent()),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPResponseStatusCode(statusCode),
			attribute.Int("http.response.size", c.Writer.Size()),
			attribute.String("offline.cache_source", c.Writer.Header().Get("X-Cache-Source")),
		)

		if statusCode >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// Tracer returns the service tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
