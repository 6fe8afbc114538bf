package telemetry

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "github.com/jaennil/guide_helper/backend/mapcore"

	tileRoute = "/api/v1/tile/:layer/:z/:x/:y"
)

// TileAttributes describe a tile in spans of the HTTP surface and of the loader.
func TileAttributes(layer string, z, x, y int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tile.layer", layer),
		attribute.Int("tile.z", z),
		attribute.Int("tile.x", x),
		attribute.Int("tile.y", y),
	}
}

// tileRouteAttributes returns the tile attributes of a tile request, or nil when a path
// parameter is not an integer.
func tileRouteAttributes(c *gin.Context) []attribute.KeyValue {
	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errZ != nil || errX != nil || errY != nil {
		return nil
	}
	return TileAttributes(c.Param("layer"), z, x, y)
}

// Tracer returns the tracer used for spans of this service.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// GinMiddleware returns a Gin middleware that creates spans for each HTTP request. Tile
// requests also carry the requested tile.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	tracer := Tracer()

	return func(c *gin.Context) {
		// health checks and scrapes are not traced
		if c.Request.URL.Path == "/api/v1/healthz" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.URLPath(c.Request.URL.Path),
				semconv.HTTPRoute(c.FullPath()),
				semconv.ServerAddress(c.Request.Host),
				semconv.UserAgentOriginal(c.Request.UserAgent()),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		if c.FullPath() == tileRoute {
			span.SetAttributes(tileRouteAttributes(c)...)
		}

		c.Request = c.Request.WithContext(ctx)

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPResponseStatusCode(statusCode),
			attribute.Int("http.response.size", c.Writer.Size()),
		)

		if statusCode >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// SpanFromContext retrieves the current span from gin context
func SpanFromContext(c *gin.Context) trace.Span {
	return trace.SpanFromContext(c.Request.Context())
}
