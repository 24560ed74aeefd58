// Package middleware provides the gin middleware of the RT 44 API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxAttributeLength caps header-derived span attributes
const MaxAttributeLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// TracingWithConfig returns OpenTelemetry tracing middleware. It wraps otelgin,
// so spans are named after the route pattern (e.g. "/api/v1/dues/:id"), and
// adds request_id and actor attributes once the request has been handled.
// Responses of 500 and above mark the span as failed.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher copies request metadata into the active span. It must run
// after both the tracing and logger middleware.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			ctx := c.Request.Context()
			if id := logger.GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request_id", truncate(id)))
			}
			if actor := logger.GetActor(ctx); actor != "" {
				span.SetAttributes(attribute.String("actor", truncate(actor)))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.StringSlice("gin.errors", c.Errors.Errors()))
		}
	}
}

func truncate(s string) string {
	if len(s) > MaxAttributeLength {
		return s[:MaxAttributeLength]
	}
	return s
}
