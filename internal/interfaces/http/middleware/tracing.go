// Package middleware provides HTTP middleware for the rental ledger API.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength caps request IDs taken from headers.
	MaxRequestIDLength = 128
	// MaxTenantIDLength caps tenant IDs taken from headers.
	MaxTenantIDLength = 64
)

// uuidRegex validates UUID format for tenant IDs from headers.
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "fleetrent-backend",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns OpenTelemetry tracing middleware with custom
// configuration. It wraps otelgin and enriches each span with the request ID
// and the tenant ID taken from the X-Tenant-ID header.
//
// The span name follows the format "HTTP METHOD route_pattern"
// (e.g. "GET /api/v1/charges/:id").
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	baseMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		baseMiddleware(c)

		// otelgin has created the span, enrich it
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

// enrichSpanWithAttributes adds request-scoped attributes to the span.
func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := spanRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}

	if tenantID := spanTenantID(c); tenantID != "" {
		span.SetAttributes(attribute.String("tenant_id", tenantID))
	}
}

// spanRequestID retrieves the request ID from the gin context or header.
// Header values are truncated to prevent abuse.
func spanRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok && id != "" {
			return id
		}
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// spanTenantID retrieves the tenant ID from the X-Tenant-ID header.
// The value is validated as a UUID to prevent trace data injection.
func spanTenantID(c *gin.Context) string {
	headerTenantID := c.GetHeader("X-Tenant-ID")
	if headerTenantID != "" && isValidTenantID(headerTenantID) {
		return headerTenantID
	}
	return ""
}

// isValidTenantID validates that a tenant ID is a proper UUID.
func isValidTenantID(tenantID string) bool {
	if len(tenantID) > MaxTenantIDLength {
		return false
	}
	return uuidRegex.MatchString(tenantID)
}

// SpanErrorMarker returns a middleware that marks spans with error status
// for HTTP error responses (4xx/5xx). It must run after the Tracing
// middleware in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode >= http.StatusBadRequest {
			var errorMessage string
			switch {
			case statusCode >= http.StatusInternalServerError:
				errorMessage = "Internal Server Error"
			case statusCode == http.StatusNotFound:
				errorMessage = "Not Found"
			default:
				errorMessage = "Client Error"
			}

			span.SetStatus(codes.Error, errorMessage)
			span.SetAttributes(attribute.Int("http.status_code", statusCode))
		}
	}
}
