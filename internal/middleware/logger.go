package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

const (
	// RequestIDHeader is echoed back and attached to every log line of the request.
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestLogger logs one line per request. Server errors are logged at error level with the
// recorded cause; client errors at warn.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if p, ok := PrincipalFrom(c); ok {
			attrs = append(attrs, "caller", p.Email)
		}
		if len(c.Errors) > 0 {
			last := c.Errors.Last()
			attrs = append(attrs, "error", last.Error())
			if code := aws.ErrorCode(last.Err); code != "" {
				attrs = append(attrs, "aws_error_code", code)
			}
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "request rejected", attrs...)
		default:
			log.InfoContext(ctx, "request", attrs...)
		}
	}
}

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
