package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// quietPaths are hit constantly by health checks; their summary lines are logged at debug.
var quietPaths = map[string]bool{"/healthz": true}

// Middleware puts a request_id scoped logger on the gin and request contexts and
// writes one summary line per request. The summary uses the request context logger
// so attributes added downstream (user_id, organisation_id) are included.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		out := From(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			out.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			out.Warn("request", attrs...)
		case quietPaths[route]:
			out.Debug("request", attrs...)
		default:
			out.Info("request", attrs...)
		}
	}
}

// FromGin returns the request logger, including any attributes added to the request
// context after Middleware ran.
func FromGin(c *gin.Context) *slog.Logger {
	if c.Request != nil {
		if l, ok := c.Request.Context().Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
