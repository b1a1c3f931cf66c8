package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logging logs one line per completed request, tagged with the trace id.
// Health probes are skipped; the bridge WebSocket route logs only on
// disconnect since the request spans the whole session.
func Logging(logger zerolog.Logger) gin.HandlerFunc {
	skipPaths := map[string]bool{
		"/health":     true,
		"/api/health": true,
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		startTime := time.Now()
		reqLogger := logger.With().
			Str("trace_id", GetTraceID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Logger()

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = reqLogger.Error()
		case status >= 400:
			event = reqLogger.Warn()
		default:
			event = reqLogger.Info()
		}
		event.
			Int("status", status).
			Dur("duration", time.Since(startTime)).
			Int("response_size", c.Writer.Size()).
			Msg("Request completed")

		for _, err := range c.Errors {
			reqLogger.Error().Err(err.Err).Msg("Request error")
		}
	}
}
