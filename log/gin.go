package log

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKeyHijacked marks a request whose connection was taken over by a
// WebSocket handler.
const ContextKeyHijacked = "connection_hijacked"

// MarkHijacked must be called by WebSocket handlers before websocket.Accept so
// the request logger does not touch the hijacked writer.
func MarkHijacked(c *gin.Context) {
	c.Set(ContextKeyHijacked, true)
}

// IsHijacked reports whether MarkHijacked was called for this request.
func IsHijacked(c *gin.Context) bool {
	return c.GetBool(ContextKeyHijacked)
}

// GinLogger returns a Gin middleware that logs requests using zerolog.
// Polling endpoints listed in quiet are logged at debug level.
func GinLogger(quiet ...string) gin.HandlerFunc {
	quietPaths := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Reading c.Writer.Status() on a hijacked connection makes gin write headers
		if IsHijacked(c) {
			Debug().Str("path", path).Dur("duration", time.Since(start)).Msg("websocket closed")
			return
		}

		status := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		event := Info()
		switch {
		case status >= 500:
			event = Error()
		case status >= 400:
			event = Warn()
		case quietPaths[c.Request.URL.Path]:
			event = Debug()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP())

		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			event.Str("error", msg)
		}

		event.Msg("request")
	}
}
