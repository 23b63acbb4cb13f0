package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/server"
)

// RequestGuard rejects requests another website could make on the user's
// behalf: foreign browser origins, bodies that are not JSON, and, when an
// access token is configured, requests that don't present it.
func RequestGuard(cfg *server.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if !cfg.OriginAllowed(origin, c.Request.Host) {
			log.Warn().Str("origin", origin).Str("path", c.Request.URL.Path).Msg("rejected cross-origin request")
			abortWithError(c, http.StatusForbidden, ErrCodeForbidden, "origin not allowed")
			return
		}

		if cfg.AccessToken != "" && !validToken(c, cfg.AccessToken) {
			abortWithError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid access token")
			return
		}

		// A JSON content type can't be sent cross-site without a preflight
		if hasBody(c.Request) && c.ContentType() != gin.MIMEJSON {
			abortWithError(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "request body must be application/json")
			return
		}

		c.Next()
	}
}

// validToken checks the Authorization header, then the token query
// parameter (browsers can't set headers on WebSocket requests)
func validToken(c *gin.Context, want string) bool {
	got := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(got, "Bearer ") {
		got = strings.TrimPrefix(got, "Bearer ")
	} else {
		got = c.Query("token")
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody
	}
	return false
}

func abortWithError(c *gin.Context, status int, code ErrorCode, message string) {
	respondError(c, status, code, message)
	c.Abort()
}
