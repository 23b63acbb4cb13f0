package log

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// capture redirects output for the duration of the test
func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		loggerLock.Lock()
		logger = prev
		loggerLock.Unlock()
	})
	return &buf
}

func TestSetLevel(t *testing.T) {
	buf := capture(t, "warn")

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := capture(t, "info")

	r := gin.New()
	r.Use(GinLogger("/quiet"))
	r.GET("/quiet", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/ws", func(c *gin.Context) {
		MarkHijacked(c)
		c.Abort()
	})

	for _, path := range []string{"/quiet", "/missing", "/ws"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := buf.String()
	if strings.Contains(out, `"path":"/quiet"`) {
		t.Error("quiet path should log at debug level")
	}
	if !strings.Contains(out, `"path":"/missing"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("4xx request should log at warn: %q", out)
	}
	if strings.Contains(out, `"path":"/ws"`) {
		t.Error("hijacked request should log at debug level")
	}
}

func TestStdErrorLogger(t *testing.T) {
	buf := capture(t, "info")

	StdErrorLogger().Print("http: TLS handshake error")

	if out := buf.String(); !strings.Contains(out, "TLS handshake error") || strings.Contains(out, `\n"`) {
		t.Errorf("output = %q", out)
	}
}
