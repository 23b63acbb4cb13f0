package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/weeksdev/duckfinder/server"
)

func TestRequestGuard_Origin(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) {
		cfg.AllowedOrigins = []string{"https://*.duck.example"}
	})

	tests := []struct {
		name       string
		origin     string
		wantStatus int
	}{
		{"no origin", "", http.StatusOK},
		{"same origin", "http://example.com", http.StatusOK},
		{"loopback on served port", "http://localhost:12345", http.StatusOK},
		{"loopback ip on served port", "http://127.0.0.1:12345", http.StatusOK},
		{"configured pattern", "https://app.duck.example", http.StatusOK},
		{"pattern wrong scheme", "http://app.duck.example", http.StatusForbidden},
		{"loopback on other port", "http://localhost:8080", http.StatusForbidden},
		{"foreign", "http://evil.example", http.StatusForbidden},
		{"opaque", "null", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			w := env.send(http.MethodGet, "/api/state", "", header)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden && errorCode(t, w) != ErrCodeForbidden {
				t.Errorf("code = %s, want FORBIDDEN", errorCode(t, w))
			}
		})
	}
}

func TestRequestGuard_ForgedCommandNeverRuns(t *testing.T) {
	requireShell(t)
	env := newTestEnv(t)
	marker := filepath.Join(env.root, "forged")
	body := `{"command":"touch forged"}`

	tests := []struct {
		name       string
		header     http.Header
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "foreign origin with json",
			header:     http.Header{"Origin": {"http://evil.example"}, "Content-Type": {"application/json"}},
			wantStatus: http.StatusForbidden,
			wantCode:   ErrCodeForbidden,
		},
		{
			name:       "foreign origin simple post",
			header:     http.Header{"Origin": {"http://evil.example"}, "Content-Type": {"text/plain"}},
			wantStatus: http.StatusForbidden,
			wantCode:   ErrCodeForbidden,
		},
		{
			name:       "text body without origin",
			header:     http.Header{"Content-Type": {"text/plain"}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   ErrCodeUnsupportedMedia,
		},
		{
			name:       "form body",
			header:     http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   ErrCodeUnsupportedMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.send(http.MethodPost, "/api/commands", body, tt.header)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if code := errorCode(t, w); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}

	if s := env.srv.Browser().ActiveSession(); s != nil {
		t.Fatalf("session %s started from a rejected request", s.ID)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("rejected command ran")
	}
}

func TestRequestGuard_EmptyPostNeedsNoContentType(t *testing.T) {
	env := newTestEnv(t)

	w := env.send(http.MethodPost, "/api/refresh", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRequestGuard_AccessToken(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) {
		cfg.AccessToken = "s3cret"
	})

	tests := []struct {
		name       string
		path       string
		header     http.Header
		wantStatus int
	}{
		{"missing", "/api/state", nil, http.StatusUnauthorized},
		{"wrong header", "/api/state", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized},
		{"wrong query", "/api/state?token=nope", nil, http.StatusUnauthorized},
		{"header", "/api/state", http.Header{"Authorization": {"Bearer s3cret"}}, http.StatusOK},
		{"query", "/api/state?token=s3cret", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.send(http.MethodGet, tt.path, "", tt.header)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestStream_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"

	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": {"http://evil.example"}},
	})
	if err == nil {
		conn.CloseNow()
		t.Fatal("foreign-origin handshake was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	// The served origin still connects
	conn, _, err = websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": {ts.URL}},
	})
	if err != nil {
		t.Fatalf("same-origin dial failed: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
