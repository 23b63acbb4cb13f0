package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/notifications"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// acceptWebSocket upgrades the request, bypassing gin's writer wrapper.
// Cross-origin handshakes are refused unless the origin is configured.
func (h *Handlers) acceptWebSocket(c *gin.Context, compress bool) (*websocket.Conn, error) {
	// Gin wraps the response writer to track state, but WebSocket needs the raw writer
	var w http.ResponseWriter = c.Writer
	if unwrapper, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = unwrapper.Unwrap()
	}

	opts := &websocket.AcceptOptions{
		OriginPatterns: h.server.Config().OriginPatterns(),
	}
	if compress {
		opts.CompressionMode = websocket.CompressionContextTakeover
	}

	log.MarkHijacked(c)
	conn, err := websocket.Accept(w, c.Request, opts)
	if err != nil {
		return nil, err
	}

	// Abort Gin context to prevent middleware from writing headers on hijacked connection
	c.Abort()
	return conn, nil
}

// Stream handles GET /api/stream
// Sends every view event as a JSON text frame. The first frame is a
// "connected" event carrying the current state.
func (h *Handlers) Stream(c *gin.Context) {
	conn, err := h.acceptWebSocket(c, true)
	if err != nil {
		log.Error().Err(err).Msg("stream: websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	events, unsubscribe := h.server.Notifications().Subscribe()
	defer unsubscribe()

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away
	ctx, cancel := context.WithCancel(conn.CloseRead(context.Background()))
	defer cancel()

	// Monitor server shutdown
	go func() {
		select {
		case <-h.server.ShutdownContext().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := writeEvent(ctx, conn, notifications.Event{
		Type:      notifications.EventConnected,
		Timestamp: time.Now().UnixMilli(),
		Data:      h.state(),
	}); err != nil {
		return
	}
	log.Debug().Msg("client connected to view stream")

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				if ctx.Err() == nil {
					log.Info().Err(err).Msg("stream: write failed")
				}
				return
			}

		case <-pingTicker.C:
			if err := conn.Ping(ctx); err != nil {
				log.Debug().Err(err).Msg("stream: ping failed")
				return
			}

		case <-ctx.Done():
			log.Debug().Msg("client disconnected from view stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev notifications.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
