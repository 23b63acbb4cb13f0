package api

import (
	"context"
	"encoding/json"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/shell"
)

// terminalControl is a text frame sent by the client, e.g. a window resize
type terminalControl struct {
	Type string `json:"type"`
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

// Terminal handles GET /api/terminal
// Spawns an interactive shell in a PTY rooted at the current directory.
// Binary frames carry terminal I/O; text frames carry control messages.
func (h *Handlers) Terminal(c *gin.Context) {
	cfg := h.server.Config()
	if !cfg.TerminalEnabled {
		RespondNotFound(c, "terminal is disabled")
		return
	}

	conn, err := h.acceptWebSocket(c, false)
	if err != nil {
		log.Error().Err(err).Msg("terminal: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Monitor server shutdown
	go func() {
		select {
		case <-h.server.ShutdownContext().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var env []string
	if cfg.ShellPath != "" {
		env = append(env, "PATH="+cfg.ShellPath)
	}
	term, err := shell.StartTerminal(h.controller().CurrentDirectory(), cfg.Shell, env)
	if err != nil {
		log.Error().Err(err).Msg("terminal: failed to start pty")
		conn.Close(websocket.StatusInternalError, "failed to start shell")
		return
	}
	defer term.Close()

	done := make(chan struct{})

	// PTY → WebSocket
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := term.Read(buf)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, buf[:n]); err != nil {
				return
			}
		}
	}()

	// WebSocket → PTY
	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					log.Debug().Msg("terminal: websocket closed normally")
				} else if ctx.Err() == nil {
					log.Info().Err(err).Msg("terminal: websocket read error")
				}
				return
			}

			if msgType == websocket.MessageText {
				var ctl terminalControl
				if err := json.Unmarshal(data, &ctl); err == nil && ctl.Type == "resize" {
					if err := term.Resize(ctl.Rows, ctl.Cols); err != nil {
						log.Debug().Err(err).Msg("terminal: resize failed")
					}
				}
				continue
			}

			if _, err := term.Write(data); err != nil {
				log.Debug().Err(err).Msg("terminal: pty write failed")
				return
			}
		}
	}()

	select {
	case <-done:
		conn.Close(websocket.StatusNormalClosure, "shell exited")
	case <-ctx.Done():
		conn.Close(websocket.StatusNormalClosure, "")
	}
}
