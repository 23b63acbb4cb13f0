package api

import (
	"github.com/weeksdev/duckfinder/browser"
	"github.com/weeksdev/duckfinder/server"
)

// Handlers holds references to server components
type Handlers struct {
	server *server.Server
}

// NewHandlers creates a new Handlers instance with server reference
func NewHandlers(srv *server.Server) *Handlers {
	return &Handlers{server: srv}
}

func (h *Handlers) controller() *browser.Controller {
	return h.server.Browser()
}
