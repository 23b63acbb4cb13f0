package api

import (
	"github.com/gin-gonic/gin"
)

// SubmitCommandRequest is the body of POST /api/commands
type SubmitCommandRequest struct {
	Command string `json:"command"`
}

// SubmitCommand handles POST /api/commands
// The command runs asynchronously; output arrives on /api/stream.
func (h *Handlers) SubmitCommand(c *gin.Context) {
	var req SubmitCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}

	session, err := h.controller().Submit(c.Request.Context(), req.Command)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondAccepted(c, newSessionView(session, false))
}

// GetActiveCommand handles GET /api/commands/active
func (h *Handlers) GetActiveCommand(c *gin.Context) {
	session := h.controller().ActiveSession()
	if session == nil {
		RespondNotFound(c, "no command is running")
		return
	}
	RespondData(c, newSessionView(session, true))
}

// CancelCommand handles DELETE /api/commands/:id
func (h *Handlers) CancelCommand(c *gin.Context) {
	if err := h.controller().Cancel(c.Param("id")); err != nil {
		RespondErr(c, err)
		return
	}
	RespondNoContent(c)
}
