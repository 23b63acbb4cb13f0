package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/fs"
	"github.com/weeksdev/duckfinder/shell"
)

// StateResponse is the browser's committed state plus shell status
type StateResponse struct {
	Dir           string       `json:"dir"`
	Snapshot      *fs.Snapshot `json:"snapshot"`
	ActiveSession *SessionView `json:"activeSession"`
	HistoryLength int          `json:"historyLength"`
}

// NavigateRequest is the body of POST /api/navigate
type NavigateRequest struct {
	Path string `json:"path" binding:"required"`
}

func (h *Handlers) state() StateResponse {
	ctl := h.controller()
	st := ctl.State()
	return StateResponse{
		Dir:           st.Dir,
		Snapshot:      st.Snapshot,
		ActiveSession: newSessionView(ctl.ActiveSession(), false),
		HistoryLength: ctl.History().Len(),
	}
}

// GetState handles GET /api/state
func (h *Handlers) GetState(c *gin.Context) {
	RespondData(c, h.state())
}

// GetDirectory handles GET /api/directory?path=
// Lists any directory without navigating; relative paths resolve against
// the current directory.
func (h *Handlers) GetDirectory(c *gin.Context) {
	path := fs.Resolve(h.controller().CurrentDirectory(), c.Query("path"))

	snap, err := fs.Snap(path)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondData(c, snap)
}

// Navigate handles POST /api/navigate
func (h *Handlers) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "path is required")
		return
	}

	if err := h.controller().NavigateTo(c.Request.Context(), req.Path); err != nil {
		RespondErr(c, err)
		return
	}
	RespondData(c, h.state())
}

// NavigateParent handles POST /api/navigate/parent
func (h *Handlers) NavigateParent(c *gin.Context) {
	if err := h.controller().NavigateUp(c.Request.Context()); err != nil {
		RespondErr(c, err)
		return
	}
	RespondData(c, h.state())
}

// Refresh handles POST /api/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	if err := h.controller().Refresh(c.Request.Context()); err != nil {
		RespondErr(c, err)
		return
	}
	RespondData(c, h.state())
}

// HistoryResponse lists recorded commands and the recall cursor
type HistoryResponse struct {
	Entries []string `json:"entries"`
	Cursor  int      `json:"cursor"`
}

// RecallResponse is the result of moving the history cursor
type RecallResponse struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Cursor  int    `json:"cursor"`
}

// GetHistory handles GET /api/history
func (h *Handlers) GetHistory(c *gin.Context) {
	hist := h.controller().History()
	RespondData(c, HistoryResponse{Entries: hist.Entries(), Cursor: hist.Cursor()})
}

// HistoryPrevious handles POST /api/history/previous
func (h *Handlers) HistoryPrevious(c *gin.Context) {
	h.recall(c, h.controller().HistoryPrevious)
}

// HistoryNext handles POST /api/history/next
func (h *Handlers) HistoryNext(c *gin.Context) {
	h.recall(c, h.controller().HistoryNext)
}

func (h *Handlers) recall(c *gin.Context, move func() (string, bool)) {
	cmd, ok := move()
	RespondData(c, RecallResponse{Command: cmd, OK: ok, Cursor: h.controller().History().Cursor()})
}

// SessionView is the JSON form of a shell session
type SessionView struct {
	ID         string       `json:"id"`
	Command    string       `json:"command"`
	Dir        string       `json:"dir"`
	StartedAt  time.Time    `json:"startedAt"`
	Terminated bool         `json:"terminated"`
	ExitCode   *int         `json:"exitCode,omitempty"`
	Cancelled  bool         `json:"cancelled,omitempty"`
	Lines      []shell.Line `json:"lines,omitempty"`
}

func newSessionView(s *shell.Session, withLines bool) *SessionView {
	if s == nil {
		return nil
	}
	v := &SessionView{
		ID:        s.ID,
		Command:   s.Command,
		Dir:       s.Dir,
		StartedAt: s.StartedAt,
		Cancelled: s.Cancelled(),
	}
	if code, done := s.ExitCode(); done {
		v.Terminated = true
		v.ExitCode = &code
	}
	if withLines {
		v.Lines = s.Lines()
	}
	return v
}
