// Package api exposes the World Orchestrator over HTTP, the way the
// teacher's pkg/api exposes session state: a thin Gin layer translating
// requests into kernel/store calls, with no business logic of its own.
// The command endpoints write to the commands collection rather than
// mutating the kernel directly — the step loop drains and applies them
// between steps (see pkg/command), so the HTTP handler never touches a
// running step.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/proxima-sim/proxima/pkg/command"
	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/store"
)

// Server wires the kernel and document store to a set of read/control
// HTTP endpoints.
type Server struct {
	kernel  *kernel.Kernel
	store   store.Store
	dropped func() int64
}

// NewServer creates a Server. dropped reports the remote log sink's
// permanently-dropped upload count for GET /health; pass nil if no
// remote sink is configured (e.g. a --read-only run).
func NewServer(k *kernel.Kernel, s store.Store, dropped func() int64) *Server {
	if dropped == nil {
		dropped = func() int64 { return 0 }
	}
	return &Server{kernel: k, store: s, dropped: dropped}
}

// Register mounts every endpoint on router.
func (s *Server) Register(router gin.IRouter) {
	router.GET("/health", s.Health)
	router.GET("/status", s.Status)
	router.GET("/log", s.Log)
	router.POST("/commands", s.PostCommand)
}

// Health handles GET /health: a liveness probe plus the one gauge an
// operator needs paged on — dropped remote log uploads.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"t":             s.kernel.T,
		"paused":        s.kernel.Paused(),
		"log_dropped":   s.dropped(),
		"experiment_id": s.kernel.ExperimentID,
	})
}

// Status handles GET /status: the current step, pause state and every
// registered policy's enabled flag, for a dashboard to poll.
func (s *Server) Status(c *gin.Context) {
	policies := make(map[string]bool, len(s.kernel.Policies()))
	for id, p := range s.kernel.Policies() {
		policies[id] = p.Enabled()
	}
	c.JSON(http.StatusOK, gin.H{
		"experiment_id":  s.kernel.ExperimentID,
		"run_seed":       s.kernel.RunSeed,
		"t":              s.kernel.T,
		"paused":         s.kernel.Paused(),
		"overdraft_mode": s.kernel.OverdraftMode,
		"policies":       policies,
	})
}

// Log handles GET /log: the most recently committed step's log. Older
// steps live in the document store's logs collection (see pkg/logsink
// and pkg/retention) and are not served here, since the kernel only
// keeps its own last step in memory.
func (s *Server) Log(c *gin.Context) {
	c.JSON(http.StatusOK, s.kernel.LastLog())
}

// postCommandRequest is the HTTP body accepted by POST /commands: the
// same kind/payload shape command.Command stores, minus the fields the
// server fills in itself (id, queued_at, applied).
type postCommandRequest struct {
	Kind    command.Kind    `json:"kind" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// PostCommand handles POST /commands: enqueues a control command for the
// next Drain rather than applying it immediately, so every command takes
// effect between steps regardless of whether it arrived over HTTP or was
// seeded into the store directly.
func (s *Server) PostCommand(c *gin.Context) {
	var req postCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	doc := map[string]any{
		"id":        id,
		"kind":      string(req.Kind),
		"payload":   req.Payload,
		"queued_at": time.Now().UTC(),
		"applied":   false,
	}
	if err := s.store.Put(c.Request.Context(), store.CollectionCommands, id, doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}
