package decision

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/adamantine/internal/metrics"
	"github.com/mbd888/adamantine/internal/validation"
)

// Broadcaster streams decision outcomes to realtime subscribers.
type Broadcaster interface {
	BroadcastDecision(walletID, action, verdict, contextHash string)
}

// Handler provides the HTTP endpoint for policy decisions.
type Handler struct {
	engine *Engine
	events Broadcaster // optional
}

// NewHandler creates a new decision handler.
func NewHandler(engine *Engine, events Broadcaster) *Handler {
	return &Handler{engine: engine, events: events}
}

// RegisterRoutes sets up decision routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/decisions", h.Decide)
}

// Decide handles POST /v1/decisions
//
// The wallet submits its full operation context; the response carries the
// verdict, the canonical context hash, and classifier signals. The hash is
// what a later scope binding must match, so clients should treat it as
// opaque but stable.
func (h *Handler) Decide(c *gin.Context) {
	var body struct {
		WalletID string          `json:"walletId"`
		Action   *ActionContext  `json:"action"`
		Device   *DeviceContext  `json:"device"`
		Network  *NetworkContext `json:"network"`
		User     *UserContext    `json:"user"`
		Extra    map[string]any  `json:"extra"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed context"})
		return
	}

	if body.WalletID != "" && !validation.IsValidID(body.WalletID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "walletId must be a well-formed identifier"})
		return
	}

	// Sub-records stay nil when absent so an incomplete submission gets the
	// MISSING_CONTEXT denial rather than a zero-valued record.
	ctx := &Context{
		Action:    body.Action,
		Device:    body.Device,
		Network:   body.Network,
		User:      body.User,
		Timestamp: time.Now().Unix(),
		Extra:     body.Extra,
	}
	d, err := h.engine.Decide(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "context hashing failed"})
		return
	}

	metrics.DecisionsTotal.WithLabelValues(string(d.Verdict.Type)).Inc()
	if d.Verdict.IsStepUp() && d.Verdict.StepUp != nil && len(d.Verdict.StepUp.Requirements) > 0 {
		metrics.StepUpsTotal.WithLabelValues(d.Verdict.StepUp.Requirements[0]).Inc()
	}

	if h.events != nil {
		action := ""
		if body.Action != nil {
			action = body.Action.Action
		}
		h.events.BroadcastDecision(body.WalletID, action, string(d.Verdict.Type), d.ContextHash)
	}

	c.JSON(http.StatusOK, gin.H{"decision": d})
}
