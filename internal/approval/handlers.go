package approval

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/adamantine/internal/metrics"
	"github.com/mbd888/adamantine/internal/validation"
)

// EventPublisher receives approval lifecycle events for realtime streaming.
type EventPublisher interface {
	ApprovalRequested(req *Request)
	ApprovalDecided(req *Request, guardianID string)
}

// Handler provides HTTP endpoints for the guardian workflow.
type Handler struct {
	engine *Engine
	store  Store
	events EventPublisher // optional
}

// NewHandler creates a new approval handler.
func NewHandler(engine *Engine, store Store, events EventPublisher) *Handler {
	return &Handler{engine: engine, store: store, events: events}
}

// RegisterRoutes sets up approval routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/approvals/evaluate", h.Evaluate)
	r.GET("/approvals", h.List)
	r.GET("/approvals/:id", h.Get)
	r.POST("/approvals/:id/decisions", h.Decide)
	r.POST("/approvals/:id/cancel", h.Cancel)
}

// Evaluate handles POST /v1/approvals/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	var req struct {
		Action      string `json:"action"`
		WalletID    string `json:"walletId"`
		AccountID   string `json:"accountId"`
		AssetID     string `json:"assetId"`
		Value       int64  `json:"value"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed body"})
		return
	}

	errs := validation.Validate(
		validation.Required("action", req.Action),
		validation.ValidID("walletId", req.WalletID),
		validation.ValidID("accountId", req.AccountID),
		validation.ValidID("assetId", req.AssetID),
	)
	if actionCarriesValue(RuleAction(req.Action)) {
		errs = append(errs, validation.Validate(validation.PositiveAmount("value", req.Value))...)
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": errs.Error(), "details": errs})
		return
	}

	ctx := ActionContext{
		Action:      RuleAction(req.Action),
		WalletID:    req.WalletID,
		AccountID:   req.AccountID,
		AssetID:     req.AssetID,
		Value:       req.Value,
		Description: validation.SanitizeString(req.Description, 500),
	}

	verdict, request := h.engine.Evaluate(ctx)
	metrics.GuardianEvaluationsTotal.WithLabelValues(string(verdict)).Inc()

	if request != nil {
		if err := h.store.Create(c.Request.Context(), request); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to persist approval request"})
			return
		}
		metrics.ApprovalRequestsTotal.WithLabelValues(string(request.Status)).Inc()
		if h.events != nil {
			h.events.ApprovalRequested(request)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"verdict": verdict,
		"request": request,
		"payload": h.engine.BuildUIPayload(verdict, request),
	})
}

// List handles GET /v1/approvals
func (h *Handler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	requests, err := h.store.List(c.Request.Context(), c.Query("walletId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if requests == nil {
		requests = []*Request{}
	}
	for _, req := range requests {
		h.refreshAndPersist(c, req)
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// Get handles GET /v1/approvals/:id
func (h *Handler) Get(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}
	h.refreshAndPersist(c, req)
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// Decide handles POST /v1/approvals/:id/decisions
//
// Guardian identity and vote status are validated here; the engine trusts
// its inputs once past this boundary.
func (h *Handler) Decide(c *gin.Context) {
	var body struct {
		GuardianID string `json:"guardianId"`
		Status     string `json:"status"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed body"})
		return
	}

	if errs := validation.Validate(
		validation.Required("guardianId", body.GuardianID),
		validation.ValidID("guardianId", body.GuardianID),
		validation.Required("status", body.Status),
		validation.MaxLength("reason", body.Reason, 500),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": errs.Error(), "details": errs})
		return
	}

	status := Status(body.Status)
	if status != StatusApproved && status != StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "message": "status must be APPROVED or REJECTED"})
		return
	}

	// The lock must span load, apply, and persist: two overlapping votes that
	// both load before either writes would otherwise each keep only their own
	// vote, and the second write would erase the first.
	unlock := h.engine.LockRequest(c.Param("id"))
	defer unlock()

	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if !isRequiredGuardian(req, body.GuardianID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown_guardian", "message": "guardian is not in the required set for this request"})
		return
	}

	err := h.engine.applyDecisionLocked(req, body.GuardianID, status, validation.SanitizeString(body.Reason, 500))
	if err == ErrRequestTerminal {
		c.JSON(http.StatusConflict, gin.H{"error": "request_terminal", "message": "request is already " + string(req.Status), "request": req})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	if err := h.store.Update(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to persist vote"})
		return
	}

	metrics.GuardianVotesTotal.WithLabelValues(string(status)).Inc()
	if req.IsTerminal() {
		metrics.ApprovalRequestsTotal.WithLabelValues(string(req.Status)).Inc()
	}
	if h.events != nil {
		h.events.ApprovalDecided(req, body.GuardianID)
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// Cancel handles POST /v1/approvals/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	unlock := h.engine.LockRequest(c.Param("id"))
	defer unlock()

	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if err := h.engine.cancelLocked(req); err == ErrRequestTerminal {
		c.JSON(http.StatusConflict, gin.H{"error": "request_terminal", "message": "request is already " + string(req.Status)})
		return
	}

	if err := h.store.Update(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to persist cancellation"})
		return
	}
	metrics.ApprovalRequestsTotal.WithLabelValues(string(StatusCancelled)).Inc()
	c.JSON(http.StatusOK, gin.H{"request": req})
}

func (h *Handler) loadRequest(c *gin.Context) (*Request, bool) {
	req, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrRequestNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "approval request not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return nil, false
	}
	return req, true
}

// refreshAndPersist applies the lazy expiry check; if the request flipped to
// EXPIRED, the transition is written back so readers converge. The request is
// reloaded under the per-request lock so the write-back cannot clobber a vote
// recorded after the caller's read; the caller's copy is updated in place.
func (h *Handler) refreshAndPersist(c *gin.Context, req *Request) {
	unlock := h.engine.LockRequest(req.ID)
	defer unlock()

	fresh, err := h.store.Get(c.Request.Context(), req.ID)
	if err != nil {
		return
	}
	if h.engine.refreshLocked(fresh) {
		_ = h.store.Update(c.Request.Context(), fresh)
		metrics.ApprovalRequestsTotal.WithLabelValues(string(StatusExpired)).Inc()
	}
	*req = *fresh
}

// actionCarriesValue reports whether the action moves value, in which case
// the evaluated amount must be positive for threshold rules to be meaningful.
func actionCarriesValue(a RuleAction) bool {
	switch a {
	case ActionSend, ActionDDMint, ActionDDRedeem, ActionAssetIssue, ActionAssetBurn:
		return true
	}
	return false
}

func isRequiredGuardian(req *Request, guardianID string) bool {
	for _, gid := range req.RequiredGuardians {
		if gid == guardianID {
			return true
		}
	}
	return false
}
