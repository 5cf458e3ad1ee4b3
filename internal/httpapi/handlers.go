package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ivr-platform/internal/auth"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/rbac"
	"ivr-platform/internal/reporting"
	"ivr-platform/internal/wallet"
	"ivr-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallFinder is the read side of the call repository.
type CallFinder interface {
	FindBundle(ctx context.Context, callSID string) (calls.Bundle, error)
}

// Handlers serves the operator API. Keep these thin: parse input, call
// internal services, return JSON.
type Handlers struct {
	Calls   CallFinder
	Wallet  wallet.Ledger
	Reports *reporting.Service
}

// Register mounts the operator routes on rg. rg must already verify the
// bearer token.
func (h Handlers) Register(rg *gin.RouterGroup) {
	rg.GET("/calls/:sid", append(rbac.Chain(rbac.CallReaders...), h.GetCall)...)
	rg.GET("/credits", append(rbac.Chain(rbac.CreditReaders...), h.GetCredits)...)
	rg.POST("/credits", append(rbac.Chain(), h.ManualCredit)...)
	rg.GET("/reports/campaigns/:id", append(rbac.Chain(rbac.ReportReaders...), h.CampaignReport)...)
	rg.GET("/reports/spend", append(rbac.Chain(rbac.CreditReaders...), h.SpendReport)...)
}

type callResponse struct {
	SID             string            `json:"sid"`
	Status          calls.CallStatus  `json:"status"`
	DurationSeconds int               `json:"duration"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	CampaignID      string            `json:"campaign_id"`
	CurrentStep     string            `json:"current_step"`
	Disposition     calls.Disposition `json:"disposition,omitempty"`
	Result          calls.Result      `json:"result"`
	AnsweredAt      *time.Time        `json:"answered_at,omitempty"`
	EndedAt         *time.Time        `json:"ended_at,omitempty"`
}

// GetCall returns the IVR state of one call in the caller's workspace.
// Calls in other workspaces are reported as not found.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	b, err := h.Calls.FindBundle(c.Request.Context(), c.Param("sid"))
	switch {
	case errors.Is(err, calls.ErrCallNotFound), errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("call lookup failed", slog.String("call_sid", c.Param("sid")), slog.String("err", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if b.Call.WorkspaceID != workspaceID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}

	result := b.Attempt.Result
	if result == nil {
		result = calls.Result{}
	}
	c.JSON(http.StatusOK, callResponse{
		SID:             b.Call.SID,
		Status:          b.Call.Status,
		DurationSeconds: b.Call.DurationSeconds,
		StartTime:       b.Call.StartTime,
		EndTime:         b.Call.EndTime,
		CampaignID:      b.Campaign.ID,
		CurrentStep:     b.Attempt.CurrentStep,
		Disposition:     b.Attempt.Disposition,
		Result:          result,
		AnsweredAt:      b.Attempt.AnsweredAt,
		EndedAt:         b.Attempt.EndedAt,
	})
}

// GetCredits returns the caller's workspace balance.
func (h Handlers) GetCredits(c *gin.Context) {
	if h.Wallet == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "wallet not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	bal, err := h.Wallet.Balance(c.Request.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
			return
		}
		logger.FromGin(c).Error("balance lookup failed", slog.String("workspace", workspaceID), slog.String("err", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, bal)
}

type manualCreditRequest struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

// ManualCredit tops up the caller's workspace. super_admin only.
func (h Handlers) ManualCredit(c *gin.Context) {
	if h.Wallet == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "wallet not configured"})
		return
	}
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil || id.WorkspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	var req manualCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "amount and idempotency_key required"})
		return
	}

	note := req.Note
	if note == "" {
		note = "manual credit by " + id.UserID
	}
	res, err := h.Wallet.Credit(c.Request.Context(), id.WorkspaceID, wallet.CreditRequest{
		Amount:         req.Amount,
		Note:           note,
		IdempotencyKey: "manual:" + req.IdempotencyKey,
	})
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
		return
	case errors.Is(err, wallet.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.FromGin(c).Error("manual credit failed", slog.String("workspace", id.WorkspaceID), slog.String("err", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credit failed"})
		return
	}

	logger.FromGin(c).Info("manual credit",
		slog.String("workspace", id.WorkspaceID),
		slog.String("user_id", id.UserID),
		slog.Int64("amount", req.Amount),
		slog.Bool("duplicate", res.Duplicate),
	)
	c.JSON(http.StatusOK, res)
}
