package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ivr-platform/internal/auth"
	"ivr-platform/internal/reporting"
	"ivr-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DefaultReportWindow is used when a report request has no "from".
const DefaultReportWindow = 24 * time.Hour

// CampaignReport summarises the calls of one campaign that ended in [from, to).
func (h Handlers) CampaignReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	rng, ok := reportRange(c)
	if !ok {
		return
	}

	out, err := h.Reports.CampaignSummary(c.Request.Context(), reporting.CampaignSummaryRequest{
		WorkspaceID: workspaceID,
		CampaignID:  c.Param("id"),
		Range:       rng,
	})
	if err != nil {
		reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SpendReport sums ledger rows created in [from, to).
func (h Handlers) SpendReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	rng, ok := reportRange(c)
	if !ok {
		return
	}

	out, err := h.Reports.SpendSummary(c.Request.Context(), reporting.SpendSummaryRequest{WorkspaceID: workspaceID, Range: rng})
	if err != nil {
		reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// reportRange reads RFC 3339 "from" and "to" query params. "to" defaults to
// now and "from" to DefaultReportWindow before "to".
func reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	rng := reporting.TimeRange{To: time.Now().UTC()}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		rng.To = t
	}
	rng.From = rng.To.Add(-DefaultReportWindow)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		rng.From = t
	}
	return rng, true
}

func reportError(c *gin.Context, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid report request"})
		return
	}
	logger.FromGin(c).Error("report failed", slog.String("err", err.Error()))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}
