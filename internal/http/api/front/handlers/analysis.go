package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/duskwallet/duskwallet-api/internal/analysis"
	"github.com/duskwallet/duskwallet-api/internal/models"
	"github.com/duskwallet/duskwallet-api/internal/quota"
)

// QuotaStatusReader reports a user's quota without consuming it.
type QuotaStatusReader interface {
	Status(ctx context.Context, userID string) (quota.Status, error)
}

// AnalysisHandler serves the AI analysis endpoints.
type AnalysisHandler struct {
	service *analysis.Service
	gate    QuotaStatusReader
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(service *analysis.Service, gate QuotaStatusReader) *AnalysisHandler {
	return &AnalysisHandler{service: service, gate: gate}
}

// Generate runs a new analysis, subject to the weekly quota.
func (h *AnalysisHandler) Generate(c *gin.Context) {
	userID := getUserID(c)
	result, errAnalyze := h.service.Analyze(c.Request.Context(), userID)
	if errAnalyze != nil {
		var exhausted *quota.ExhaustedError
		switch {
		case errors.As(errAnalyze, &exhausted):
			c.JSON(http.StatusForbidden, gin.H{
				"error":          "weekly analysis limit reached",
				"details":        "free accounts get 2 analyses per week",
				"limitReached":   true,
				"daysUntilReset": exhausted.DaysUntilReset,
			})
		case errors.Is(errAnalyze, quota.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(errAnalyze, analysis.ErrGenerationFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": analysis.MessageGenerationFailed})
		case errors.Is(errAnalyze, quota.ErrContention):
			writeContention(c)
		default:
			log.WithError(errAnalyze).WithField("user_id", userID).Error("analysis: generate failed")
			_ = c.Error(errAnalyze)
		}
		return
	}

	if result.Analysis == nil {
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
		return
	}
	resp := gin.H{"analysis": formatAnalysis(*result.Analysis)}
	if !result.Unlimited {
		resp["aiAnalysisRemaining"] = result.Remaining
		resp["message"] = result.Message
	}
	c.JSON(http.StatusOK, resp)
}

// Last returns the most recent analysis.
func (h *AnalysisHandler) Last(c *gin.Context) {
	record, errLatest := h.service.Latest(c.Request.Context(), getUserID(c))
	if errLatest != nil {
		h.writeLookupError(c, errLatest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": formatAnalysis(record)})
}

// Status reports quota without consuming it.
func (h *AnalysisHandler) Status(c *gin.Context) {
	status, errStatus := h.gate.Status(c.Request.Context(), getUserID(c))
	if errStatus != nil {
		switch {
		case errors.Is(errStatus, quota.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(errStatus, quota.ErrContention):
			writeContention(c)
		default:
			_ = c.Error(errStatus)
		}
		return
	}
	if status.HasSubscription {
		c.JSON(http.StatusOK, gin.H{
			"hasSubscription": true,
			"remaining":       "unlimited",
			"maxPerWeek":      status.MaxPerWindow,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hasSubscription": false,
		"remaining":       status.Remaining,
		"maxPerWeek":      status.MaxPerWindow,
		"daysUntilReset":  status.DaysUntilReset,
	})
}

// History lists past analyses, newest first.
func (h *AnalysisHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, errAtoi := strconv.Atoi(raw)
		if errAtoi != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"limit": "limit must be a number"}})
			return
		}
		limit = parsed
	}
	rows, errHistory := h.service.History(c.Request.Context(), getUserID(c), limit)
	if errHistory != nil {
		_ = c.Error(errHistory)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"summary":   row.Summary,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"analyses": out, "limit": analysis.ClampHistoryLimit(limit)})
}

// Get returns one analysis owned by the current user.
func (h *AnalysisHandler) Get(c *gin.Context) {
	record, errGet := h.service.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if errGet != nil {
		h.writeLookupError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": formatAnalysis(record)})
}

func writeContention(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{"error": "analysis already in progress, try again"})
}

func (h *AnalysisHandler) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, analysis.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	_ = c.Error(err)
}

func formatAnalysis(record models.Analysis) gin.H {
	return gin.H{
		"id":               record.ID,
		"summary":          record.Summary,
		"positivePoint":    record.PositivePoint,
		"attentionPoint":   record.AttentionPoint,
		"patternsDetected": nonNil(record.PatternsDetected),
		"advice":           nonNil(record.Advice),
		"emergencyPlan":    nonNil(record.EmergencyPlan),
		"createdAt":        record.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
