package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/models"
)

// DashboardHandler aggregates the user's totals.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// typeTotal is one row of the per-type aggregation.
type typeTotal struct {
	Type  models.TransactionType
	Total decimal.NullDecimal
	Count int64
}

// Summary returns income, expense and balance across all transactions.
func (h *DashboardHandler) Summary(c *gin.Context) {
	var rows []typeTotal
	if errQuery := h.db.WithContext(c.Request.Context()).
		Model(&models.Transaction{}).
		Select("type, SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ?", getUserID(c)).
		Group("type").
		Scan(&rows).Error; errQuery != nil {
		_ = c.Error(errQuery)
		return
	}

	income, expense := decimal.Zero, decimal.Zero
	summary := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.Total.Valid {
			total = row.Total.Decimal
		}
		switch row.Type {
		case models.TransactionTypeIncome:
			income = income.Add(total)
		case models.TransactionTypeExpense:
			expense = expense.Add(total)
		}
		summary = append(summary, gin.H{
			"type":  row.Type,
			"total": total.Round(2).InexactFloat64(),
			"count": row.Count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"totalIncome":  income.Round(2).InexactFloat64(),
		"totalExpense": expense.Round(2).InexactFloat64(),
		"balance":      income.Sub(expense).Round(2).InexactFloat64(),
		"summaryData":  summary,
	})
}
