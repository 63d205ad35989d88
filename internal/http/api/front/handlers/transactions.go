package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/db"
	"github.com/duskwallet/duskwallet-api/internal/models"
)

// TransactionHandler manages the authenticated user's transactions.
type TransactionHandler struct {
	db *gorm.DB
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

// transactionRequest is shared by create and update; update treats nil as "keep".
type transactionRequest struct {
	Description   *string          `json:"description" binding:"omitempty,min=3,max=200"`
	Amount        *decimal.Decimal `json:"amount"`
	Type          *string          `json:"type" binding:"omitempty,oneof=INCOME EXPENSE"`
	Category      *string          `json:"category" binding:"omitempty,category"`
	PaymentMethod *string          `json:"paymentMethod" binding:"omitempty,oneof=DINHEIRO PIX CREDITO"`
	Date          *string          `json:"date"`
}

func (r *transactionRequest) normalize() {
	for _, field := range []*string{r.Description, r.Type, r.Category, r.PaymentMethod, r.Date} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	for _, field := range []*string{r.Type, r.Category, r.PaymentMethod} {
		if field != nil {
			*field = strings.ToUpper(*field)
		}
	}
}

// checks reports field errors the struct tags cannot express.
func (r *transactionRequest) checks(requireAll bool) (gin.H, time.Time) {
	errs := gin.H{}
	if requireAll {
		required := map[string]bool{
			"description":   r.Description == nil,
			"amount":        r.Amount == nil,
			"type":          r.Type == nil,
			"category":      r.Category == nil,
			"paymentMethod": r.PaymentMethod == nil,
		}
		for field, missing := range required {
			if missing {
				errs[field] = field + " is required"
			}
		}
	}
	provided := map[string]*string{
		"description":   r.Description,
		"type":          r.Type,
		"category":      r.Category,
		"paymentMethod": r.PaymentMethod,
	}
	for field, value := range provided {
		if value != nil && *value == "" {
			errs[field] = field + " is required"
		}
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		errs["amount"] = "amount must be positive"
	}
	var date time.Time
	if r.Date != nil && *r.Date != "" {
		parsed, ok := parseDate(*r.Date)
		if !ok {
			errs["date"] = "invalid date"
		}
		date = parsed
	}
	if len(errs) > 0 {
		return gin.H{"errors": errs}, date
	}
	return nil, date
}

func parseDate(raw string) (time.Time, bool) {
	if parsed, errParse := time.Parse(time.RFC3339, raw); errParse == nil {
		return parsed.UTC(), true
	}
	if parsed, errParse := time.Parse(time.DateOnly, raw); errParse == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}

// Create adds a transaction for the current user.
func (h *TransactionHandler) Create(c *gin.Context) {
	var body transactionRequest
	if !bindJSON(c, &body) {
		return
	}
	payload, date := body.checks(true)
	if payload != nil {
		c.JSON(http.StatusBadRequest, payload)
		return
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	row := models.Transaction{
		UserID:        getUserID(c),
		Description:   *body.Description,
		Amount:        body.Amount.Round(2),
		Type:          models.TransactionType(*body.Type),
		Category:      models.Category(*body.Category),
		PaymentMethod: models.PaymentMethod(*body.PaymentMethod),
		Date:          date,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		_ = c.Error(errCreate)
		return
	}
	c.JSON(http.StatusCreated, formatTransaction(row))
}

// List returns the current user's transactions, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Transaction{}).
		Where("user_id = ?", getUserID(c))

	if txType := strings.ToUpper(strings.TrimSpace(c.Query("type"))); txType != "" {
		q = q.Where("type = ?", txType)
	}
	if category := strings.ToUpper(strings.TrimSpace(c.Query("category"))); category != "" {
		q = q.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, db.ContainsPattern(search))
		q = q.Where(db.CaseInsensitiveLikeExpr(h.db, "description"), pattern)
	}

	var rows []models.Transaction
	if errFind := q.Order("date DESC").Order("created_at DESC").Find(&rows).Error; errFind != nil {
		_ = c.Error(errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatTransaction(row))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one transaction of the current user.
func (h *TransactionHandler) Get(c *gin.Context) {
	var row models.Transaction
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), getUserID(c)).
		First(&row).Error; errFind != nil {
		if db.IsNotFound(errFind) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		_ = c.Error(errFind)
		return
	}
	c.JSON(http.StatusOK, formatTransaction(row))
}

// Update changes the provided fields of a transaction.
func (h *TransactionHandler) Update(c *gin.Context) {
	var body transactionRequest
	if !bindJSON(c, &body) {
		return
	}
	payload, date := body.checks(false)
	if payload != nil {
		c.JSON(http.StatusBadRequest, payload)
		return
	}

	updates := map[string]any{}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Amount != nil {
		updates["amount"] = body.Amount.Round(2)
	}
	if body.Type != nil {
		updates["type"] = *body.Type
	}
	if body.Category != nil {
		updates["category"] = *body.Category
	}
	if body.PaymentMethod != nil {
		updates["payment_method"] = *body.PaymentMethod
	}
	if !date.IsZero() {
		updates["date"] = date
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	ctx := c.Request.Context()
	userID := getUserID(c)
	res := h.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Updates(updates)
	if res.Error != nil {
		_ = c.Error(res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	var row models.Transaction
	if errFind := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		First(&row).Error; errFind != nil {
		_ = c.Error(errFind)
		return
	}
	c.JSON(http.StatusOK, formatTransaction(row))
}

// Delete removes a transaction of the current user.
func (h *TransactionHandler) Delete(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), getUserID(c)).
		Delete(&models.Transaction{})
	if res.Error != nil {
		_ = c.Error(res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

func formatTransaction(row models.Transaction) gin.H {
	return gin.H{
		"id":            row.ID,
		"userId":        row.UserID,
		"description":   row.Description,
		"amount":        row.Amount.InexactFloat64(),
		"type":          row.Type,
		"category":      row.Category,
		"paymentMethod": row.PaymentMethod,
		"date":          row.Date,
		"createdAt":     row.CreatedAt,
		"updatedAt":     row.UpdatedAt,
	}
}
