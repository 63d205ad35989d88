package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const healthPingTimeout = 3 * time.Second

// HealthHandler reports service and database liveness.
type HealthHandler struct {
	db          *gorm.DB
	environment string
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB, environment string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment}
}

// Root answers GET /.
func (h *HealthHandler) Root(c *gin.Context) {
	if !h.ping(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "online",
		"message":     "DuskWallet API is running",
		"database":    "connected",
		"environment": h.environment,
	})
}

// API answers GET /api.
func (h *HealthHandler) API(c *gin.Context) {
	if !h.ping(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"message":   "DuskWallet API v1.0.0",
		"database":  "connected",
		"endpoints": []string{"/api/auth", "/api/transactions", "/api/dashboard", "/api/analysis"},
	})
}

func (h *HealthHandler) ping(c *gin.Context) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	sqlDB, errDB := h.db.DB()
	if errDB == nil {
		errDB = sqlDB.PingContext(ctx)
	}
	if errDB != nil {
		log.WithError(errDB).Error("health: database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Database connection failed",
		})
		return false
	}
	return true
}
