package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/config"
	"github.com/duskwallet/duskwallet-api/internal/models"
	"github.com/duskwallet/duskwallet-api/internal/security"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Register creates a user account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if !bindJSON(c, &body) {
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		_ = c.Error(errHash)
		return
	}

	user := models.User{Name: body.Name, Email: body.Email, Password: hash}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		_ = c.Error(errCreate)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered",
		"user":    formatUser(user),
	})
}

// Login verifies credentials and issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindJSON(c, &body) {
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("email = ?", body.Email).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		_ = c.Error(errFind)
		return
	}
	if errCheck := security.CheckPassword(user.Password, body.Password); errCheck != nil {
		if !errors.Is(errCheck, security.ErrPasswordMismatch) {
			log.WithError(errCheck).Warn("auth: password check failed")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, user.ID, h.jwtCfg.Expiry)
	if errToken != nil {
		_ = c.Error(errToken)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "logged in",
		"token":     token,
		"expiresIn": int64(h.jwtCfg.Expiry.Seconds()),
		"user":      formatUser(user),
	})
}

func formatUser(user models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"name":            user.Name,
		"email":           user.Email,
		"hasSubscription": user.HasSubscription,
		"createdAt":       user.CreatedAt,
	}
}
