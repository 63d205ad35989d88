package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/analysis"
	"github.com/duskwallet/duskwallet-api/internal/config"
	"github.com/duskwallet/duskwallet-api/internal/http/api/front/handlers"
	"github.com/duskwallet/duskwallet-api/internal/quota"
	"github.com/duskwallet/duskwallet-api/internal/ratelimit"
	"github.com/duskwallet/duskwallet-api/internal/security"
)

// Deps carries everything the routes need.
type Deps struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	Analysis    *analysis.Service
	Gate        *quota.Gate
	Limiter     *ratelimit.Manager // Nil disables rate limiting.
	Debug       bool
	Environment string
}

// RegisterFrontRoutes installs middleware and the public API on r.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}
	handlers.RegisterValidators()

	r.Use(gin.CustomRecovery(recoveryHandler))
	r.Use(requestLogMiddleware())
	r.Use(corsMiddleware())
	r.Use(securityHeadersMiddleware())
	r.Use(bodyLimitMiddleware(maxBodyBytes))
	if deps.Limiter != nil {
		r.Use(rateLimitMiddleware(deps.Limiter))
	}
	r.Use(errorMiddleware(deps.Debug))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Environment)
	r.GET("/", healthHandler.Root)
	r.GET("/api", healthHandler.API)

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	authed := r.Group("/api")
	authed.Use(userAuthMiddleware(deps.JWT))

	transactionHandler := handlers.NewTransactionHandler(deps.DB)
	authed.POST("/transactions", transactionHandler.Create)
	authed.GET("/transactions", transactionHandler.List)
	authed.GET("/transactions/:id", transactionHandler.Get)
	authed.PUT("/transactions/:id", transactionHandler.Update)
	authed.DELETE("/transactions/:id", transactionHandler.Delete)

	dashboardHandler := handlers.NewDashboardHandler(deps.DB)
	authed.GET("/dashboard", dashboardHandler.Summary)

	if deps.Analysis != nil && deps.Gate != nil {
		analysisHandler := handlers.NewAnalysisHandler(deps.Analysis, deps.Gate)
		authed.GET("/analysis", analysisHandler.Generate)
		authed.GET("/analysis/last", analysisHandler.Last)
		authed.GET("/analysis/status", analysisHandler.Status)
		authed.GET("/analysis/history", analysisHandler.History)
		authed.GET("/analysis/:id", analysisHandler.Get)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

// userAuthMiddleware validates user JWTs and stores the user ID in the context.
func userAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handlers.ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

func recoveryHandler(c *gin.Context, recovered any) {
	log.WithFields(log.Fields{
		"panic":  recovered,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).Error("http: recovered from panic")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
