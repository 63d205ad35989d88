package front

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duskwallet/duskwallet-api/internal/db"
	"github.com/duskwallet/duskwallet-api/internal/ratelimit"
)

const (
	maxBodyBytes    = 10 << 20
	requestIDHeader = "X-Request-ID"
)

// requestLogMiddleware tags each request with an ID and logs its outcome.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

// corsMiddleware enables permissive CORS for browser clients.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		MaxAge:        24 * time.Hour,
	})
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		c.Next()
	}
}

// bodyLimitMiddleware rejects bodies larger than limit bytes.
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

var rateLimitMessages = map[ratelimit.Scope]string{
	ratelimit.ScopeGeneral: "too many requests, try again later",
	ratelimit.ScopeAuth:    "too many login attempts, try again later",
}

// rateLimitMiddleware applies every policy for the path; the first exhausted one rejects.
func rateLimitMiddleware(manager *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		policies := ratelimit.ResolvePolicies(c.Request.URL.Path, manager.Settings())
		ip := c.ClientIP()
		for _, policy := range policies {
			key := ratelimit.KeyForClient(policy.Scope, ip)
			if key == "" {
				continue
			}
			result, errAllow := manager.Allow(c.Request.Context(), key, policy.Limit, policy.Window)
			if errAllow != nil {
				log.WithError(errAllow).Warn("rate limit: check failed")
				continue
			}
			resetSeconds := int(math.Ceil(time.Until(result.Reset).Seconds()))
			if resetSeconds < 0 {
				resetSeconds = 0
			}
			c.Header("RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("RateLimit-Remaining", strconv.Itoa(result.Remaining))
			c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))
			if !result.Allowed {
				c.Header("Retry-After", strconv.Itoa(resetSeconds))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitMessages[policy.Scope]})
				return
			}
		}
		c.Next()
	}
}

// errorMiddleware turns errors attached with c.Error into JSON responses.
func errorMiddleware(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var maxBytesErr *http.MaxBytesError
		switch {
		case db.IsUniqueViolation(err):
			field := db.UniqueViolationField(err)
			if field == "" {
				field = "value"
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s already in use", field)})
		case db.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		case errors.As(err, &maxBytesErr):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		default:
			log.WithError(err).WithField("path", c.Request.URL.Path).Error("http: unhandled error")
			body := gin.H{"error": "internal server error"}
			if debug {
				body["message"] = err.Error()
			}
			c.JSON(http.StatusInternalServerError, body)
		}
	}
}
