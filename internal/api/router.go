package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-jobboard-scraper/internal/logger"
)

const ownerKey = "owner_id"

// RequireUser rejects requests without an identity header.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(UserHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserHeader + " header"})
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// RequestLogger logs each request through log.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}

// NewRouter mounts the API. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/api/v1", RequireUser())
	v1.POST("/scrape", h.Scrape)
	v1.GET("/jobs", h.ListJobs)
	return r
}
