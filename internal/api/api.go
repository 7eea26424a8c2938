// Package api holds the HTTP plumbing shared by the analyzer and relay
// handlers: router construction, CORS, request/response shapes, and the
// event-stream response headers.
package api

import (
	"net/http"
	"strings"

	"github.com/AppleLamps/x-wrapped/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamRequest is the body of POST /api/wrapped/stream.
type StreamRequest struct {
	Username string `json:"username"`
}

// Normalize trims whitespace and a leading @ as a caller convenience.
func (r StreamRequest) Normalize() string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(r.Username), "@"))
}

// Error writes the pre-stream JSON error body.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Health answers the documented health check.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "X Wrapped API - Use POST to generate wrapped",
		"version": version.Version,
	})
}

// SetStreamHeaders marks the response as an open event stream: no caching,
// keep-alive, and no intermediary buffering (X-Accel-Buffering for nginx).
func SetStreamHeaders(c *gin.Context, contentType string) {
	if contentType == "" {
		contentType = "text/event-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// NewRouter builds the shared gin engine with recovery, request logging,
// CORS, and health routes wired.
func NewRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORS())
	router.GET("/api", Health)
	router.GET("/api/wrapped/stream", Health)
	return router
}
