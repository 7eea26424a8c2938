// Package relay forwards the wrapped event stream from a remote analysis
// backend to the caller without buffering the response body.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AppleLamps/x-wrapped/internal/api"
	"github.com/AppleLamps/x-wrapped/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Handler proxies POST /api/wrapped/stream to the analysis backend.
type Handler struct {
	backendURL string
	client     *retryablehttp.Client
	logger     *zap.Logger
}

// NewHandler targets the analysis backend at backendURL (scheme://host).
func NewHandler(backendURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	// A rejection that survives the retries must reach the caller with its
	// status and body intact, not collapse into a transport error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// The backend streams for up to five minutes; a client timeout would
	// sever the stream mid-run. Retries only apply before first byte.
	client.HTTPClient.Timeout = 0
	return &Handler{backendURL: backendURL, client: client, logger: logger}
}

// Register mounts the relay routes.
func (h *Handler) Register(router gin.IRouter) {
	router.POST("/api/wrapped/stream", h.Stream)
}

// Stream validates the request, opens the backend connection, and copies the
// body through as bytes arrive. A failure before the first byte is a normal
// HTTP error; once streaming has begun, failures travel in-band.
func (h *Handler) Stream(c *gin.Context) {
	var req api.StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "username is required")
		return
	}
	username := req.Normalize()
	if username == "" {
		api.Error(c, http.StatusBadRequest, "username is required")
		return
	}

	sessionID := uuid.NewString()
	logger := h.logger.With(zap.String("session_id", sessionID), zap.String("username", username))

	body, err := json.Marshal(api.StreamRequest{Username: username})
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "failed to encode request")
		return
	}
	// The inbound request context rides along so a client disconnect tears
	// down the backend connection instead of leaking a work slot.
	out, err := retryablehttp.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.backendURL+"/api/wrapped/stream", bytes.NewReader(body))
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "failed to build backend request")
		return
	}
	out.Header.Set("Content-Type", "application/json")
	out.Header.Set("Accept", "text/event-stream")

	resp, err := h.client.Do(out)
	if err != nil {
		logger.Error("analysis backend unreachable", zap.Error(err))
		api.Error(c, http.StatusBadGateway, "analysis backend is unreachable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := backendError(resp)
		logger.Warn("analysis backend rejected request", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		api.Error(c, resp.StatusCode, msg)
		return
	}

	api.SetStreamHeaders(c, resp.Header.Get("Content-Type"))
	c.Header("X-Wrapped-Session", sessionID)
	c.Status(http.StatusOK)
	if err := copyStream(c.Writer, resp.Body); err != nil {
		// Either side went away mid-stream; nothing useful can be sent.
		logger.Warn("stream interrupted", zap.Error(err))
	}
}

// backendError pulls the JSON error body out of a pre-stream rejection.
func backendError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg, _ := util.TruncateBytes(util.RedactSecrets(payload.Error), 512)
		return msg
	}
	return "analysis backend request failed"
}

// copyStream forwards bytes as they arrive, flushing after every read so the
// relay never defeats streaming.
func copyStream(dst gin.ResponseWriter, src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			dst.Flush()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
