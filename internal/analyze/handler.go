// Package analyze generates the wrapped report: it runs one agentic model
// request per username and encodes progress, commentary, and the final
// report onto the open event stream as they become available.
package analyze

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AppleLamps/x-wrapped/internal/api"
	"github.com/AppleLamps/x-wrapped/internal/llm"
	"github.com/AppleLamps/x-wrapped/internal/stream"
	"github.com/AppleLamps/x-wrapped/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// Handler serves the analysis stream directly.
type Handler struct {
	client llm.Client
	model  string
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler builds the analyzer around a model client.
func NewHandler(client llm.Client, model string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, model: model, logger: logger, now: time.Now}
}

// Register mounts the analyzer routes.
func (h *Handler) Register(router gin.IRouter) {
	router.POST("/api/wrapped/stream", h.Stream)
}

// Stream validates the request and produces the event stream. Everything
// after the 200 header travels in-band, including failures.
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
	api.SetStreamHeaders(c, "")
	c.Header("X-Wrapped-Session", sessionID)
	c.Status(http.StatusOK)

	logger := h.logger.With(zap.String("session_id", sessionID), zap.String("username", username))
	h.run(c.Request.Context(), stream.NewEncoder(c.Writer), username, logger)
}

// run produces the full event sequence for one username.
func (h *Handler) run(ctx context.Context, enc *stream.Encoder, username string, logger *zap.Logger) {
	clientGone := false
	emit := func(ev stream.Event) {
		if clientGone {
			return
		}
		if err := enc.Encode(ev); err != nil {
			// The consumer stopped reading; keep draining the model but
			// stop writing. Nothing else can be delivered on this stream.
			logger.Warn("client went away mid-stream", zap.Error(err))
			clientGone = true
		}
	}

	year := h.now().Year()
	emit(stream.Progress{Step: 0, Total: 2, Message: fmt.Sprintf("🚀 Firing up Grok for @%s...", username)})

	rotation := newMessageRotation()
	var builder strings.Builder
	resp, err := h.client.Stream(ctx,
		llm.Request{
			Model:    h.model,
			Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(analysisPrompt(username, year))},
		},
		func(delta string) {
			builder.WriteString(delta)
			emit(stream.AnalysisChunk{Content: delta})
		},
		func(toolName string) {
			emit(stream.Progress{Step: 1, Total: 2, Message: rotation.Message(toolName)})
		},
	)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		emit(stream.Error{Message: util.RedactSecrets(err.Error())})
		return
	}

	text := builder.String()
	if text == "" {
		text = resp.Content
	}
	report := ExtractReport(text, resp.Citations)
	logger.Info("analysis complete",
		zap.Int("report_bytes", len(report)),
		zap.String("preview", util.Preview(string(report), 3, 300)),
	)
	emit(stream.Complete{Data: report})
}
