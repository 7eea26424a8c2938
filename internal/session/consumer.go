package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AppleLamps/x-wrapped/internal/stream"
	"github.com/AppleLamps/x-wrapped/internal/util"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// StreamPath is the wrapped generation endpoint served by wrapped-server.
const StreamPath = "/api/wrapped/stream"

// Consumer opens the wrapped stream for a username and reconciles events
// until the stream ends. One Consumer holds one Reconciler; starting a new
// Run supersedes any run still in flight.
type Consumer struct {
	baseURL string
	client  *retryablehttp.Client
	logger  *zap.Logger
	rec     *Reconciler
}

// NewConsumer targets the wrapped-server at baseURL.
func NewConsumer(baseURL string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	// A rejection that survives the retries keeps its status and body so the
	// failure message below comes from the server, not the transport.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Retries only help while establishing the connection; the analysis
	// itself can run for minutes, so the transport must not cut it short.
	client.HTTPClient.Timeout = 0
	return &Consumer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		rec:     NewReconciler(),
	}
}

// State returns the current session state.
func (c *Consumer) State() State {
	return c.rec.State()
}

// Run POSTs the username and consumes the event stream to a terminal state.
// Accepted events are forwarded to onEvent when non-nil. The returned state
// is always terminal; the error restates the failure for callers that only
// look at the error.
func (c *Consumer) Run(ctx context.Context, username string, onEvent func(stream.Event)) (State, error) {
	username = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return c.rec.State(), errors.New("username is required")
	}

	h := c.rec.Begin()
	logger := c.logger.With(zap.String("session_id", h.ID()), zap.String("username", username))

	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return c.fail(h, err.Error())
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StreamPath, bytes.NewReader(body))
	if err != nil {
		return c.fail(h, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("stream request failed", zap.Error(err))
		return c.fail(h, util.RedactSecrets(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Pre-stream rejections carry a JSON error body.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg, _ = util.TruncateBytes(payload.Error, 512)
		}
		logger.Warn("stream rejected before start", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return c.fail(h, msg)
	}

	reader := stream.NewReader(resp.Body, logger)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A transport failure mid-stream is indistinguishable from
			// silent truncation; End below turns it into a failure.
			logger.Warn("stream interrupted", zap.Error(err))
			break
		}
		if c.rec.Apply(h, ev) && onEvent != nil {
			onEvent(ev)
		}
	}
	c.rec.End(h)

	state := c.rec.State()
	if state.Phase == PhaseFailed {
		return state, errors.New(state.Failure)
	}
	return state, nil
}

// fail records an in-band failure for the handle and returns the state.
func (c *Consumer) fail(h Handle, msg string) (State, error) {
	c.rec.Apply(h, stream.Error{Message: msg})
	c.rec.End(h)
	state := c.rec.State()
	return state, errors.New(state.Failure)
}
