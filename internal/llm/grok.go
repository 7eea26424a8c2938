package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// GrokClient talks to the xAI API, which speaks the OpenAI-compatible chat
// completions protocol.
type GrokClient struct {
	client openai.Client
}

// NewGrokClient constructs a client with the xAI base URL.
func NewGrokClient(apiKey, baseURL string) *GrokClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &GrokClient{client: openai.NewClient(opts...)}
}

func (c *GrokClient) Stream(ctx context.Context, req Request, onDelta func(string), onToolCall func(string)) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: req.Messages,
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	var builder strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			for _, call := range choice.Delta.ToolCalls {
				if call.Function.Name != "" && onToolCall != nil {
					onToolCall(call.Function.Name)
				}
			}
			if delta := choice.Delta.Content; delta != "" {
				builder.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Response{}, err
	}
	return Response{Content: builder.String()}, nil
}
