package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
)

// Request is a simplified streaming chat completion request.
type Request struct {
	Model    string
	Messages []openai.ChatCompletionMessageParamUnion
}

// Response is the aggregated model output once the stream has drained.
type Response struct {
	Content   string
	Citations []string
}

// Client streams a model response. onDelta receives content fragments in
// arrival order; onToolCall receives the name of each tool the model invokes
// while researching. Either callback may be nil.
type Client interface {
	Stream(ctx context.Context, req Request, onDelta func(delta string), onToolCall func(name string)) (Response, error)
}
