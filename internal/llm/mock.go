package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient produces a deterministic analysis stream for tests and demos.
type MockClient struct {
	mu sync.Mutex
}

// NewMockClient returns a simple mock.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Stream(ctx context.Context, req Request, onDelta func(string), onToolCall func(string)) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if onToolCall != nil {
		onToolCall("x_keyword_search")
		onToolCall("code_execution")
		onToolCall("x_keyword_search")
	}

	deltas := []string{
		"Scanning the timeline for standout moments. ",
		"Here is the report:\n```json\n",
		`{"year_summary":"A year of steady posting with a spring spike.",`,
		`"overview":{"total_posts":42,"best_month":"March"}}`,
		"\n```",
	}
	var builder strings.Builder
	for _, delta := range deltas {
		builder.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return Response{Content: builder.String(), Citations: []string{"https://x.com/alice/status/1"}}, nil
}
