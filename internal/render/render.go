package render

import "github.com/AppleLamps/x-wrapped/internal/stream"

// Renderer consumes session events for presentation.
type Renderer interface {
	Emit(stream.Event)
	Close() error
}
