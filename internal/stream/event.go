package stream

import (
	"encoding/json"
	"fmt"
)

// Type discriminates wire records.
type Type string

const (
	TypeProgress      Type = "progress"
	TypeAnalysisChunk Type = "analysis_chunk"
	TypeComplete      Type = "complete"
	TypeError         Type = "error"
)

// Event is one record of the producer-to-consumer stream. At most one of
// Complete/Error occurs per stream and it is the last event accepted.
type Event interface {
	Type() Type
}

// Progress reports the unit of work currently underway.
type Progress struct {
	Step    int
	Total   int
	Message string
	Month   string
}

func (Progress) Type() Type { return TypeProgress }

// AnalysisChunk carries a fragment of model commentary. Fragments are
// order-significant and carry no boundary guarantees.
type AnalysisChunk struct {
	Content string
}

func (AnalysisChunk) Type() Type { return TypeAnalysisChunk }

// Complete delivers the final report and terminates the stream successfully.
// The report shape is opaque to the protocol.
type Complete struct {
	Data json.RawMessage
}

func (Complete) Type() Type { return TypeComplete }

// Error terminates the stream with a failure message.
type Error struct {
	Message string
}

func (Error) Type() Type { return TypeError }

// envelope is the flat wire form shared by all variants.
type envelope struct {
	Type    Type            `json:"type"`
	Step    int             `json:"step"`
	Total   int             `json:"total"`
	Message string          `json:"message"`
	Month   string          `json:"month"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Marshal renders an event as its wire JSON object.
func Marshal(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case Progress:
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Step    int    `json:"step"`
			Total   int    `json:"total"`
			Message string `json:"message"`
			Month   string `json:"month,omitempty"`
		}{TypeProgress, v.Step, v.Total, v.Message, v.Month})
	case AnalysisChunk:
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Content string `json:"content"`
		}{TypeAnalysisChunk, v.Content})
	case Complete:
		return json.Marshal(struct {
			Type Type            `json:"type"`
			Data json.RawMessage `json:"data"`
		}{TypeComplete, v.Data})
	case Error:
		return json.Marshal(struct {
			Type  Type   `json:"type"`
			Error string `json:"error"`
		}{TypeError, v.Message})
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}
}

// Unmarshal decodes one wire JSON object into its event variant. Records with
// an unrecognized type return (nil, nil) so consumers can skip additions to
// the protocol without failing.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeProgress:
		return Progress{Step: env.Step, Total: env.Total, Message: env.Message, Month: env.Month}, nil
	case TypeAnalysisChunk:
		return AnalysisChunk{Content: env.Content}, nil
	case TypeComplete:
		return Complete{Data: env.Data}, nil
	case TypeError:
		return Error{Message: env.Error}, nil
	default:
		return nil, nil
	}
}
