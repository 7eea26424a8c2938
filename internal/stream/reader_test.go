package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// chunkReader serves its payload in fixed-size pieces to exercise arbitrary
// chunk boundaries, including splits inside multi-byte runes.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.size
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

func encodeAll(t *testing.T, events []Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
	}
	return buf.Bytes()
}

func readAll(t *testing.T, src io.Reader) []Event {
	t.Helper()
	r := NewReader(src, nil)
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("unexpected read error: %v", err)
		}
		out = append(out, ev)
	}
}

func TestReaderRoundTripAnyChunkSize(t *testing.T) {
	events := []Event{
		Progress{Step: 0, Total: 13, Message: "Starting analysis for @alice..."},
		Progress{Step: 3, Total: 13, Message: "Analyzing March...", Month: "March"},
		AnalysisChunk{Content: "🔍 found 42 posts with 高いエンゲージメント"},
		AnalysisChunk{Content: strings.Repeat("long fragment ", 2000)},
		Complete{Data: []byte(`{"year_summary":"quite a year","overview":{"total_posts":42}}`)},
	}
	encoded := encodeAll(t, events)

	for _, size := range []int{1, 2, 3, 7, 64, len(encoded)} {
		got := readAll(t, &chunkReader{data: encoded, size: size})
		if len(got) != len(events) {
			t.Fatalf("chunk size %d: expected %d events, got %d", size, len(events), len(got))
		}
		for i := range events {
			if !reflect.DeepEqual(normalize(got[i]), normalize(events[i])) {
				t.Fatalf("chunk size %d: event %d mismatch: %#v != %#v", size, i, got[i], events[i])
			}
		}
	}
}

// normalize compares Complete payloads by compact JSON value.
func normalize(ev Event) Event {
	if c, ok := ev.(Complete); ok {
		var buf bytes.Buffer
		if err := json.Compact(&buf, c.Data); err != nil {
			return c
		}
		return Complete{Data: append([]byte(nil), buf.Bytes()...)}
	}
	return ev
}

func TestReaderDecodesFinalEventWithoutNewline(t *testing.T) {
	payload, err := Marshal(Complete{Data: []byte(`{"year_summary":"done"}`)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	raw := encodeAll(t, []Event{Progress{Step: 1, Total: 2, Message: "Starting"}})
	raw = append(raw, []byte(Marker)...)
	raw = append(raw, payload...) // no trailing newline

	got := readAll(t, bytes.NewReader(raw))
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if _, ok := got[1].(Complete); !ok {
		t.Fatalf("expected trailing complete event, got %#v", got[1])
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	raw := strings.Join([]string{
		Marker + `{"type":"progress","step":1,"total":3,"message":"ok"}`,
		Marker + `{"type":"progress","step":2,`, // truncated JSON
		"noise without marker",
		Marker + `{"type":"analysis_chunk","content":"still decoding"}`,
		"",
	}, "\n")

	got := readAll(t, strings.NewReader(raw))
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %#v", len(got), got)
	}
	if chunk, ok := got[1].(AnalysisChunk); !ok || chunk.Content != "still decoding" {
		t.Fatalf("decoding did not continue past malformed line: %#v", got[1])
	}
}

func TestReaderIgnoresUnknownTypes(t *testing.T) {
	raw := strings.Join([]string{
		Marker + `{"type":"heartbeat"}`,
		Marker + `{"type":"analysis_chunk","content":"kept"}`,
		"",
	}, "\n")

	got := readAll(t, strings.NewReader(raw))
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestReaderSurfacesErrorEventAmongGarbage(t *testing.T) {
	raw := strings.Join([]string{
		Marker + `{"type":"progress","step":1,`, // broken
		Marker + `{"type":"error","error":"backend exploded"}`,
		Marker + `not json either`,
		"",
	}, "\n")

	got := readAll(t, strings.NewReader(raw))
	if len(got) != 1 {
		t.Fatalf("expected exactly the error event, got %#v", got)
	}
	errEv, ok := got[0].(Error)
	if !ok || errEv.Message != "backend exploded" {
		t.Fatalf("error event not surfaced: %#v", got[0])
	}
}

func TestReaderPropagatesTransportError(t *testing.T) {
	src := io.MultiReader(strings.NewReader(Marker+`{"type":"progress","step":1,"total":2,"message":"ok"}`+"\n"), failingReader{})
	r := NewReader(src, nil)
	if _, err := r.Next(); err != nil {
		t.Fatalf("expected first event, got error: %v", err)
	}
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
