package stream

import (
	"fmt"
	"io"
	"net/http"
)

// Marker prefixes every wire record.
const Marker = "data: "

// Encoder writes events as newline-delimited marker records. Every Encode is
// a single write followed by a flush, so a partial result reaches the
// consumer the moment it is known. Unrelated events are never batched into
// one write.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder wraps a writer. If the writer implements http.Flusher each
// record is flushed through to the connection.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Encode writes one event record plus a blank framing line.
func (e *Encoder) Encode(ev Event) error {
	payload, err := Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "%s%s\n\n", Marker, payload); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
