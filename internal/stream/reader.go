package stream

import (
	"bytes"
	"errors"
	"io"

	"go.uber.org/zap"
)

const readChunkSize = 4096

// Reader reassembles an incremental byte stream into events. Chunk
// boundaries are arbitrary: a read may end mid-line or mid-rune, so bytes
// accumulate in a buffer and only complete newline-terminated segments are
// decoded. The trailing segment is held back until more bytes arrive or the
// source reports end-of-stream.
type Reader struct {
	src     io.Reader
	logger  *zap.Logger
	buf     []byte
	lines   [][]byte
	scratch []byte
	eof     bool
	drained bool
}

// NewReader wraps a byte source. A nil logger disables skip diagnostics.
func NewReader(src io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{src: src, logger: logger, scratch: make([]byte, readChunkSize)}
}

// Next returns the next decoded event in arrival order. Lines that are blank,
// lack the marker prefix, fail to parse, or carry an unknown type are skipped;
// an explicit error record still comes back as a regular Error event rather
// than being swallowed with the malformed lines. Next returns io.EOF once the
// stream is exhausted, including the final unterminated segment.
func (r *Reader) Next() (Event, error) {
	for {
		for len(r.lines) > 0 {
			line := r.lines[0]
			r.lines = r.lines[1:]
			if ev := r.decodeLine(line); ev != nil {
				return ev, nil
			}
		}
		if r.eof {
			if !r.drained {
				r.drained = true
				rest := r.buf
				r.buf = nil
				if ev := r.decodeLine(rest); ev != nil {
					return ev, nil
				}
			}
			return nil, io.EOF
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// fill appends one read worth of bytes and splits off complete lines.
func (r *Reader) fill() error {
	n, err := r.src.Read(r.scratch)
	if n > 0 {
		r.buf = append(r.buf, r.scratch[:n]...)
		for {
			idx := bytes.IndexByte(r.buf, '\n')
			if idx < 0 {
				break
			}
			line := make([]byte, idx)
			copy(line, r.buf[:idx])
			r.lines = append(r.lines, line)
			r.buf = r.buf[idx+1:]
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err != nil {
		r.eof = true
	}
	return nil
}

var markerBytes = []byte(Marker)

func (r *Reader) decodeLine(line []byte) Event {
	trimmed := bytes.TrimSpace(line)
	if !bytes.HasPrefix(trimmed, markerBytes) {
		return nil
	}
	ev, err := Unmarshal(trimmed[len(markerBytes):])
	if err != nil {
		r.logger.Debug("skipping malformed stream line", zap.ByteString("line", trimmed))
		return nil
	}
	return ev
}
