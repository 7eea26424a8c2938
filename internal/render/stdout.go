package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AppleLamps/x-wrapped/internal/stream"
)

// StdoutRenderer streams session events to a plain text writer.
type StdoutRenderer struct {
	w                io.Writer
	mu               sync.Mutex
	verbose          bool
	quiet            bool
	sawChunk         bool
	endedWithNewline bool
}

// NewStdoutRenderer creates a renderer for plain text streaming. Verbose mode
// streams the model's commentary as it arrives; quiet mode prints only the
// final report or error.
func NewStdoutRenderer(w io.Writer, verbose bool, quiet bool) *StdoutRenderer {
	return &StdoutRenderer{w: w, verbose: verbose, quiet: quiet}
}

func (r *StdoutRenderer) Emit(ev stream.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch v := ev.(type) {
	case stream.Progress:
		if r.quiet {
			return
		}
		r.breakChunkLine()
		label := v.Message
		if v.Month != "" {
			label = fmt.Sprintf("%s (%s)", v.Message, v.Month)
		}
		fmt.Fprintf(r.w, "[%d/%d] %s\n", v.Step, v.Total, label)
	case stream.AnalysisChunk:
		if !r.verbose {
			return
		}
		if v.Content == "" {
			return
		}
		fmt.Fprint(r.w, v.Content)
		r.sawChunk = true
		r.endedWithNewline = strings.HasSuffix(v.Content, "\n")
	case stream.Complete:
		r.breakChunkLine()
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, v.Data, "", "  "); err != nil {
			fmt.Fprintln(r.w, string(v.Data))
			return
		}
		if !r.quiet {
			fmt.Fprintln(r.w, "\nYour wrapped report:")
		}
		fmt.Fprintln(r.w, pretty.String())
	case stream.Error:
		r.breakChunkLine()
		fmt.Fprintf(r.w, "\nError: %s\n", v.Message)
	}
}

// breakChunkLine terminates a dangling commentary line before block output.
func (r *StdoutRenderer) breakChunkLine() {
	if r.sawChunk && !r.endedWithNewline {
		fmt.Fprintln(r.w)
		r.endedWithNewline = true
	}
}

func (r *StdoutRenderer) Close() error {
	return nil
}
