package assistant

import (
	"strings"

	"github.com/doeshing/strike-go/internal/ports"
)

// accumulator concatenates streamed chunks in arrival order and forwards
// each one to an optional writer as it arrives.
type accumulator struct {
	writer ports.StreamWriter
	buf    strings.Builder
	chunks int
}

func newAccumulator(writer ports.StreamWriter) *accumulator {
	return &accumulator{writer: writer}
}

// add appends chunk and forwards it to the writer. It satisfies
// ports.ChunkHandler.
func (a *accumulator) add(chunk string) error {
	if chunk == "" {
		return nil
	}
	a.buf.WriteString(chunk)
	a.chunks++
	if a.writer != nil {
		return a.writer.WriteChunk(chunk)
	}
	return nil
}

// done signals stream end to the writer.
func (a *accumulator) done() error {
	if a.writer != nil {
		return a.writer.Done()
	}
	return nil
}

func (a *accumulator) text() string {
	return a.buf.String()
}
