package cli

import (
	"fmt"
	"io"

	"github.com/doeshing/strike-go/internal/ports"
)

// streamWriter prints streamed chunks as they arrive.
type streamWriter struct {
	out   io.Writer
	wrote bool
}

// NewStreamWriter builds a streamWriter for out.
func NewStreamWriter(out io.Writer) *streamWriter {
	return &streamWriter{out: out}
}

func (s *streamWriter) WriteChunk(text string) error {
	if text == "" {
		return nil
	}
	s.wrote = true
	_, err := io.WriteString(s.out, text)
	return err
}

// Done terminates the streamed line.
func (s *streamWriter) Done() error {
	if !s.wrote {
		return nil
	}
	_, err := fmt.Fprintln(s.out)
	return err
}

// Wrote reports whether any chunk was printed.
func (s *streamWriter) Wrote() bool {
	return s.wrote
}

var _ ports.StreamWriter = (*streamWriter)(nil)
