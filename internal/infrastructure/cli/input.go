package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// LineReader reads one line of user input after printing a prompt.
// It returns io.EOF when input ends or the user aborts with Ctrl+C/Ctrl+D.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// NewLineReader returns a line editor with history when both ends are a
// terminal, and a plain buffered reader otherwise.
func NewLineReader(in io.Reader, out io.Writer) LineReader {
	if isTerminalReader(in) && isTerminal(out) {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		return &linerReader{state: state}
	}
	return &bufferedReader{in: bufio.NewReader(in), out: out}
}

type linerReader struct {
	state *liner.State
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	return r.state.Close()
}

type bufferedReader struct {
	in  *bufio.Reader
	out io.Writer
}

func (r *bufferedReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *bufferedReader) AppendHistory(string) {}

func (r *bufferedReader) Close() error { return nil }

func isTerminalReader(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
