package cli

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/doeshing/strike-go/internal/ports"
)

// Clipboard implements ports.Clipboard on top of the system clipboard.
type Clipboard struct{}

// NewClipboard builds the clipboard helper.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Enabled reports whether a clipboard utility was found at startup.
func (c *Clipboard) Enabled() bool {
	return !clipboard.Unsupported
}

// Copy copies text to the system clipboard.
func (c *Clipboard) Copy(text string) error {
	if !c.Enabled() {
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
	return clipboard.WriteAll(text)
}

var _ ports.Clipboard = (*Clipboard)(nil)
