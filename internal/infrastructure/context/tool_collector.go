package contextcollector

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// DefaultTools are the security tools looked up on PATH.
var DefaultTools = []string{
	"nmap", "gobuster", "ffuf", "hydra", "hashcat", "john", "nikto",
	"sqlmap", "nc", "curl", "msfconsole", "enum4linux", "smbclient", "searchsploit",
}

// ToolCollector implements ContextCollector with environment + tool detection.
// It only inspects PATH and never starts a process.
type ToolCollector struct {
	toolsToCheck []string
	lookPath     func(string) (string, error)
}

// NewToolCollector checks DefaultTools.
func NewToolCollector() *ToolCollector {
	return &ToolCollector{
		toolsToCheck: DefaultTools,
		lookPath:     exec.LookPath,
	}
}

// Collect gathers context data.
func (c *ToolCollector) Collect(ctx context.Context) (domain.ContextSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.ContextSnapshot{}, err
	}
	wd, _ := os.Getwd()
	return domain.ContextSnapshot{
		WorkingDir:     wd,
		Shell:          detectShell(),
		OS:             runtime.GOOS,
		User:           detectUser(),
		AvailableTools: c.detectTools(),
	}, nil
}

// detectTools keeps the order of toolsToCheck.
func (c *ToolCollector) detectTools() []string {
	var available []string
	for _, tool := range c.toolsToCheck {
		if _, err := c.lookPath(tool); err == nil {
			available = append(available, tool)
		}
	}
	return available
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	if runtime.GOOS == "windows" {
		return "powershell"
	}
	return "sh"
}

func detectUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return "unknown"
}

var _ ports.ContextCollector = (*ToolCollector)(nil)
