package contextcollector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToolCollectorDetectsInstalledTools(t *testing.T) {
	installed := map[string]bool{"nmap": true, "curl": true, "hydra": true}
	collector := &ToolCollector{
		toolsToCheck: DefaultTools,
		lookPath: func(name string) (string, error) {
			if installed[name] {
				return "/usr/bin/" + name, nil
			}
			return "", errors.New("not found")
		},
	}

	t.Setenv("SHELL", "/usr/bin/zsh")
	t.Setenv("USER", "kali")

	snapshot, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	if diff := cmp.Diff([]string{"nmap", "hydra", "curl"}, snapshot.AvailableTools); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
	if snapshot.Shell != "zsh" {
		t.Errorf("shell = %s, want zsh", snapshot.Shell)
	}
	if snapshot.User != "kali" {
		t.Errorf("user = %s, want kali", snapshot.User)
	}
	wd, _ := os.Getwd()
	if snapshot.WorkingDir != wd {
		t.Errorf("working dir = %s, want %s", snapshot.WorkingDir, wd)
	}
}

func TestToolCollectorHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewToolCollector().Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
