package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/doeshing/strike-go/internal/domain"
)

func newBuilder(t *testing.T, window int) *PromptBuilder {
	t.Helper()
	builder, err := NewPromptBuilder(window)
	if err != nil {
		t.Fatalf("NewPromptBuilder error: %v", err)
	}
	return builder
}

func TestCommandPromptWithoutHistory(t *testing.T) {
	builder := newBuilder(t, 3)
	prompt, err := builder.CommandPrompt("  scan ports on 10.0.0.5 ", nil, domain.ContextSnapshot{OS: "linux", Shell: "bash"})
	if err != nil {
		t.Fatalf("CommandPrompt error: %v", err)
	}

	want := "Generate a shell command that accomplishes the following security task:\n\n" +
		"scan ports on 10.0.0.5\n\n" + NoHistoryText
	if prompt.User != want {
		t.Fatalf("user prompt = %q, want %q", prompt.User, want)
	}
	if !strings.Contains(prompt.System, "- OS: linux") || !strings.Contains(prompt.System, "- Shell: bash") {
		t.Fatalf("system prompt missing environment: %s", prompt.System)
	}
	if !strings.Contains(prompt.System, "Installed tools: none detected") {
		t.Fatalf("system prompt should report no tools: %s", prompt.System)
	}
}

func TestCommandPromptRendersHistoryNewestFirst(t *testing.T) {
	builder := newBuilder(t, 3)
	history := []domain.Exchange{
		{Prompt: "list smb shares", Command: "smbclient -L //10.0.0.5 -N", Result: "Sharename IPC$"},
		{Prompt: "scan ports"},
	}
	snapshot := domain.ContextSnapshot{OS: "linux", Shell: "zsh", AvailableTools: []string{"nmap", "smbclient"}}

	prompt, err := builder.CommandPrompt("enumerate users", history, snapshot)
	if err != nil {
		t.Fatalf("CommandPrompt error: %v", err)
	}

	wantTail := "Here are some previous interactions:\n\n" +
		"Request 1: list smb shares\nCommand: smbclient -L //10.0.0.5 -N\nResult: Sharename IPC$\n\n" +
		"Request 2: scan ports\nCommand: none\nResult: not executed"
	if !strings.HasSuffix(prompt.User, wantTail) {
		t.Fatalf("user prompt history mismatch:\n%s", prompt.User)
	}
	if strings.Contains(prompt.User, NoHistoryText) {
		t.Fatal("no-history text rendered alongside history")
	}
	if !strings.Contains(prompt.System, "Installed tools: nmap, smbclient") {
		t.Fatalf("system prompt missing tools: %s", prompt.System)
	}
}

func TestCommandPromptTruncatesToWindow(t *testing.T) {
	builder := newBuilder(t, 1)
	history := []domain.Exchange{{Prompt: "newest"}, {Prompt: "older"}}

	prompt, err := builder.CommandPrompt("next", history, domain.ContextSnapshot{})
	if err != nil {
		t.Fatalf("CommandPrompt error: %v", err)
	}
	if !strings.Contains(prompt.User, "Request 1: newest") {
		t.Fatalf("newest exchange missing:\n%s", prompt.User)
	}
	if strings.Contains(prompt.User, "older") {
		t.Fatalf("exchange beyond window rendered:\n%s", prompt.User)
	}
}

func TestCommandPromptZeroWindow(t *testing.T) {
	for _, window := range []int{0, -2} {
		builder := newBuilder(t, window)
		prompt, err := builder.CommandPrompt("next", []domain.Exchange{{Prompt: "old"}}, domain.ContextSnapshot{})
		if err != nil {
			t.Fatalf("CommandPrompt error: %v", err)
		}
		if !strings.HasSuffix(prompt.User, NoHistoryText) {
			t.Fatalf("window %d should render no history:\n%s", window, prompt.User)
		}
	}
}

func TestCommandPromptRejectsBlankRequest(t *testing.T) {
	builder := newBuilder(t, 3)
	if _, err := builder.CommandPrompt(" \t", nil, domain.ContextSnapshot{}); !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestExplainPrompt(t *testing.T) {
	builder := newBuilder(t, 3)
	prompt, err := builder.ExplainPrompt(" nmap -sC 10.0.0.5 ")
	if err != nil {
		t.Fatalf("ExplainPrompt error: %v", err)
	}
	want := "Explain in detail what this command does and its security implications: nmap -sC 10.0.0.5"
	if prompt.User != want {
		t.Fatalf("user prompt = %q", prompt.User)
	}
	if prompt.System == "" {
		t.Fatal("system prompt empty")
	}

	if _, err := builder.ExplainPrompt(""); !errors.Is(err, domain.ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

func TestInterpretPrompt(t *testing.T) {
	builder := newBuilder(t, 3)
	prompt, err := builder.InterpretPrompt(domain.Exchange{
		Prompt:  "scan ports",
		Command: "nmap 10.0.0.5",
		Result:  "22/tcp open ssh",
	})
	if err != nil {
		t.Fatalf("InterpretPrompt error: %v", err)
	}
	for _, want := range []string{
		"For the request: scan ports",
		"The following command was executed: nmap 10.0.0.5",
		"22/tcp open ssh",
	} {
		if !strings.Contains(prompt.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, prompt.User)
		}
	}
}
