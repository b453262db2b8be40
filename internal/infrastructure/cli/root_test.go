package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/strike-go/internal/testutil"
)

type runResult struct {
	code   int
	stdout string
	stderr string
}

func runStrike(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, Options{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errOut,
	})
	return runResult{code: code, stdout: out.String(), stderr: errOut.String()}
}

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STRIKE_CONFIG", "")
}

func assertContains(t *testing.T, output string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n--- output ---\n%s", want, output)
		}
	}
}

func TestUnreachableServerExitsWithHint(t *testing.T) {
	isolateHome(t)
	url := testutil.UnreachableURL(t)

	res := runStrike(t, "", "--endpoint", url)

	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	assertContains(t, res.stderr,
		"Error: inference server is not reachable at "+url,
		"Start it with: ollama serve")
}

func TestInteractiveSession(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b", "llama3:8b")

	stdin := strings.Join([]string{
		"scan the target",
		"1",
		"history",
		"switch",
		"4",
		"explain the scan",
		"2",
		"templates sql",
		"help",
		"exit",
	}, "\n") + "\n"

	res := runStrike(t, stdin, "--endpoint", fake.URL, "--model", "gemma3:12b")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"CommandStrike - CTF Assistant",
		"✓ Inference server is running",
		"✓ Model 'gemma3:12b' is available",
		"Ready to assist with CTF challenges!",
		"Generated Command: nmap -sV 10.0.0.5",
		"Simulating command execution...",
		"Command 'nmap -sV 10.0.0.5' executed successfully.",
		"Interpretation:",
		"1. [gemma3:12b] scan the target",
		"(executed, simulated)",
		"Switched to model 'llama3:8b'",
		"Explanation:",
		"Explanation time:",
		"SQLi test",
		"CommandStrike Commands:",
		"Thank you for using CommandStrike!",
	)

	requests := fake.Requests()
	var models []string
	for _, req := range requests {
		models = append(models, req.Model)
	}
	want := []string{"gemma3:12b", "gemma3:12b", "llama3:8b", "llama3:8b"}
	if diff := cmp.Diff(want, models); diff != "" {
		t.Fatalf("request models mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(requests[2].Prompt, "Request 1: scan the target") {
		t.Fatalf("history not carried into the next prompt:\n%s", requests[2].Prompt)
	}
}

func TestSwitchToMissingModelDeclined(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b")

	res := runStrike(t, "switch\n5\nn\nexit\n", "--endpoint", fake.URL)

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"Model 'phi3:14b' is not available. Would you like to pull it? (y/n)",
		"Keeping current model.")
	if len(fake.Pulls()) != 0 {
		t.Fatalf("unexpected pulls: %v", fake.Pulls())
	}
}

func TestMissingModelPulledWithYes(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t)

	res := runStrike(t, "exit\n", "--endpoint", fake.URL, "--model", "phi3:14b", "--yes")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"Model 'phi3:14b' is not available locally.",
		"✓ Model 'phi3:14b' pulled successfully")
	if diff := cmp.Diff([]string{"phi3:14b"}, fake.Pulls()); diff != "" {
		t.Fatalf("pulls mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingModelDeclinedContinues(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t)

	res := runStrike(t, "n\nexit\n", "--endpoint", fake.URL, "--model", "phi3:14b")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"Would you like to pull it from the Ollama repository? (y/n)",
		"ollama pull phi3:14b",
		"Thank you for using CommandStrike!")
	if len(fake.Pulls()) != 0 {
		t.Fatalf("unexpected pulls: %v", fake.Pulls())
	}
}

func TestArchivedSessionCanBeListed(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b")
	archive := filepath.Join(t.TempDir(), "exchanges.db")

	res := runStrike(t, "scan the target\n3\n", "--endpoint", fake.URL, "--archive", archive)
	if res.code != 0 {
		t.Fatalf("session exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout, "Skipping to next request")

	list := runStrike(t, "", "archive", archive)
	if list.code != 0 {
		t.Fatalf("archive exit code = %d, stderr:\n%s", list.code, list.stderr)
	}
	assertContains(t, list.stdout, "gemma3:12b | scan the target | nmap -sV 10.0.0.5")

	export := runStrike(t, "", "archive", "--json", archive)
	if export.code != 0 {
		t.Fatalf("archive --json exit code = %d, stderr:\n%s", export.code, export.stderr)
	}
	assertContains(t, export.stdout, `"command":"nmap -sV 10.0.0.5"`)
}

func TestArchiveMissingFile(t *testing.T) {
	isolateHome(t)
	res := runStrike(t, "", "archive", filepath.Join(t.TempDir(), "absent.db"))
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	assertContains(t, res.stderr, "no archive at")
}

func TestAskCommand(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b")

	res := runStrike(t, "", "--endpoint", fake.URL, "ask", "scan", "the", "host")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout, "Generated Command: nmap -sV 10.0.0.5", "Scans service versions.")
	if got := fake.Requests()[0].Prompt; !strings.Contains(got, "scan the host") {
		t.Fatalf("request not in prompt:\n%s", got)
	}
}

func TestAskWithoutCommandFails(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b")
	fake.SetReply(func(string, string) string { return "I am not sure what you mean." })

	res := runStrike(t, "", "--endpoint", fake.URL, "ask", "do", "something")

	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	assertContains(t, res.stdout, "No command found in the response.")
	assertContains(t, res.stderr, "did not return a command")
}

func TestAskUnreachable(t *testing.T) {
	isolateHome(t)
	url := testutil.UnreachableURL(t)

	res := runStrike(t, "", "--endpoint", url, "ask", "scan")

	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	assertContains(t, res.stderr, "not reachable at "+url)
}

func TestTemplatesCommand(t *testing.T) {
	isolateHome(t)

	res := runStrike(t, "", "templates")
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"Network Reconnaissance:",
		"- Host discovery: nmap -sn 192.168.1.0/24",
		"Always ensure you have permission to test the targets.")

	filtered := runStrike(t, "", "templates", "gobuster")
	assertContains(t, filtered.stdout, "Directory enumeration")
	if strings.Contains(filtered.stdout, "Host discovery") {
		t.Fatalf("filter kept unrelated template:\n%s", filtered.stdout)
	}
}

func TestModelsCommand(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b", "custom:1b")

	res := runStrike(t, "", "--endpoint", fake.URL, "models")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	assertContains(t, res.stdout,
		"Recommended Models:",
		"mixtral:8x7b",
		"Installed Models:",
		"- gemma3:12b (current)",
		"- custom:1b")
}

func TestDoctorCommand(t *testing.T) {
	isolateHome(t)
	fake := testutil.NewFakeOllama(t, "gemma3:12b")

	res := runStrike(t, "", "--endpoint", fake.URL, "doctor")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stdout:\n%s\nstderr:\n%s", res.code, res.stdout, res.stderr)
	}
	assertContains(t, res.stdout,
		"[OK] Inference server - "+fake.URL,
		"[OK] Model - gemma3:12b",
		"[OK] Guardrail - ")
}

func TestVersionCommand(t *testing.T) {
	res := runStrike(t, "", "version")
	if res.code != 0 {
		t.Fatalf("exit code = %d", res.code)
	}
	assertContains(t, res.stdout, "strike version dev", "Go version:")
}
