package ai

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/strike-go/internal/domain"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  domain.Extraction
	}{
		{
			name:  "fenced bash block with explanation",
			reply: "```bash\nnmap -sV -p- 10.10.10.5\n```\nExplanation: Scans all ports.",
			want: domain.Extraction{
				Command:     "nmap -sV -p- 10.10.10.5",
				Explanation: "Scans all ports.",
				Found:       true,
			},
		},
		{
			name:  "command line with inline code",
			reply: "Command: `gobuster dir -u http://x -w list.txt`\nExplanation: Brute forces directories.",
			want: domain.Extraction{
				Command:     "gobuster dir -u http://x -w list.txt",
				Explanation: "Brute forces directories.",
				Found:       true,
			},
		},
		{
			name:  "bold labels",
			reply: "**Command:** nc -lvnp 4444\n**Explanation:** Opens a listener.",
			want: domain.Extraction{
				Command:     "nc -lvnp 4444",
				Explanation: "Opens a listener.",
				Found:       true,
			},
		},
		{
			name:  "bold value",
			reply: "Command: **nc -lvnp 4444**",
			want: domain.Extraction{
				Command: "nc -lvnp 4444",
				Found:   true,
			},
		},
		{
			name:  "bullet with bold code value",
			reply: "- Command: **`hydra -l admin -P rockyou.txt ssh://10.0.0.5`**\nExplanation: Brute forces SSH.",
			want: domain.Extraction{
				Command:     "hydra -l admin -P rockyou.txt ssh://10.0.0.5",
				Explanation: "Brute forces SSH.",
				Found:       true,
			},
		},
		{
			name:  "bold label and bold value",
			reply: "**Command:** **id**",
			want: domain.Extraction{
				Command: "id",
				Found:   true,
			},
		},
		{
			name:  "bold label with empty code",
			reply: "**Command:** ``",
			want: domain.Extraction{
				Explanation: "**Command:** ``",
			},
		},
		{
			name:  "lone backtick",
			reply: "Command: `",
			want: domain.Extraction{
				Explanation: "Command: `",
			},
		},
		{
			name:  "fence holding only a prompt",
			reply: "```sh\n$ \n```",
			want: domain.Extraction{
				Explanation: "```sh\n$ \n```",
			},
		},
		{
			name:  "fence cut off before closing",
			reply: "Explanation: Lists listening sockets.\n```bash\nss -tlnp\n",
			want: domain.Extraction{
				Command:     "ss -tlnp",
				Explanation: "Lists listening sockets.",
				Found:       true,
			},
		},
		{
			name:  "leading inline span",
			reply: "`sqlmap -u http://t/?id=1 --dbs`\nEnumerates databases.",
			want: domain.Extraction{
				Command:     "sqlmap -u http://t/?id=1 --dbs",
				Explanation: "Enumerates databases.",
				Found:       true,
			},
		},
		{
			name:  "shell prompt line",
			reply: "Run this:\n$ hashcat -m 0 hash.txt rockyou.txt\nIt cracks MD5.",
			want: domain.Extraction{
				Command:     "hashcat -m 0 hash.txt rockyou.txt",
				Explanation: "Run this:\n\nIt cracks MD5.",
				Found:       true,
			},
		},
		{
			name:  "glob survives",
			reply: "```\nls -la *.txt\n```",
			want: domain.Extraction{
				Command: "ls -la *.txt",
				Found:   true,
			},
		},
		{
			name:  "prompt inside fence is dropped",
			reply: "```bash\n$ id\n```",
			want: domain.Extraction{
				Command: "id",
				Found:   true,
			},
		},
		{
			name:  "crlf line endings",
			reply: "```bash\r\nwhoami\r\n```\r\nExplanation: Prints the user.",
			want: domain.Extraction{
				Command:     "whoami",
				Explanation: "Prints the user.",
				Found:       true,
			},
		},
		{
			name:  "no command",
			reply: "I cannot help with that request.",
			want: domain.Extraction{
				Explanation: "I cannot help with that request.",
			},
		},
		{
			name:  "empty reply",
			reply: "  \n ",
			want:  domain.Extraction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.reply)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResponseKeepsMultiLineBlocks(t *testing.T) {
	reply := "```bash\nfor p in 22 80; do\n  nc -zv host $p\ndone\n```"
	got := ParseResponse(reply)
	want := "for p in 22 80; do\n  nc -zv host $p\ndone"
	if got.Command != want {
		t.Fatalf("command = %q, want %q", got.Command, want)
	}
}

func TestParseResponseSingleLineFence(t *testing.T) {
	got := ParseResponse("Use ```whoami``` to check.")
	if !got.Found || got.Command != "whoami" {
		t.Fatalf("expected whoami, got %+v", got)
	}
}

func TestParseResponseSkipsEmptyFence(t *testing.T) {
	got := ParseResponse("```bash\n```\nCommand: id")
	if !got.Found || got.Command != "id" {
		t.Fatalf("expected id from command line, got %+v", got)
	}
}

func TestParseResponseFoundMatchesCommand(t *testing.T) {
	replies := []string{
		"",
		"```bash\n```",
		"```bash\n\n\n```",
		"Command:",
		"Command: ``",
		"**Command:** ``",
		"Command: `",
		"Command: **",
		"```sh\n$ \n```",
		"``",
		"$ ",
		"just prose",
		"```sh\nid\n```",
		"Command: id",
	}
	for _, reply := range replies {
		got := ParseResponse(reply)
		if got.Found != (got.Command != "") {
			t.Fatalf("ParseResponse(%q) = %+v: Found disagrees with Command", reply, got)
		}
	}
}

func TestParserImplementsPort(t *testing.T) {
	got := NewParser().Parse("```bash\nid\n```")
	if got.Err() != nil {
		t.Fatalf("unexpected error: %v", got.Err())
	}
	if got.Command != "id" {
		t.Fatalf("command = %q", got.Command)
	}
}
