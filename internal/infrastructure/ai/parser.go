package ai

import (
	"regexp"
	"strings"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

var (
	// fencePattern captures the header line and body of a fenced block. A
	// block written on one line (```nmap -sV host```) has only a header. The
	// end of the reply closes a fence cut off by the token limit.
	fencePattern = regexp.MustCompile("(?s)```([^\n`]*)\n?(.*?)(?:```|$)")
	// commandLinePattern matches "Command: ..." with an optional bullet and
	// emphasis around the label. Groups: opening marks, closing marks, value.
	commandLinePattern = regexp.MustCompile(`(?im)^[ \t]*(?:[-*>][ \t]+)?(\**)[ \t]*command[ \t]*(\**)[ \t]*:[ \t]*(.*)$`)
	// inlineSpanPattern matches a line made of a single `span`.
	inlineSpanPattern = regexp.MustCompile("^`([^`\n]+)`$")
	// promptLinePattern matches a line starting with a "$ " shell prompt.
	promptLinePattern = regexp.MustCompile(`(?m)^[ \t]*\$[ \t]+(.+)$`)
	// explanationLabel strips an "Explanation:" label at line start.
	explanationLabel = regexp.MustCompile(`(?im)^\**[ \t]*explanation[ \t]*\**[ \t]*:[ \t]*(?:\*\*)?[ \t]*`)
	blankRuns        = regexp.MustCompile(`\n{3,}`)
)

// languageTags are fence headers that name a language rather than a command.
var languageTags = map[string]bool{
	"sh": true, "bash": true, "shell": true, "zsh": true, "fish": true,
	"console": true, "shell-session": true, "terminal": true,
	"powershell": true, "ps1": true, "cmd": true, "bat": true,
	"text": true, "plaintext": true, "txt": true,
	"python": true, "py": true, "ruby": true, "perl": true,
}

// Parser implements ports.ResponseParser.
type Parser struct{}

// NewParser builds a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements ports.ResponseParser.
func (Parser) Parse(reply string) domain.Extraction {
	return ParseResponse(reply)
}

// ParseResponse extracts a command and explanation from a model reply. The
// strategies are tried in order: fenced block, "Command:" line, a leading
// inline span, a "$ " prompt line. When none yields a command the whole
// reply is returned as the explanation with Found unset.
func ParseResponse(reply string) domain.Extraction {
	text := strings.TrimSpace(strings.ReplaceAll(reply, "\r\n", "\n"))
	if text == "" {
		return domain.Extraction{}
	}

	for _, extract := range []func(string) (string, string, bool){
		extractFenced,
		extractCommandLine,
		extractInlineSpan,
		extractPromptLine,
	} {
		if command, rest, ok := extract(text); ok {
			return domain.Extraction{
				Command:     command,
				Explanation: cleanExplanation(rest),
				Found:       true,
			}
		}
	}
	return domain.Extraction{Explanation: text}
}

func extractFenced(text string) (string, string, bool) {
	for _, loc := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
		header := strings.TrimSpace(text[loc[2]:loc[3]])
		body := text[loc[4]:loc[5]]

		command := cleanBlock(body)
		if !usable(command) && !languageTags[strings.ToLower(header)] {
			command = strings.TrimSpace(header)
		}
		if !usable(command) {
			continue
		}
		rest := text[:loc[0]] + "\n" + text[loc[1]:]
		return command, rest, true
	}
	return "", "", false
}

// cleanBlock trims a block body and drops "$ " prompts from its lines.
func cleanBlock(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasPrefix(strings.TrimLeft(trimmed, " \t"), "$ ") {
			trimmed = strings.TrimPrefix(strings.TrimLeft(trimmed, " \t"), "$ ")
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func extractCommandLine(text string) (string, string, bool) {
	for _, loc := range commandLinePattern.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[6]:loc[7]]
		// "**Command:** x" closes the label emphasis after the colon.
		if open, closed := loc[3]-loc[2], loc[5]-loc[4]; open > closed {
			value = strings.TrimPrefix(value, strings.Repeat("*", open-closed))
		}
		command := trimDecorations(value)
		if !usable(command) {
			continue
		}
		rest := text[:loc[0]] + text[loc[1]:]
		return command, rest, true
	}
	return "", "", false
}

func extractInlineSpan(text string) (string, string, bool) {
	first, rest, _ := strings.Cut(text, "\n")
	match := inlineSpanPattern.FindStringSubmatch(strings.TrimSpace(first))
	if match == nil {
		return "", "", false
	}
	command := strings.TrimSpace(match[1])
	if !usable(command) {
		return "", "", false
	}
	return command, rest, true
}

func extractPromptLine(text string) (string, string, bool) {
	loc := promptLinePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", "", false
	}
	command := trimDecorations(text[loc[2]:loc[3]])
	if !usable(command) {
		return "", "", false
	}
	return command, text[:loc[0]] + text[loc[1]:], true
}

// trimDecorations removes balanced markdown emphasis and code ticks around
// a value. Unbalanced characters are kept since "*" is a valid glob.
func trimDecorations(value string) string {
	value = strings.TrimSpace(value)
	for {
		trimmed := value
		for _, mark := range []string{"**", "`"} {
			if len(trimmed) > 2*len(mark) && strings.HasPrefix(trimmed, mark) && strings.HasSuffix(trimmed, mark) {
				trimmed = strings.TrimSpace(trimmed[len(mark) : len(trimmed)-len(mark)])
			}
		}
		if trimmed == value {
			return value
		}
		value = trimmed
	}
}

// usable rejects values left with nothing but markup or a bare prompt.
func usable(command string) bool {
	return strings.Trim(command, "`*$ \t\n") != ""
}

func cleanExplanation(text string) string {
	text = strings.TrimSpace(text)
	text = explanationLabel.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var _ ports.ResponseParser = (*Parser)(nil)
