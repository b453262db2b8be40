package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// NoHistoryText replaces the history section when nothing was exchanged yet.
const NoHistoryText = "No previous interaction history."

const commandSystemTemplate = `You are CommandStrike, an advanced cybersecurity assistant specializing in CTF challenges and security assessments.

Your task is to translate natural language security requests into precise shell commands.

Guidelines:
1. Generate exactly one command (use pipes or && to chain steps when needed)
2. Ensure the command is appropriate for security testing purposes
3. Use appropriate flags and options for comprehensive results
4. Consider common security tools like nmap, hydra, gobuster, hashcat, metasploit when applicable
5. Prefer tools that are installed on the operator's machine
6. Never include destructive commands unless explicitly asked to create a demo environment
7. When analyzing files or directories, use the context from previous commands

For reconnaissance and scanning:
- Be thorough with port scanning parameters
- Include service version detection when relevant
- Use appropriate wordlists for directory/file enumeration

For exploitation and testing:
- Use parameterized commands where variables might be needed
- Include proper error handling and output redirection
- Consider rate limiting to avoid detection

Operator environment:
- OS: {{.OS}}
- Shell: {{.Shell}}
{{- if .User}}
- User: {{.User}}
{{- end}}
{{- if .WorkingDir}}
- Directory: {{.WorkingDir}}
{{- end}}
- Installed tools: {{if .AvailableTools}}{{.AvailableTools}}{{else}}none detected{{end}}

Reply format:
` + "```bash" + `
<the command>
` + "```" + `
Explanation: <one short paragraph on what the command does>`

const commandUserTemplate = `Generate a shell command that accomplishes the following security task:

{{.Request}}

{{if .History -}}
Here are some previous interactions:

{{range $i, $ex := .History -}}
Request {{inc $i}}: {{$ex.Prompt}}
Command: {{if $ex.Command}}{{$ex.Command}}{{else}}none{{end}}
Result: {{if $ex.Result}}{{$ex.Result}}{{else}}not executed{{end}}

{{end}}
{{- else -}}
{{.NoHistory}}
{{- end}}`

const interpretSystemPrompt = `You are CommandStrike, an advanced cybersecurity assistant specializing in CTF challenges and security assessments.

Your task is to interpret command output and provide security insights.

Guidelines for your interpretation:
1. Analyze the command output for security implications
2. Identify potential vulnerabilities, attack vectors, or sensitive information
3. Provide context on what the findings mean for security
4. Suggest possible next steps for investigation or exploitation
5. Highlight any interesting or unusual patterns
6. Identify false positives where relevant

When analyzing scan results:
- Identify open ports and services that might be vulnerable
- Highlight outdated software versions with known vulnerabilities
- Identify misconfigured services

When analyzing system information:
- Identify privilege escalation paths
- Note sensitive files with improper permissions
- Identify configuration weaknesses

Provide a comprehensive but concise analysis focused on actionable security insights.`

const interpretUserTemplate = `For the request: {{.Request}}
The following command was executed: {{.Command}}

Here is the result of the command execution:

{{.Result}}

Please provide a detailed interpretation of these results from a security perspective.`

const explainSystemPrompt = "You are CommandStrike, a cybersecurity assistant specializing in CTF challenges. " +
	"Explain commands in detail, breaking down each part and explaining security implications."

const explainUserTemplate = "Explain in detail what this command does and its security implications: {{.Command}}"

// PromptBuilder renders the command, interpretation and explanation prompts.
type PromptBuilder struct {
	commandSystem   *template.Template
	commandUser     *template.Template
	interpretUser   *template.Template
	explainUser     *template.Template
	maxHistoryItems int
}

// NewPromptBuilder parses the prompt templates. historyWindow caps how many
// prior exchanges are rendered.
func NewPromptBuilder(historyWindow int) (*PromptBuilder, error) {
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	parse := func(name, raw string) (*template.Template, error) {
		tmpl, err := template.New(name).Funcs(funcs).Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		return tmpl, nil
	}

	if historyWindow < 0 {
		historyWindow = 0
	}
	b := &PromptBuilder{maxHistoryItems: historyWindow}
	var err error
	if b.commandSystem, err = parse("command-system", commandSystemTemplate); err != nil {
		return nil, err
	}
	if b.commandUser, err = parse("command-user", commandUserTemplate); err != nil {
		return nil, err
	}
	if b.interpretUser, err = parse("interpret-user", interpretUserTemplate); err != nil {
		return nil, err
	}
	if b.explainUser, err = parse("explain-user", explainUserTemplate); err != nil {
		return nil, err
	}
	return b, nil
}

type commandData struct {
	Request        string
	History        []domain.Exchange
	NoHistory      string
	OS             string
	Shell          string
	User           string
	WorkingDir     string
	AvailableTools string
}

// CommandPrompt renders the command generation prompt. history is expected
// newest first.
func (b *PromptBuilder) CommandPrompt(request string, history []domain.Exchange, snapshot domain.ContextSnapshot) (domain.Prompt, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return domain.Prompt{}, domain.ErrEmptyPrompt
	}
	if len(history) > b.maxHistoryItems {
		history = history[:b.maxHistoryItems]
	}

	data := commandData{
		Request:        request,
		History:        history,
		NoHistory:      NoHistoryText,
		OS:             valueOrDefault(snapshot.OS, "unknown"),
		Shell:          valueOrDefault(snapshot.Shell, "sh"),
		User:           snapshot.User,
		WorkingDir:     snapshot.WorkingDir,
		AvailableTools: strings.Join(snapshot.AvailableTools, ", "),
	}

	system, err := executeTemplate(b.commandSystem, data)
	if err != nil {
		return domain.Prompt{}, err
	}
	user, err := executeTemplate(b.commandUser, data)
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{System: system, User: user}, nil
}

// InterpretPrompt renders the prompt asking for an analysis of a simulated result.
func (b *PromptBuilder) InterpretPrompt(exchange domain.Exchange) (domain.Prompt, error) {
	user, err := executeTemplate(b.interpretUser, struct {
		Request string
		Command string
		Result  string
	}{exchange.Prompt, exchange.Command, exchange.Result})
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{System: interpretSystemPrompt, User: user}, nil
}

// ExplainPrompt renders the prompt asking for a breakdown of command.
func (b *PromptBuilder) ExplainPrompt(command string) (domain.Prompt, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return domain.Prompt{}, domain.ErrNoCommand
	}
	user, err := executeTemplate(b.explainUser, struct{ Command string }{command})
	if err != nil {
		return domain.Prompt{}, err
	}
	return domain.Prompt{System: explainSystemPrompt, User: user}, nil
}

func executeTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

var _ ports.PromptBuilder = (*PromptBuilder)(nil)
