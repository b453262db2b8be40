package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/doeshing/strike-go/internal/domain"
)

const defaultWidth = 100

// Renderer prints session output. Styles degrade to plain text when out is
// not a terminal, and markdown is only rendered on terminals.
type Renderer struct {
	out      io.Writer
	tty      bool
	width    int
	markdown *glamour.TermRenderer

	header  lipgloss.Style
	section lipgloss.Style
	accent  lipgloss.Style
	command lipgloss.Style
	success lipgloss.Style
	notice  lipgloss.Style
	danger  lipgloss.Style
	muted   lipgloss.Style
}

// NewRenderer builds a renderer for out.
func NewRenderer(out io.Writer) *Renderer {
	styles := lipgloss.NewRenderer(out)
	r := &Renderer{
		out:   out,
		tty:   isTerminal(out),
		width: terminalWidth(out),

		header:  styles.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		section: styles.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		accent:  styles.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		command: styles.NewStyle().Foreground(lipgloss.Color("10")),
		success: styles.NewStyle().Foreground(lipgloss.Color("10")),
		notice:  styles.NewStyle().Foreground(lipgloss.Color("11")).Italic(true),
		danger:  styles.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   styles.NewStyle().Foreground(lipgloss.Color("8")),
	}
	if r.tty {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width-4),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// Interactive reports whether output goes to a terminal.
func (r *Renderer) Interactive() bool {
	return r.tty
}

// Writer returns the underlying writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

func (r *Renderer) Println(a ...interface{}) {
	fmt.Fprintln(r.out, a...)
}

func (r *Renderer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(r.out, format, a...)
}

// Header prints the banner shown at startup.
func (r *Renderer) Header() {
	r.Println(r.header.Render("CommandStrike - CTF Assistant"))
	r.Println(r.header.Render(strings.Repeat("=", 32)))
}

// Section prints a bold heading preceded by a blank line.
func (r *Renderer) Section(title string) {
	r.Println()
	r.Println(r.section.Render(title))
}

func (r *Renderer) Success(msg string) {
	r.Println(r.success.Render("✓ " + msg))
}

func (r *Renderer) Notice(msg string) {
	r.Println(r.notice.Render(msg))
}

func (r *Renderer) Warn(msg string) {
	r.Println(r.accent.Render("! " + msg))
}

func (r *Renderer) Error(label string, err error) {
	r.Printf("%s: %v\n", r.danger.Render(label), err)
}

// Markdown renders text for a terminal, or returns it unchanged.
func (r *Renderer) Markdown(text string) string {
	text = strings.TrimSpace(text)
	if r.markdown == nil || text == "" {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Suggestion prints a parsed model reply.
func (r *Renderer) Suggestion(s domain.Suggestion) {
	if !s.Found {
		r.Println()
		r.Warn("No command found in the response.")
		if s.Explanation != "" {
			r.Println(r.Markdown(s.Explanation))
		}
		r.Printf("Generation time: %s\n", seconds(s.Elapsed))
		return
	}

	r.Println()
	r.Printf("%s: %s\n", r.header.Render("Generated Command"), r.command.Render(singleLine(s.Command)))
	if strings.Contains(s.Command, "\n") {
		r.Println(s.Command)
	}
	r.Printf("Generation time: %s\n", seconds(s.Elapsed))
	if s.Explanation != "" {
		r.Println()
		r.Println(r.Markdown(s.Explanation))
	}
	r.Risk(s.Risk)
}

// Risk prints the guardrail verdict when the command is not plainly safe.
func (r *Renderer) Risk(risk domain.RiskAssessment) {
	if risk.IsSafe() {
		return
	}
	style := r.accent
	if risk.Level == domain.RiskHigh || risk.Level == domain.RiskCritical {
		style = r.danger
	}
	r.Println()
	r.Printf("%s (%s)\n", style.Render("Risk: "+strings.ToUpper(string(risk.Level))), risk.Action)
	for _, reason := range risk.Reasons {
		r.Printf(" - %s\n", reason)
	}
}

// TurnMenu prints the actions offered after a suggestion.
func (r *Renderer) TurnMenu(canCopy bool) {
	r.Println()
	r.Println("Would you like to:")
	r.Println("1. Execute this command (simulation only)")
	r.Println("2. Explain what this command does")
	r.Println("3. Skip and enter a new request")
	if canCopy {
		r.Println("4. Copy this command to the clipboard")
	}
}

// ModelMenu prints the numbered model selection menu.
func (r *Renderer) ModelMenu(models []domain.ModelInfo) {
	r.Section("Available Models:")
	r.Println(r.section.Render(strings.Repeat("-", 16)))
	for i, model := range models {
		r.Printf("%d. %s (%s) - %s\n", i+1, r.command.Render(model.Name), r.accent.Render(model.Size), model.Description)
	}
	r.Printf("%d. %s\n", len(models)+1, r.command.Render("Enter custom model name"))
}

// Models prints the recommended table and the models the server reports.
func (r *Renderer) Models(recommended []domain.ModelInfo, installed []string, current string, err error) {
	r.Section("Recommended Models:")
	nameWidth := 0
	for _, model := range recommended {
		if w := runewidth.StringWidth(model.Name); w > nameWidth {
			nameWidth = w
		}
	}
	descWidth := r.width - nameWidth - 16
	if descWidth < 20 {
		descWidth = 20
	}
	for _, model := range recommended {
		name := runewidth.FillRight(model.Name, nameWidth)
		size := runewidth.FillRight(model.Size, 5)
		desc := runewidth.Truncate(model.Description, descWidth, "...")
		r.Printf("- %s  %s  %s\n", r.command.Render(name), r.accent.Render(size), desc)
	}

	r.Section("Installed Models:")
	if err != nil {
		r.Error("Error fetching models", err)
		return
	}
	if len(installed) == 0 {
		r.Println(r.muted.Render("(none)"))
		return
	}
	for _, name := range installed {
		marker := ""
		if name == current || domain.ModelInstalled([]string{name}, current) {
			marker = " " + r.muted.Render("(current)")
		}
		r.Printf("- %s%s\n", r.command.Render(name), marker)
	}
}

// Templates prints catalog categories followed by footnote.
func (r *Renderer) Templates(categories []domain.TemplateCategory, footnote string) {
	if len(categories) == 0 {
		r.Println("No matching templates.")
		return
	}
	r.Section("Security Command Templates:")
	r.Println(r.section.Render(strings.Repeat("-", 25)))
	for _, category := range categories {
		r.Section(category.Name + ":")
		for _, tmpl := range category.Templates {
			r.Printf("- %s: %s\n", tmpl.Title, r.command.Render(tmpl.Command))
		}
	}
	if footnote != "" {
		r.Println()
		for _, line := range strings.Split(footnote, "\n") {
			r.Println(r.danger.Render(line))
		}
	}
}

// History prints the exchanges of the session, oldest first.
func (r *Renderer) History(exchanges []domain.Exchange) {
	if len(exchanges) == 0 {
		r.Println("No requests yet.")
		return
	}
	r.Section("Session History:")
	for i, ex := range exchanges {
		r.Printf("%d. [%s] %s\n", i+1, ex.Model, ex.Prompt)
		if ex.Command != "" {
			r.Printf("   $ %s\n", r.command.Render(singleLine(ex.Command)))
		} else {
			r.Println("   " + r.muted.Render("(no command)"))
		}
		if ex.Executed() {
			r.Println("   " + r.muted.Render("(executed, simulated)"))
		}
	}
}

// Help prints the reserved words and example requests.
func (r *Renderer) Help() {
	r.Section("CommandStrike Commands:")
	r.Println(r.section.Render(strings.Repeat("-", 22)))
	r.Println("- Enter a security request in natural language")
	for _, entry := range [][2]string{
		{"switch", "Switch to a different LLM model (alias: model)"},
		{"models", "View recommended and installed models"},
		{"templates [query]", "Show security command templates, optionally filtered"},
		{"history", "Show the requests of this session"},
		{"help", "Show this help message"},
		{"exit", "Exit CommandStrike (alias: quit)"},
	} {
		r.Printf("- %s - %s\n", r.command.Render(entry[0]), entry[1])
	}

	r.Println()
	r.Println(r.accent.Render("Example Security Requests:"))
	for _, example := range []string{
		"Scan for open ports on the local network",
		"Find files containing passwords in the current directory",
		"Check for privilege escalation vulnerabilities",
		"Perform a directory traversal test on a web server",
		"Analyze network traffic for suspicious activity",
	} {
		r.Printf("- %s\n", example)
	}
}

// HealthReport prints doctor checks one per line.
func (r *Renderer) HealthReport(report domain.HealthReport) {
	for _, check := range report.Checks {
		tag := "[" + strings.ToUpper(string(check.Status)) + "]"
		switch check.Status {
		case domain.HealthOK:
			tag = r.success.Render(tag)
		case domain.HealthWarn:
			tag = r.accent.Render(tag)
		default:
			tag = r.danger.Render(tag)
		}
		r.Printf("%s %s - %s\n", tag, check.Name, check.Details)
	}
}

// Exchanges prints archived exchanges with timestamps.
func (r *Renderer) Exchanges(exchanges []domain.Exchange) {
	if len(exchanges) == 0 {
		r.Println("No archived exchanges.")
		return
	}
	for _, ex := range exchanges {
		command := ex.Command
		if command == "" {
			command = "(no command)"
		}
		r.Printf("%s | %s | %s | %s\n",
			ex.Timestamp.Format(domain.TimestampFormat),
			ex.Model,
			runewidth.Truncate(singleLine(ex.Prompt), 48, "..."),
			singleLine(command))
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
