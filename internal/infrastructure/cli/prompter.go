package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doeshing/strike-go/internal/domain"
)

// Prompter asks the questions of the interactive session.
type Prompter struct {
	in     LineReader
	render *Renderer
}

// NewPrompter constructs a prompter reading from in.
func NewPrompter(in LineReader, render *Renderer) *Prompter {
	return &Prompter{in: in, render: render}
}

// Confirm asks the user for confirmation based on guardrail action.
// Blocked commands are refused without asking.
func (p *Prompter) Confirm(risk domain.RiskAssessment, command string) (bool, error) {
	switch risk.Action {
	case domain.ActionConfirm:
		return p.YesNo("Simulate this command? [y/N]: ")
	case domain.ActionExplicitConfirm:
		p.render.Printf("Command:\n  %s\n", command)
		line, err := p.in.ReadLine("Type 'yes' to confirm (or anything else to cancel): ")
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(line) == "yes", nil
	case domain.ActionBlock:
		return false, nil
	default:
		return true, nil
	}
}

// YesNo prints prompt and reports whether the answer was y or yes.
func (p *Prompter) YesNo(prompt string) (bool, error) {
	line, err := p.in.ReadLine(prompt)
	if err != nil {
		return false, err
	}
	return isAffirmativeResponse(line), nil
}

// Question prints question on its own line and reads the answer after "> ".
func (p *Prompter) Question(question string) (bool, error) {
	p.render.Println(question)
	return p.YesNo("> ")
}

// SelectModel shows the model menu until a valid choice is made. The entry
// after the listed models asks for a custom name.
func (p *Prompter) SelectModel(models []domain.ModelInfo) (string, error) {
	p.render.ModelMenu(models)
	custom := len(models) + 1
	for {
		line, err := p.in.ReadLine(fmt.Sprintf("\nSelect model [1-%d]: ", custom))
		if err != nil {
			return "", err
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		switch {
		case err != nil || choice < 1 || choice > custom:
			p.render.Println("Invalid selection. Please try again.")
		case choice == custom:
			name, err := p.customModel()
			if err != nil {
				return "", err
			}
			if name != "" {
				return name, nil
			}
		default:
			return models[choice-1].Name, nil
		}
	}
}

func (p *Prompter) customModel() (string, error) {
	line, err := p.in.ReadLine("Enter model name: ")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(line)
	if name == "" {
		p.render.Println("Model name cannot be empty.")
	}
	return name, nil
}

// Choice reads a menu selection and returns it trimmed.
func (p *Prompter) Choice(prompt string) (string, error) {
	line, err := p.in.ReadLine(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isAffirmativeResponse(response string) bool {
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// progressPrinter reports pull progress. On terminals the line is redrawn in
// place; otherwise each new status is printed once.
type progressPrinter struct {
	out        io.Writer
	tty        bool
	lastStatus string
}

func (p *progressPrinter) update(progress domain.PullProgress) {
	if p.tty {
		if percent := progress.Percent(); percent >= 0 {
			fmt.Fprintf(p.out, "\r\033[K%s %d%%", progress.Status, percent)
		} else {
			fmt.Fprintf(p.out, "\r\033[K%s", progress.Status)
		}
		return
	}
	if progress.Status != p.lastStatus {
		fmt.Fprintln(p.out, progress.Status)
	}
	p.lastStatus = progress.Status
}

func (p *progressPrinter) finish() {
	if p.tty {
		fmt.Fprintln(p.out)
	}
}
