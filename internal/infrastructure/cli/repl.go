package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/doeshing/strike-go/internal/application/assistant"
	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/infrastructure/catalog"
	"github.com/doeshing/strike-go/internal/ports"
)

const (
	replPrompt   = "CommandStrike> "
	choicePrompt = "\nChoice [1-%d]: "
)

// Session is the interactive request loop. Each request becomes one turn:
// a suggestion, a choice of action, and one recorded exchange.
type Session struct {
	Assistant   *assistant.Service
	Catalog     ports.TemplateCatalog
	Clipboard   ports.Clipboard
	Recommended []domain.ModelInfo
	Stream      bool

	input    LineReader
	render   *Renderer
	prompter *Prompter
}

// NewSession builds a session reading from input and printing with render.
func NewSession(svc *assistant.Service, templates ports.TemplateCatalog, input LineReader, render *Renderer) *Session {
	return &Session{
		Assistant:   svc,
		Catalog:     templates,
		Recommended: domain.RecommendedModels(),
		input:       input,
		render:      render,
		prompter:    NewPrompter(input, render),
	}
}

// Run reads requests until exit, quit or end of input.
func (s *Session) Run(ctx context.Context) error {
	defer s.render.Println("\nThank you for using CommandStrike!")
	for {
		line, err := s.input.ReadLine(replPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.input.AppendHistory(line)

		if err := s.dispatch(ctx, line); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

var errExit = errors.New("exit")

func (s *Session) dispatch(ctx context.Context, line string) error {
	word, rest := splitWord(line)
	switch strings.ToLower(line) {
	case "exit", "quit":
		return errExit
	case "help":
		s.render.Help()
		return nil
	case "switch", "model":
		return s.switchModel(ctx)
	case "models":
		s.showModels(ctx)
		return nil
	case "history":
		s.render.History(s.Assistant.History())
		return nil
	}
	if strings.EqualFold(word, "templates") {
		s.showTemplates(rest)
		return nil
	}
	return s.turn(ctx, line)
}

// turn handles one request. Exactly one exchange is recorded once a reply
// arrives, whatever the user chooses afterwards.
func (s *Session) turn(ctx context.Context, request string) error {
	suggestion, err := s.suggest(ctx, request)
	if err != nil {
		s.render.Error("Error generating command", err)
		s.hint(err)
		return nil
	}
	s.render.Suggestion(suggestion)

	if !suggestion.Found {
		return s.record(ctx, suggestion, "")
	}

	canCopy := s.Clipboard != nil && s.Clipboard.Enabled()
	s.render.TurnMenu(canCopy)
	options := 3
	if canCopy {
		options = 4
	}
	choice, err := s.prompter.Choice(fmt.Sprintf(choicePrompt, options))
	if err != nil {
		if recErr := s.record(ctx, suggestion, ""); recErr != nil {
			return recErr
		}
		return err
	}

	switch {
	case choice == "1":
		return s.execute(ctx, suggestion)
	case choice == "2":
		s.explain(ctx, suggestion)
	case choice == "4" && canCopy:
		if err := s.Clipboard.Copy(suggestion.Command); err != nil {
			s.render.Error("Copy failed", err)
		} else {
			s.render.Success("Command copied to clipboard")
		}
	default:
		s.render.Println("Skipping to next request")
	}
	return s.record(ctx, suggestion, "")
}

func (s *Session) suggest(ctx context.Context, request string) (domain.Suggestion, error) {
	s.render.Notice("Generating command...")
	stop := s.spin("Waiting for " + s.Assistant.Session().Model)
	defer stop()
	return s.Assistant.Suggest(ctx, request, nil)
}

func (s *Session) execute(ctx context.Context, suggestion domain.Suggestion) error {
	risk := suggestion.Risk
	if risk.Action == domain.ActionBlock {
		s.render.Error("Refused", fmt.Errorf("%w: %s", domain.ErrBlocked, strings.Join(risk.Reasons, "; ")))
		return s.record(ctx, suggestion, "")
	}
	if risk.Action == domain.ActionConfirm || risk.Action == domain.ActionExplicitConfirm {
		confirmed, err := s.prompter.Confirm(risk, suggestion.Command)
		if err != nil {
			if recErr := s.record(ctx, suggestion, ""); recErr != nil {
				return recErr
			}
			return err
		}
		if !confirmed {
			s.render.Println("Execution cancelled.")
			return s.record(ctx, suggestion, "")
		}
	}

	s.render.Println()
	s.render.Notice("Simulating command execution...")
	result, err := s.Assistant.Execute(ctx, suggestion)
	if err != nil {
		s.render.Error("Execution failed", err)
		return s.record(ctx, suggestion, "")
	}
	s.render.Println(result.Output)

	exchange, err := s.Assistant.Record(ctx, suggestion, result.Output)
	if err != nil {
		s.render.Error("History not updated", err)
	}

	s.render.Println()
	s.render.Notice("Interpreting results...")
	text, elapsed, err := s.complete(func(w ports.StreamWriter) (string, error) {
		return s.Assistant.Interpret(ctx, exchange, w)
	}, "Interpretation:")
	if err != nil {
		s.render.Error("Error interpreting results", err)
		s.hint(err)
		return nil
	}
	s.printCompletion(text)
	s.render.Printf("Interpretation time: %s\n", seconds(elapsed))
	return nil
}

func (s *Session) explain(ctx context.Context, suggestion domain.Suggestion) {
	s.render.Println()
	s.render.Notice("Explaining command...")
	text, elapsed, err := s.complete(func(w ports.StreamWriter) (string, error) {
		return s.Assistant.Explain(ctx, suggestion.Command, w)
	}, "Explanation:")
	if err != nil {
		s.render.Error("Error explaining command", err)
		s.hint(err)
		return
	}
	s.printCompletion(text)
	s.render.Printf("Explanation time: %s\n", seconds(elapsed))
}

type completionFunc func(ports.StreamWriter) (string, error)

// complete runs fn, streaming to the terminal when enabled and showing a
// spinner otherwise. The returned text is empty when it was streamed.
func (s *Session) complete(fn completionFunc, heading string) (string, time.Duration, error) {
	start := time.Now()
	if s.Stream {
		s.render.Section(heading)
		writer := NewStreamWriter(s.render.Writer())
		text, err := fn(writer)
		if err != nil {
			return "", time.Since(start), err
		}
		if writer.Wrote() {
			return "", time.Since(start), nil
		}
		return text, time.Since(start), nil
	}

	stop := s.spin("Thinking")
	text, err := fn(nil)
	stop()
	if err != nil {
		return "", time.Since(start), err
	}
	s.render.Section(heading)
	return text, time.Since(start), nil
}

func (s *Session) printCompletion(text string) {
	if text != "" {
		s.render.Println(s.render.Markdown(text))
	}
}

// record stores the turn. A storage failure is reported and the loop goes on.
func (s *Session) record(ctx context.Context, suggestion domain.Suggestion, result string) error {
	if _, err := s.Assistant.Record(ctx, suggestion, result); err != nil {
		s.render.Error("History not updated", err)
	}
	return nil
}

// switchModel shows the model menu and moves the session to the chosen
// model. History is kept.
func (s *Session) switchModel(ctx context.Context) error {
	name, err := s.prompter.SelectModel(s.Recommended)
	if err != nil {
		return err
	}

	err = s.Assistant.SwitchModel(ctx, name, false)
	if errors.Is(err, domain.ErrModelUnavailable) {
		force, askErr := s.offerMissingModel(ctx, name)
		if askErr != nil {
			return askErr
		}
		if !force {
			s.render.Println("Keeping current model.")
			return nil
		}
		err = s.Assistant.SwitchModel(ctx, name, true)
	}
	if err != nil {
		s.render.Error("Switch failed", err)
		return nil
	}
	s.render.Success(fmt.Sprintf("Switched to model '%s'", name))
	return nil
}

// offerMissingModel asks to pull name, or to use it anyway when the server
// cannot pull. It reports whether the switch should go ahead.
func (s *Session) offerMissingModel(ctx context.Context, name string) (bool, error) {
	if !s.Assistant.CanPull() {
		return s.prompter.Question(fmt.Sprintf("Model '%s' is not listed by the server. Use it anyway? (y/n)", name))
	}
	pull, err := s.prompter.Question(fmt.Sprintf("Model '%s' is not available. Would you like to pull it? (y/n)", name))
	if err != nil || !pull {
		return false, err
	}
	return s.pull(ctx, name), nil
}

// pull downloads name and reports whether it succeeded.
func (s *Session) pull(ctx context.Context, name string) bool {
	s.render.Notice(fmt.Sprintf("Pulling model '%s'...", name))
	progress := &progressPrinter{out: s.render.Writer(), tty: s.render.Interactive()}
	err := s.Assistant.PullModel(ctx, name, progress.update)
	progress.finish()
	if err != nil {
		s.render.Error(fmt.Sprintf("Failed to pull model '%s'", name), err)
		return false
	}
	s.render.Success(fmt.Sprintf("Model '%s' pulled successfully", name))
	return true
}

func (s *Session) showModels(ctx context.Context) {
	installed, err := s.Assistant.InstalledModels(ctx)
	s.render.Models(s.Recommended, installed, s.Assistant.Session().Model, err)
}

func (s *Session) showTemplates(query string) {
	if query == "" {
		s.render.Templates(s.Catalog.Categories(), catalog.Footnote)
		return
	}
	s.render.Templates(catalog.Group(s.Catalog.Search(query)), "")
}

func (s *Session) hint(err error) {
	switch {
	case errors.Is(err, domain.ErrModelUnavailable):
		s.render.Println("Use 'switch' to pick another model, or pull it with:")
		s.render.Printf("  ollama pull %s\n", s.Assistant.Session().Model)
	case errors.Is(err, context.DeadlineExceeded):
		s.render.Println("The model did not answer in time. Try a smaller model or raise --timeout.")
	}
}

func (s *Session) spin(label string) func() {
	if !s.render.Interactive() {
		return func() {}
	}
	spinner := NewSpinner(s.render.Writer(), label)
	spinner.Start()
	return spinner.Stop
}

func splitWord(line string) (string, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
}
