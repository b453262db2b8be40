package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/strike-go/internal/app"
	"github.com/doeshing/strike-go/internal/application/doctor"
	"github.com/doeshing/strike-go/internal/domain"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath  string
	model       string
	endpoint    string
	provider    string
	temperature float64
	timeout     time.Duration
	noStream    bool
	archive     string
	yes         bool
}

// environment builds the container lazily, after flags are parsed.
type environment struct {
	opts      Options
	flags     rootFlags
	container *app.Container
}

func (e *environment) build(cmd *cobra.Command) (*app.Container, error) {
	if e.container != nil {
		return e.container, nil
	}
	overrides := app.Overrides{
		Model:       e.flags.model,
		Endpoint:    e.flags.endpoint,
		Provider:    e.flags.provider,
		Timeout:     e.flags.timeout,
		NoStream:    e.flags.noStream,
		ArchivePath: e.flags.archive,
		AutoPull:    e.flags.yes,
	}
	if cmd.Flags().Changed("temperature") {
		temperature := e.flags.temperature
		overrides.Temperature = &temperature
	}
	container, err := app.BuildContainer(cmd.Context(), app.Options{
		ConfigPath: e.flags.configPath,
		Overrides:  overrides,
		LogWriter:  e.opts.Stderr,
		Verbose:    e.opts.Verbose,
	})
	if err != nil {
		return nil, err
	}
	e.container = container
	return container, nil
}

func (e *environment) close() {
	if e.container != nil {
		_ = e.container.Close()
	}
}

// Execute runs the strike command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	env := &environment{opts: opts}
	defer env.close()

	root := newRootCmd(env)
	root.SetArgs(args)
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var unreachable *unreachableError
	if errors.As(err, &unreachable) {
		fmt.Fprintf(opts.Stderr, "Error: inference server is not reachable at %s.\n", unreachable.endpoint)
		fmt.Fprintln(opts.Stderr, unreachable.remedy())
		return 1
	}
	fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
	return 1
}

// newRootCmd wires the cobra root command.
func newRootCmd(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:   "strike",
		Short: "CommandStrike - CTF assistant",
		Long: "CommandStrike turns security requests in natural language into shell commands\n" +
			"using a local LLM. Execution is always simulated.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, env)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&env.flags.configPath, "config", "", "Config file (default ~/.strike/config.yaml)")
	flags.StringVarP(&env.flags.model, "model", "m", "", "Model to use, skipping the selection menu")
	flags.StringVarP(&env.flags.endpoint, "endpoint", "e", "", "Inference server URL")
	flags.StringVar(&env.flags.provider, "provider", "", "Server API: ollama or openai (inferred from the endpoint)")
	flags.Float64Var(&env.flags.temperature, "temperature", domain.DefaultTemperature, "Sampling temperature (0-1)")
	flags.DurationVar(&env.flags.timeout, "timeout", 0, "Request timeout (default from config)")
	flags.BoolVar(&env.flags.noStream, "no-stream", false, "Print explanations only when complete")
	flags.StringVar(&env.flags.archive, "archive", "", "Also archive exchanges to this sqlite file")
	flags.BoolVarP(&env.flags.yes, "yes", "y", false, "Pull a missing model without asking")

	root.AddCommand(
		newAskCommand(env),
		newTemplatesCommand(env),
		newModelsCommand(env),
		newDoctorCommand(env),
		newArchiveCommand(),
		newVersionCommand(),
	)
	return root
}

// unreachableError is returned when the preflight ping fails.
type unreachableError struct {
	endpoint string
	provider domain.ProviderKind
	err      error
}

func (e *unreachableError) Error() string { return e.err.Error() }

func (e *unreachableError) Unwrap() error { return e.err }

func (e *unreachableError) remedy() string {
	if e.provider == domain.ProviderKindOpenAI {
		return "Start your OpenAI-compatible server (llama.cpp, LM Studio) or pass --endpoint."
	}
	return "Start it with: ollama serve"
}

// preflight fails with unreachableError when the server does not answer.
func preflight(ctx context.Context, container *app.Container) (domain.HealthReport, error) {
	report, err := container.DoctorService.Preflight(ctx)
	if err != nil {
		session := container.Assistant.Session()
		return report, &unreachableError{endpoint: session.Endpoint, provider: session.Provider, err: err}
	}
	return report, nil
}

func runInteractive(cmd *cobra.Command, env *environment) error {
	ctx := cmd.Context()
	container, err := env.build(cmd)
	if err != nil {
		return err
	}

	render := NewRenderer(cmd.OutOrStdout())
	input := NewLineReader(cmd.InOrStdin(), cmd.OutOrStdout())
	defer input.Close()

	render.Header()
	session := container.Assistant.Session()
	render.Notice(fmt.Sprintf("Checking inference server at %s...", session.Endpoint))
	report, err := preflight(ctx, container)
	if err != nil {
		return err
	}
	render.Success("Inference server is running")

	repl := NewSession(container.Assistant, container.Catalog, input, render)
	repl.Recommended = container.Config.RecommendedModels()
	repl.Stream = container.Config.StreamingEnabled()
	repl.Clipboard = NewClipboard()

	modelReady := false
	if check, found := report.Find(doctor.CheckModel); found {
		modelReady = check.Status == domain.HealthOK
	}
	if !cmd.Flags().Changed("model") && render.Interactive() && isTerminalReader(cmd.InOrStdin()) {
		name, err := repl.prompter.SelectModel(repl.Recommended)
		if err != nil {
			return nil
		}
		if err := container.Assistant.SwitchModel(ctx, name, true); err != nil {
			return err
		}
		modelReady, _ = container.Assistant.ModelInstalled(ctx)
	}

	if err := ensureModel(ctx, repl, modelReady, container.Config.Preferences.AutoPull); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	render.Println()
	render.Success("Ready to assist with CTF challenges!")
	render.Println("Type 'help' for available commands, or enter a security request.")
	render.Println()
	return repl.Run(ctx)
}

// ensureModel offers to pull the session model when the server does not
// list it. Declining keeps the model; requests then fail with a hint.
func ensureModel(ctx context.Context, repl *Session, ready, autoPull bool) error {
	model := repl.Assistant.Session().Model
	repl.render.Notice(fmt.Sprintf("Checking if model '%s' is available...", model))
	if ready {
		repl.render.Success(fmt.Sprintf("Model '%s' is available", model))
		return nil
	}

	repl.render.Warn(fmt.Sprintf("Model '%s' is not available locally.", model))
	if !repl.Assistant.CanPull() {
		repl.render.Println("The server cannot pull models; load it on the server first.")
		return nil
	}

	pull := autoPull
	if !pull {
		answer, err := repl.prompter.Question("Would you like to pull it from the Ollama repository? (y/n)")
		if err != nil {
			return err
		}
		pull = answer
	}
	if pull && repl.pull(ctx, model) {
		return nil
	}
	repl.render.Println("Continuing without it. Use 'switch' to pick another model or pull it manually with:")
	repl.render.Printf("  ollama pull %s\n", model)
	return nil
}
