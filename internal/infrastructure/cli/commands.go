package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/strike-go/internal/infrastructure/catalog"
	"github.com/doeshing/strike-go/internal/infrastructure/history"
	"github.com/doeshing/strike-go/internal/pkg/filesystem"
)

func newAskCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <request...>",
		Short: "Generate one command and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.build(cmd)
			if err != nil {
				return err
			}
			if _, err := preflight(ctx, container); err != nil {
				return err
			}

			render := NewRenderer(cmd.OutOrStdout())
			suggestion, err := container.Assistant.Suggest(ctx, strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			render.Suggestion(suggestion)
			if _, err := container.Assistant.Record(ctx, suggestion, ""); err != nil {
				return err
			}
			if !suggestion.Found {
				return fmt.Errorf("model %s did not return a command", suggestion.Model)
			}
			return nil
		},
	}
}

func newTemplatesCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "templates [query]",
		Short: "Show security command templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.build(cmd)
			if err != nil {
				return err
			}
			render := NewRenderer(cmd.OutOrStdout())
			if len(args) == 0 {
				render.Templates(container.Catalog.Categories(), catalog.Footnote)
				return nil
			}
			render.Templates(catalog.Group(container.Catalog.Search(strings.Join(args, " "))), "")
			return nil
		},
	}
}

func newModelsCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List recommended and installed models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.build(cmd)
			if err != nil {
				return err
			}
			installed, listErr := container.Assistant.InstalledModels(cmd.Context())
			render := NewRenderer(cmd.OutOrStdout())
			render.Models(container.Config.RecommendedModels(), installed, container.Assistant.Session().Model, listErr)
			return nil
		},
	}
}

func newDoctorCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.build(cmd)
			if err != nil {
				return err
			}
			if container.DoctorService == nil {
				return fmt.Errorf("doctor service unavailable")
			}
			report, err := container.DoctorService.Run(cmd.Context())
			NewRenderer(cmd.OutOrStdout()).HealthReport(report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if report.Failed() {
				return fmt.Errorf("diagnostics reported failures")
			}
			return nil
		},
	}
}

func newArchiveCommand() *cobra.Command {
	var (
		asJSON bool
		limit  int
		search string
	)
	cmd := &cobra.Command{
		Use:   "archive <path>",
		Short: "Show exchanges archived with --archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filesystem.ExpandPath(args[0])
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no archive at %s", path)
				}
				return err
			}
			archive, err := history.OpenArchive(path)
			if err != nil {
				return err
			}
			defer archive.Close()

			if asJSON {
				return archive.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			records, err := archive.Records(cmd.Context(), limit, search)
			if err != nil {
				return err
			}
			NewRenderer(cmd.OutOrStdout()).Exchanges(records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every exchange as a JSON line")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum exchanges to show (0 for all)")
	cmd.Flags().StringVar(&search, "search", "", "Only show exchanges whose request or command contains this text")
	return cmd
}
