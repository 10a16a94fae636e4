package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mongosql/internal/compiler"
	"github.com/roach88/mongosql/internal/namedquery"
	"github.com/roach88/mongosql/internal/parser"
)

// QueryOptions holds flags for the query subcommands.
type QueryOptions struct {
	*RootOptions
	StorePath string
}

// NewQueryCommand creates the `query` command group for saving,
// running, listing and removing named queries.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage named queries",
		Long: `Save parameterized query templates under a name and expand them
later with positional arguments. Templates use $1..$N placeholders;
$* and $@ expand to all arguments at once.`,
	}

	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "",
		"named query database path (default ~/.mongosql/queries.db)")

	cmd.AddCommand(newQuerySaveCommand(opts))
	cmd.AddCommand(newQueryRunCommand(opts))
	cmd.AddCommand(newQueryListCommand(opts))
	cmd.AddCommand(newQueryRemoveCommand(opts))

	return cmd
}

func newQuerySaveCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "save <name> <template>",
		Short:         "Save a query template",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			registry, closeStore, err := openRegistry(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening query store", err)
			}
			defer closeStore()

			name := args[0]
			text := strings.Join(args[1:], " ")
			q, err := registry.Save(cmd.Context(), name, text)
			if err != nil {
				return outputSQLError(formatter, err)
			}

			if formatter.Format == "json" {
				return formatter.Success(map[string]any{
					"name":   q.Name,
					"params": q.Params,
				})
			}
			fmt.Fprintf(formatter.Writer, "Saved '%s' (%d parameter(s))\n", q.Name, q.Params)
			return nil
		},
	}
}

func newQueryRunCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "run <name> [args...]",
		Short:         "Expand a saved template and compile it",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			registry, closeStore, err := openRegistry(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening query store", err)
			}
			defer closeStore()

			expanded, err := registry.Expand(cmd.Context(), args[0], args[1:])
			if err != nil {
				return outputSQLError(formatter, err)
			}
			formatter.VerboseLog("Expanded: %s", expanded)

			// Templates holding native shell commands pass through
			// verbatim; SQL statements compile to their plan.
			if !parser.IsSQLStatement(expanded) {
				if formatter.Format == "json" {
					return formatter.Success(map[string]any{"query": expanded})
				}
				fmt.Fprintln(formatter.Writer, expanded)
				return nil
			}

			compiled, err := compiler.Compile(expanded)
			if err != nil {
				return outputSQLError(formatter, err)
			}
			rendered, err := RenderPlan(compiled, formatter.Format == "json")
			if err != nil {
				return WrapExitError(ExitCommandError, "rendering plan", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(&CompileResult{
					Collection: compiled.Plan.TargetCollection(),
					Kind:       planKind(compiled),
					Query:      rendered,
					Explain:    string(compiled.Explain),
					Warnings:   compiled.Warnings,
				})
			}
			fmt.Fprintln(formatter.Writer, rendered)
			return nil
		},
	}
}

func newQueryListCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls",
		Short:         "List saved templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			registry, closeStore, err := openRegistry(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening query store", err)
			}
			defer closeStore()

			queries, err := registry.List(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "listing queries", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(queries)
			}
			if len(queries) == 0 {
				fmt.Fprintln(formatter.Writer, "No saved queries.")
				return nil
			}
			for _, q := range queries {
				fmt.Fprintf(formatter.Writer, "%s (%d param(s)): %s\n", q.Name, q.Params, q.Text)
			}
			return nil
		},
	}
}

func newQueryRemoveCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <name>",
		Short:         "Remove a saved template",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			registry, closeStore, err := openRegistry(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening query store", err)
			}
			defer closeStore()

			if err := registry.Delete(cmd.Context(), args[0]); err != nil {
				return outputSQLError(formatter, err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]any{"removed": args[0]})
			}
			fmt.Fprintf(formatter.Writer, "Removed '%s'\n", args[0])
			return nil
		},
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openRegistry opens the named query store. Precedence: --store flag,
// config file, default under the home directory.
func openRegistry(opts *QueryOptions) (*namedquery.Registry, func(), error) {
	path := opts.StorePath
	if path == "" {
		cfg, err := LoadConfig(opts.Config)
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Store
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".mongosql", "queries.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating store directory: %w", err)
	}

	store, err := namedquery.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return namedquery.NewRegistry(store), func() { _ = store.Close() }, nil
}
