package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mongosql/internal/compiler"
	"github.com/roach88/mongosql/internal/planner"
	"github.com/roach88/mongosql/internal/sqlerr"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Canonical bool
}

// CompileResult is the JSON payload for a successful compile.
type CompileResult struct {
	Collection string   `json:"collection"`
	Kind       string   `json:"kind"` // "find" | "aggregate"
	Query      string   `json:"query"`
	Explain    string   `json:"explain,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <sql>",
		Short: "Compile a SQL statement to a MongoDB query",
		Long: `Compile a SQL SELECT statement into the MongoDB call it executes:
a find() for simple filters and projections, an aggregation pipeline
for everything else. Wrap the statement in EXPLAIN to get the
runCommand form with the requested verbosity.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileSQL(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "emit canonical extended JSON")

	return cmd
}

func runCompileSQL(opts *CompileOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	compiled, err := compiler.Compile(input)
	if err != nil {
		return outputSQLError(formatter, err)
	}

	formatter.VerboseLog("Compiled against collection %q", compiled.Plan.TargetCollection())
	for _, warning := range compiled.Warnings {
		formatter.VerboseLog("warning: %s", warning)
	}

	// JSON output always uses canonical extended JSON so the payload
	// round-trips through drivers without type loss.
	canonical := opts.Canonical || opts.Format == "json"
	rendered, err := RenderPlan(compiled, canonical)
	if err != nil {
		return WrapExitError(ExitCommandError, "rendering plan", err)
	}

	if formatter.Format == "json" {
		result := &CompileResult{
			Collection: compiled.Plan.TargetCollection(),
			Kind:       planKind(compiled),
			Query:      rendered,
			Explain:    string(compiled.Explain),
			Warnings:   compiled.Warnings,
		}
		return formatter.Success(result)
	}

	for _, warning := range compiled.Warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", warning)
	}
	fmt.Fprintln(formatter.Writer, rendered)
	return nil
}

func planKind(q *compiler.CompiledQuery) string {
	if _, ok := q.Plan.(*planner.FastPath); ok {
		return "find"
	}
	return "aggregate"
}

// outputSQLError maps a compiler error to formatted output and an
// exit code.
func outputSQLError(formatter *OutputFormatter, err error) error {
	var ce *sqlerr.Error
	if errors.As(err, &ce) {
		_ = formatter.Error(string(ce.Code), ce.Message, ce.Details)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", ce.Code, ce.Message), err)
	}
	_ = formatter.Error("INTERNAL", err.Error(), nil)
	return WrapExitError(ExitCommandError, err.Error(), err)
}
