package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/pipeline"
	"github.com/querybridge/querybridge/internal/plan"
	"github.com/querybridge/querybridge/internal/schema"
	"github.com/querybridge/querybridge/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	PolicyPath  string
	HistoryPath string
}

// CompileResult is the success payload: both query texts plus plan facts.
type CompileResult struct {
	ID        string   `json:"id"`
	RootType  string   `json:"root_type"`
	Selects   []string `json:"selects"`
	Filters   int      `json:"filters"`
	Joins     int      `json:"joins"`
	Primary   string   `json:"primary"`
	Secondary string   `json:"secondary"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir> <request.json>",
		Short: "Compile a filter request into both query grammars",
		Long: `Compile a filter request against a CUE schema into the document-grammar
query and the pattern-grammar query.

The request file supplies the raw filters, an optional root-type hint, an
optional explicit selection, and optional advisory mentions. Validation
failures report every offending path at once.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", "", "planner policy YAML file")
	cmd.Flags().StringVar(&opts.HistoryPath, "history", "", "record the result in this SQLite history database")

	return cmd
}

func runCompile(opts *CompileOptions, schemaDir, requestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, pol, req, err := loadInputs(formatter, schemaDir, requestPath, opts.PolicyPath)
	if err != nil {
		return err
	}

	result, err := pipeline.Process(s, pol, req)
	if err != nil {
		return reportPipelineError(formatter, err)
	}
	formatter.VerboseLog("compiled plan %s: root=%s filters=%d joins=%d",
		result.ID, result.Plan.RootType, len(result.Plan.Filters), len(result.Plan.Joins))

	if opts.HistoryPath != "" {
		if err := recordHistory(cmd, opts.HistoryPath, result); err != nil {
			formatter.Error(ErrCodeHistory, err.Error(), nil)
			return &ExitError{Code: ExitCommandError, Message: err.Error()}
		}
	}

	payload := CompileResult{
		ID:        result.ID,
		RootType:  result.Plan.RootType,
		Selects:   result.Plan.Selects,
		Filters:   len(result.Plan.Filters),
		Joins:     len(result.Plan.Joins),
		Primary:   result.Primary,
		Secondary: result.Secondary,
	}
	if opts.Format == "json" {
		return formatter.Success(payload)
	}
	fmt.Fprintln(formatter.Writer, result.Primary)
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "--- pattern ---")
	fmt.Fprintln(formatter.Writer, result.Secondary)
	return nil
}

// loadInputs loads schema, policy, and request, mapping failures to exit
// codes. Shared by compile and validate.
func loadInputs(formatter *OutputFormatter, schemaDir, requestPath, policyPath string) (*schema.Schema, plan.Policy, pipeline.Request, error) {
	var zero pipeline.Request

	s, err := schema.Load(schemaDir)
	if err != nil {
		formatter.Error(ErrCodeSchemaLoad, err.Error(), nil)
		return nil, plan.Policy{}, zero, &ExitError{Code: ExitCommandError, Message: err.Error()}
	}
	formatter.VerboseLog("loaded schema with %d type(s) from %s", len(s.TypeNames()), schemaDir)

	cfg, err := config.Load(policyPath)
	if err != nil {
		formatter.Error(ErrCodePolicyLoad, err.Error(), nil)
		return nil, plan.Policy{}, zero, &ExitError{Code: ExitCommandError, Message: err.Error()}
	}

	req, err := loadRequest(requestPath)
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return nil, plan.Policy{}, zero, &ExitError{Code: ExitCommandError, Message: err.Error()}
	}
	return s, cfg.Policy(), req, nil
}

// reportPipelineError formats pipeline failures: validation errors carry
// the full violation list, everything else is a command error.
func reportPipelineError(formatter *OutputFormatter, err error) error {
	var verr *plan.ValidationError
	if errors.As(err, &verr) {
		formatter.Error(ErrCodeInvalid, "plan validation failed", verr.Violations)
		if formatter.Format != "json" {
			for _, v := range verr.Violations {
				fmt.Fprintf(formatter.Writer, "  %s\n", v)
			}
		}
		return &ExitError{Code: ExitFailure, Message: "plan validation failed"}
	}
	formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return &ExitError{Code: ExitCommandError, Message: err.Error()}
}

func recordHistory(cmd *cobra.Command, path string, result *pipeline.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WriteRecord(cmd.Context(), store.Record{
		ID:          result.ID,
		RootType:    result.Plan.RootType,
		FilterCount: len(result.Plan.Filters),
		PrimaryText: result.Primary,
		PatternText: result.Secondary,
	})
}
