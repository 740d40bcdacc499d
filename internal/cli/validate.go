package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/plan"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	PolicyPath string
}

// ValidationResult holds the validate command's payload.
type ValidationResult struct {
	Valid      bool             `json:"valid"`
	RootType   string           `json:"root_type,omitempty"`
	Violations []plan.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema-dir> <request.json>",
		Short: "Validate a filter request without compiling",
		Long: `Assemble a logical plan from the request and check it against the schema.

Every violation is reported, not just the first, so one round of feedback
is enough to correct all offending paths.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", "", "planner policy YAML file")

	return cmd
}

func runValidate(opts *ValidateOptions, schemaDir, requestPath string, cmd *cobra.Command) error {
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

	p, err := plan.Build(s, pol, req.RootHint, req.Selects, req.Mentions, req.Filters)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: err.Error()}
	}

	if err := plan.Validate(p, s); err != nil {
		var verr *plan.ValidationError
		if !errors.As(err, &verr) {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return &ExitError{Code: ExitCommandError, Message: err.Error()}
		}
		result := ValidationResult{Valid: false, RootType: p.RootType, Violations: verr.Violations}
		if opts.Format == "json" {
			formatter.Success(result)
		} else {
			fmt.Fprintf(formatter.Writer, "invalid: %d violation(s)\n", len(verr.Violations))
			for _, v := range verr.Violations {
				fmt.Fprintf(formatter.Writer, "  %s\n", v)
			}
		}
		return &ExitError{Code: ExitFailure, Message: "plan validation failed"}
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, RootType: p.RootType})
	}
	fmt.Fprintf(formatter.Writer, "valid: root=%s filters=%d joins=%d\n",
		p.RootType, len(p.Filters), len(p.Joins))
	return nil
}
