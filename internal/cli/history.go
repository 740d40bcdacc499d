package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history <db>",
		Short:         "List recently recorded compilations",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum records to list")

	return cmd
}

func runHistory(opts *HistoryOptions, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeHistory, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: err.Error()}
	}
	defer st.Close()

	records, err := st.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		formatter.Error(ErrCodeHistory, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: err.Error()}
	}

	if opts.Format == "json" {
		return formatter.Success(records)
	}
	for _, rec := range records {
		fmt.Fprintf(formatter.Writer, "%s  %s  root=%s filters=%d\n",
			rec.CreatedAt, rec.ID, rec.RootType, rec.FilterCount)
	}
	return nil
}
