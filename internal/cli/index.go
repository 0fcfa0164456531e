package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mailpat/internal/mailbox"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	DB    string
	Query string
}

// IndexResult is the JSON payload of the index command.
type IndexResult struct {
	DB      string   `json:"db"`
	Written int      `json:"written"`
	Skipped int      `json:"skipped"`
	Total   int      `json:"total"`
	Query   string   `json:"query,omitempty"`
	IDs     []string `json:"ids,omitempty"`
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{}

	cmd := &cobra.Command{
		Use:   "index <mailbox>",
		Short: "Add the messages of a mailbox to the search index",
		Long: `Store the decoded header and body of every message in the SQLite
search index used by =b, =B, =h and ~I. Messages whose content has not
changed since they were last indexed are skipped.

With --query, run a ~I query against the index afterwards and print the
Message-IDs it returns.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "index database path (default: index from settings)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query to run after indexing")

	return cmd
}

func runIndex(ctx context.Context, rootOpts *RootOptions, opts *IndexOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	env, err := loadEnvironment(rootOpts, opts.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, "", "failed to load settings", err)
	}
	defer env.Close()
	if env.index == nil {
		return formatter.Fail(ExitCommandError, ErrCodeIndex, "no index",
			errors.New("pass --db or set index in the settings file"))
	}

	mb, err := mailbox.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeMailbox, "failed to load mailbox", err)
	}

	written, skipped, err := env.index.AddMailbox(ctx, mb)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeIndex, "indexing failed", err)
	}
	total, err := env.index.Count(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeIndex, "indexing failed", err)
	}
	formatter.VerboseLog("indexed %s into %d row(s)", path, total)

	out := IndexResult{
		DB:      opts.DB,
		Written: written,
		Skipped: skipped,
		Total:   total,
		Query:   opts.Query,
	}
	if out.DB == "" {
		out.DB = env.cfg.Index
	}
	if opts.Query != "" {
		out.IDs, err = env.index.MessageIDs(opts.Query)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeIndex, "query failed", err)
		}
	}

	if rootOpts.Format == "json" {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "indexed %d message(s), %d unchanged, %d total\n", written, skipped, total)
	for _, id := range out.IDs {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}
