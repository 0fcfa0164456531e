package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/metrics"
	"github.com/roach88/mailpat/internal/scan"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	Thorough    bool
	FullMessage bool
	FullAddress bool
	Workers     int
	Stats       bool
	Index       string
}

// MessageSummary is one matching message.
type MessageSummary struct {
	Number  int    `json:"number"`
	Date    string `json:"date,omitempty"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Score   int    `json:"score,omitempty"`
	Path    string `json:"path,omitempty"`
}

// MatchResult is the JSON payload of the match command.
type MatchResult struct {
	ScanID   string           `json:"scan_id"`
	Pattern  string           `json:"pattern"`
	Scanned  int              `json:"scanned"`
	Matched  int              `json:"matched"`
	Messages []MessageSummary `json:"messages"`
	Stats    []metrics.Sample `json:"stats,omitempty"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{}

	cmd := &cobra.Command{
		Use:   "match <pattern> <mailbox>",
		Short: "List the messages of a mailbox matching a pattern",
		Long: `Compile a pattern and list every message of a mailbox it matches.

The mailbox is a single message file, a maildir, or a directory of
message files. Exits 1 when nothing matches.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Thorough, "thorough", false, "decode MIME parts before searching content")
	cmd.Flags().BoolVar(&opts.FullMessage, "full-message", false, "enable the content operators (~b ~B ~h ~M ~X)")
	cmd.Flags().BoolVar(&opts.FullAddress, "full-address", false, "match address operators against display names")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of evaluation goroutines")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "report evaluation counters")
	cmd.Flags().StringVar(&opts.Index, "index", "", "search index database for =b, =B, =h and ~I")

	return cmd
}

func runMatch(ctx context.Context, rootOpts *RootOptions, opts *MatchOptions, input, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	env, err := loadEnvironment(rootOpts, opts.Index)
	if err != nil {
		return formatter.Fail(ExitCommandError, "", "failed to load settings", err)
	}
	defer env.Close()

	env.cfg.ThoroughSearch = env.cfg.ThoroughSearch || opts.Thorough
	env.cfg.FullMessage = env.cfg.FullMessage || opts.FullMessage
	env.cfg.FullAddress = env.cfg.FullAddress || opts.FullAddress

	tree, err := env.compile(input)
	if err != nil {
		return formatter.Fail(ExitFailure, "", "invalid pattern", err)
	}
	defer tree.Release()
	formatter.VerboseLog("compiled %s", tree)

	mb, err := mailbox.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeMailbox, "failed to load mailbox", err)
	}
	formatter.VerboseLog("loaded %d message(s) from %s", mb.Len(), path)

	scanner := scan.New(env.eval,
		scan.WithFlags(env.cfg.MatchFlags()),
		scan.WithWorkers(opts.Workers),
		scan.WithRecorder(env.recorder),
		scan.WithLogger(env.logger),
	)
	res, err := scanner.Scan(ctx, tree, mb)
	if err != nil {
		return formatter.Fail(ExitCommandError, "", "scan failed", err)
	}

	out := MatchResult{
		ScanID:   res.ID,
		Pattern:  res.Pattern,
		Scanned:  res.Scanned,
		Matched:  len(res.Matches),
		Messages: summarize(res.Matches),
	}
	if opts.Stats {
		out.Stats, err = env.recorder.Snapshot()
		if err != nil {
			return formatter.Fail(ExitCommandError, "", "failed to collect stats", err)
		}
	}

	if rootOpts.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		writeSummaries(formatter.Writer, out.Messages)
		if opts.Stats {
			for _, s := range out.Stats {
				fmt.Fprintln(formatter.GetErrWriter(), s)
			}
		}
	}

	if out.Matched == 0 {
		return NewExitError(ExitFailure, "no messages matched")
	}
	return nil
}

func summarize(msgs []*mailbox.Message) []MessageSummary {
	out := make([]MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		s := MessageSummary{
			Number:  m.Number(),
			From:    formatAddresses(m.From()),
			Subject: m.Subject(),
			Score:   m.Score(),
			Path:    m.Path,
		}
		if d := m.DateSent(); !d.IsZero() {
			s.Date = d.UTC().Format("2006-01-02 15:04")
		}
		out = append(out, s)
	}
	return out
}

func formatAddresses(addrs []mail.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// writeSummaries prints one line per message: number, date, sender and
// subject.
func writeSummaries(w io.Writer, msgs []MessageSummary) {
	for _, m := range msgs {
		date := m.Date
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(w, "%4d  %-16s  %-30s  %s\n", m.Number, date, truncate(m.From, 30), m.Subject)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
