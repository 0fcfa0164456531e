package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/score"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	Rules []string // "PATTERN VALUE", VALUE prefixed with '=' for exact rules
}

// ScoredMessage is one line of score output.
type ScoredMessage struct {
	MessageSummary
	Flags string `json:"flags,omitempty"`
}

// ScoreResult is the JSON payload of the score command.
type ScoreResult struct {
	Rules    int             `json:"rules"`
	Messages []ScoredMessage `json:"messages"`
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoreOptions{}

	cmd := &cobra.Command{
		Use:   "score <mailbox>",
		Short: "Score every message of a mailbox",
		Long: `Evaluate the score rules of the settings file, plus any given with
--rule, against every message and print the resulting scores.

A rule is written "PATTERN VALUE". A VALUE of the form =N sets the score
to N and stops scoring the message. Thresholds from the settings file
mark messages deleted, read or flagged.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Rules, "rule", "r", nil, `score rule "PATTERN VALUE" (repeatable)`)

	return cmd
}

func runScore(ctx context.Context, rootOpts *RootOptions, opts *ScoreOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(rootOpts, cmd)

	env, err := loadEnvironment(rootOpts, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, "", "failed to load settings", err)
	}
	defer env.Close()

	rules := make([]score.Rule, 0, len(env.cfg.Score)+len(opts.Rules))
	for _, r := range env.cfg.Score {
		rules = append(rules, score.Rule{Pattern: r.Pattern, Value: r.Value, Exact: r.Exact})
	}
	for _, raw := range opts.Rules {
		r, err := parseRule(raw)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid --rule", err)
		}
		rules = append(rules, r)
	}

	engine, err := score.New(rules, env.compileOptions(), env.eval,
		score.WithFlags(env.cfg.MatchFlags()),
		score.WithThresholds(score.Thresholds{
			Delete: env.cfg.ScoreThresholdDelete,
			Read:   env.cfg.ScoreThresholdRead,
			Flag:   env.cfg.ScoreThresholdFlag,
		}),
		score.WithLogger(env.logger),
	)
	if err != nil {
		return formatter.Fail(ExitFailure, "", "invalid score rule", err)
	}
	defer engine.Release()
	formatter.VerboseLog("compiled %d score rule(s)", engine.Len())

	mb, err := mailbox.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeMailbox, "failed to load mailbox", err)
	}
	if err := engine.Apply(ctx, mb); err != nil {
		return formatter.Fail(ExitCommandError, "", "scoring failed", err)
	}

	out := ScoreResult{Rules: engine.Len()}
	for i, s := range summarize(mb.Messages()) {
		out.Messages = append(out.Messages, ScoredMessage{
			MessageSummary: s,
			Flags:          flagString(mb.Messages()[i].Flags()),
		})
	}

	if rootOpts.Format == "json" {
		return formatter.Success(out)
	}
	for _, m := range out.Messages {
		fmt.Fprintf(formatter.Writer, "%4d  %5d  %-3s  %s\n", m.Number, m.Score, m.Flags, m.Subject)
	}
	return nil
}

// parseRule splits "PATTERN VALUE" at the last space.
func parseRule(raw string) (score.Rule, error) {
	raw = strings.TrimSpace(raw)
	i := strings.LastIndexAny(raw, " \t")
	if i < 0 {
		return score.Rule{}, fmt.Errorf("rule %q: want \"PATTERN VALUE\"", raw)
	}
	pat, val := strings.TrimSpace(raw[:i]), raw[i+1:]
	exact := strings.HasPrefix(val, "=")
	n, err := strconv.Atoi(strings.TrimPrefix(val, "="))
	if err != nil {
		return score.Rule{}, fmt.Errorf("rule %q: bad value %q", raw, val)
	}
	return score.Rule{Pattern: pat, Value: n, Exact: exact}, nil
}

// flagString renders the flags scoring can set: D(eleted), R(ead), F(lagged).
func flagString(f mail.Flags) string {
	var sb strings.Builder
	for _, fl := range []struct {
		flag mail.Flags
		c    byte
	}{
		{mail.FlagDeleted, 'D'},
		{mail.FlagRead, 'R'},
		{mail.FlagFlagged, 'F'},
	} {
		if f.Has(fl.flag) {
			sb.WriteByte(fl.c)
		}
	}
	return sb.String()
}
