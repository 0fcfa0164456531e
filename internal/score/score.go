// Package score assigns scores to messages from a list of pattern rules.
//
// All rules of one message are evaluated against a single match.Cache, so
// the list and personal predicates are computed at most once per message
// however many rules use them.
package score

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/pattern"
)

// Rule adds Value to the score of every message matching Pattern. An
// Exact rule sets the score to Value and ends scoring for the message.
type Rule struct {
	Pattern string
	Value   int
	Exact   bool
}

// Thresholds turn scores into flags. A negative Delete or Read threshold
// is disabled.
type Thresholds struct {
	Delete int
	Read   int
	Flag   int
}

// DefaultThresholds disables delete and read and flags at 9999.
var DefaultThresholds = Thresholds{Delete: -1, Read: -1, Flag: 9999}

// RuleError reports a rule whose pattern does not compile.
type RuleError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("score rule %d %q: %v", e.Index, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

type compiled struct {
	Rule
	tree *pattern.Tree
}

// Engine scores messages.
type Engine struct {
	rules      []compiled
	eval       *match.Evaluator
	flags      match.Flags
	thresholds Thresholds
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds sets the flag thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithFlags sets the evaluation flags rules are matched with.
func WithFlags(f match.Flags) Option {
	return func(e *Engine) {
		e.flags = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New compiles rules with opts. The first rule that fails to compile is
// returned as a *RuleError.
func New(rules []Rule, opts pattern.Options, eval *match.Evaluator, options ...Option) (*Engine, error) {
	e := &Engine{
		eval:       eval,
		thresholds: DefaultThresholds,
		logger:     slog.Default(),
	}
	for _, o := range options {
		o(e)
	}

	for i, r := range rules {
		tree, err := pattern.Compile(r.Pattern, opts)
		if err != nil {
			e.Release()
			return nil, &RuleError{Index: i, Pattern: r.Pattern, Err: err}
		}
		e.rules = append(e.rules, compiled{Rule: r, tree: tree})
	}
	return e, nil
}

// Len returns the number of rules.
func (e *Engine) Len() int { return len(e.rules) }

// Release frees every compiled rule.
func (e *Engine) Release() {
	for _, r := range e.rules {
		r.tree.Release()
	}
	e.rules = nil
}

// Score computes the score of msg. Negative totals are clamped to zero.
func (e *Engine) Score(ctx context.Context, msg mail.Message, mbox mail.Mailbox, cache *match.Cache) (int, error) {
	total := 0
	for _, r := range e.rules {
		ok, err := e.eval.Match(ctx, r.tree, e.flags, msg, mbox, cache)
		if err != nil {
			return 0, fmt.Errorf("score rule %q: %w", r.Pattern, err)
		}
		if !ok {
			continue
		}
		if r.Exact {
			total = r.Value
			break
		}
		total += r.Value
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

// Flags returns the status flags a score implies.
func (t Thresholds) Flags(score int) mail.Flags {
	var f mail.Flags
	if t.Delete >= 0 && score <= t.Delete {
		f |= mail.FlagDeleted
	}
	if t.Read >= 0 && score <= t.Read {
		f |= mail.FlagRead
	}
	if score >= t.Flag {
		f |= mail.FlagFlagged
	}
	return f
}

// Apply scores every message of mb, stores the score on the message and
// adds the flags the thresholds imply. Each message gets a fresh cache.
func (e *Engine) Apply(ctx context.Context, mb *mailbox.Mailbox) error {
	cache := match.NewCache()
	for _, m := range mb.Messages() {
		cache.Reset()
		s, err := e.Score(ctx, m, mb, cache)
		if err != nil {
			return fmt.Errorf("message %d: %w", m.Number(), err)
		}
		m.ScoreValue = s
		m.Status |= e.thresholds.Flags(s)
		e.logger.Debug("scored message", "message", m.Number(), "score", s)
	}
	return nil
}
