package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/metrics"
	"github.com/roach88/mailpat/internal/pattern"
	"github.com/roach88/mailpat/internal/scan"
	"github.com/roach88/mailpat/internal/testutil"
)

// Harness holds the state of one scenario run.
type Harness struct {
	mailbox  *mailbox.Mailbox
	scanner  *scan.Scanner
	recorder *metrics.Recorder
	opts     pattern.Options
	template string
}

// Run executes a scenario and returns the result. Case and assertion
// failures are reported in the result; the error is reserved for
// scenarios that cannot be set up.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()

	for i, step := range scenario.Setup {
		if err := h.executeSetup(ctx, step); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for i, c := range scenario.Cases {
		cr, err := h.executeCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("cases[%d]: %w", i, err)
		}
		if !cr.Pass {
			result.AddError(describeCase(i, c, cr))
		}
		result.Cases = append(result.Cases, cr)
	}

	for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	now := scenario.Now
	if now.IsZero() {
		now = DefaultNow
	}
	clock := testutil.NewFakeClock(now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // keep test output quiet

	msgs := make([]*mailbox.Message, 0, len(scenario.Messages))
	for i, spec := range scenario.Messages {
		m, err := mailbox.Parse([]byte(spec.Raw))
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		flags, err := ParseFlags(spec.Flags)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		m.Status = flags
		m.ScoreValue = spec.Score
		msgs = append(msgs, m)
	}

	cfg := scenario.Settings
	book, err := cfg.Book()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	groups, err := cfg.GroupRegistry()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	recorder := metrics.NewRecorder()
	eval := match.New(
		match.WithDirectory(book),
		match.WithAliases(book),
		match.WithObserver(recorder),
		match.WithClock(clock),
		match.WithLogger(logger),
	)

	opts := cfg.CompileOptions(groups, nil)
	opts.Clock = clock

	return &Harness{
		mailbox: mailbox.New(msgs...),
		scanner: scan.New(eval,
			scan.WithFlags(cfg.MatchFlags()),
			scan.WithIDGenerator(testutil.NewSequenceIDGenerator("scan")),
			scan.WithRecorder(recorder),
			scan.WithClock(clock),
			scan.WithLogger(logger),
		),
		recorder: recorder,
		opts:     opts,
		template: cfg.SimpleSearch,
	}, nil
}

func (h *Harness) compile(input string) (*pattern.Tree, error) {
	return pattern.Compile(pattern.ExpandSimple(input, h.template), h.opts)
}

func (h *Harness) executeSetup(ctx context.Context, step SetupStep) error {
	switch {
	case step.Tag != "" || step.Untag != "":
		input, tag := step.Tag, true
		if input == "" {
			input, tag = step.Untag, false
		}
		tree, err := h.compile(input)
		if err != nil {
			return err
		}
		defer tree.Release()
		_, err = h.scanner.Tag(ctx, tree, h.mailbox, tag)
		return err
	case step.Collapse != 0:
		h.mailbox.Collapse(h.mailbox.Messages()[step.Collapse-1])
	case step.CollapseAll:
		h.mailbox.CollapseAll()
	}
	return nil
}

// executeCase compiles and scans one case. A compile error is an outcome,
// not a failure; an evaluation error aborts the scenario.
func (h *Harness) executeCase(ctx context.Context, c Case) (CaseResult, error) {
	cr := CaseResult{
		Pattern:  c.Pattern,
		Expanded: pattern.ExpandSimple(c.Pattern, h.template),
		Matches:  []int{},
	}

	tree, err := h.compile(c.Pattern)
	if err != nil {
		var pe *pattern.Error
		if !errors.As(err, &pe) {
			return cr, err
		}
		cr.Error = string(pe.Kind)
		cr.Pass = c.Error == cr.Error
		return cr, nil
	}
	defer tree.Release()
	cr.Tree = tree.String()

	res, err := h.scanner.Scan(ctx, tree, h.mailbox)
	if err != nil {
		return cr, err
	}
	cr.Matches = res.Numbers()

	want := c.Expect
	if want == nil {
		want = []int{}
	}
	cr.Pass = c.Error == "" && slices.Equal(cr.Matches, want)
	return cr, nil
}

func describeCase(index int, c Case, cr CaseResult) string {
	if c.Error != "" {
		got := cr.Error
		if got == "" {
			got = fmt.Sprintf("matches %v", cr.Matches)
		}
		return fmt.Sprintf("cases[%d] %q: expected error %s, got %s", index, c.Pattern, c.Error, got)
	}
	if cr.Error != "" {
		return fmt.Sprintf("cases[%d] %q: unexpected error %s", index, c.Pattern, cr.Error)
	}
	return fmt.Sprintf("cases[%d] %q: expected matches %v, got %v", index, c.Pattern, c.Expect, cr.Matches)
}
