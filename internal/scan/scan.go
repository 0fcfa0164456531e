// Package scan applies a compiled pattern to every message of a mailbox,
// as the limit, search and tag commands do.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/mailbox"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/metrics"
	"github.com/roach88/mailpat/internal/pattern"
)

// IDGenerator produces scan IDs that tie together the log lines of one
// pass over a mailbox.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 scan IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Result is the outcome of one scan.
type Result struct {
	ID      string
	Pattern string
	Scanned int
	Matches []*mailbox.Message
	Elapsed time.Duration
}

// Numbers returns the message numbers of the matches.
func (r *Result) Numbers() []int {
	nums := make([]int, len(r.Matches))
	for i, m := range r.Matches {
		nums[i] = m.Number()
	}
	return nums
}

// Scanner runs patterns over mailboxes.
type Scanner struct {
	eval     *match.Evaluator
	flags    match.Flags
	ids      IDGenerator
	workers  int
	recorder *metrics.Recorder
	clock    pattern.Clock
	logger   *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFlags sets the evaluation flags.
func WithFlags(f match.Flags) Option {
	return func(s *Scanner) {
		s.flags = f
	}
}

// WithIDGenerator sets the scan ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Scanner) {
		s.ids = g
	}
}

// WithWorkers evaluates messages on n goroutines, each with its own cache.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRecorder records per-message outcomes and scan durations.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Scanner) {
		s.recorder = r
	}
}

// WithClock sets the clock used to time scans.
func WithClock(c pattern.Clock) Option {
	return func(s *Scanner) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// New creates a Scanner.
func New(eval *match.Evaluator, opts ...Option) *Scanner {
	s := &Scanner{
		eval:    eval,
		ids:     UUIDv7Generator{},
		workers: 1,
		clock:   pattern.SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the messages of mb matching tree, in mailbox order. Members
// of collapsed threads are scanned like any other message. It stops early
// when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, tree *pattern.Tree, mb *mailbox.Mailbox) (*Result, error) {
	res := &Result{ID: s.ids.Generate(), Pattern: tree.Source()}
	logger := s.logger.With("scan", res.ID)
	logger.Debug("scan started", "pattern", res.Pattern, "messages", mb.Len(), "workers", s.workers)
	start := s.clock.Now()

	msgs := mb.Messages()
	matched := make([]bool, len(msgs))
	if err := s.run(ctx, tree, mb, msgs, matched); err != nil {
		logger.Warn("scan failed", "error", err)
		return nil, fmt.Errorf("scan %s: %w", res.ID, err)
	}

	for i, m := range msgs {
		if matched[i] {
			res.Matches = append(res.Matches, m)
		}
	}
	res.Scanned = len(msgs)
	res.Elapsed = s.clock.Now().Sub(start)
	if s.recorder != nil {
		s.recorder.ScanFinished(res.Elapsed)
	}
	logger.Debug("scan finished", "scanned", res.Scanned, "matched", len(res.Matches), "elapsed", res.Elapsed)
	return res, nil
}

// run evaluates msgs[i] into matched[i]. Each worker takes every
// workers-th message and owns one cache.
func (s *Scanner) run(ctx context.Context, tree *pattern.Tree, mb mail.Mailbox, msgs []*mailbox.Message, matched []bool) error {
	workers := s.workers
	if workers > len(msgs) {
		workers = len(msgs)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			cache := match.NewCache()
			for i := offset; i < len(msgs); i += workers {
				if err := ctx.Err(); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				cache.Reset()
				ok, err := s.eval.Match(ctx, tree, s.flags, msgs[i], mb, cache)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("message %d: %w", msgs[i].Number(), err)
					}
					mu.Unlock()
					return
				}
				matched[i] = ok
				if s.recorder != nil {
					s.recorder.MessageScanned(ok)
				}
			}
		}(w)
	}
	wg.Wait()
	return firstErr
}

// Tag sets or clears the tagged flag on every message matching tree and
// returns the scan result.
func (s *Scanner) Tag(ctx context.Context, tree *pattern.Tree, mb *mailbox.Mailbox, tag bool) (*Result, error) {
	res, err := s.Scan(ctx, tree, mb)
	if err != nil {
		return nil, err
	}
	for _, m := range res.Matches {
		if tag {
			m.Status |= mail.FlagTagged
		} else {
			m.Status &^= mail.FlagTagged
		}
	}
	return res, nil
}
