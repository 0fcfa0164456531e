package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/mailpat/internal/addrbook"
	"github.com/roach88/mailpat/internal/config"
	"github.com/roach88/mailpat/internal/index"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/metrics"
	"github.com/roach88/mailpat/internal/pattern"
)

// environment is everything a command needs to compile and evaluate
// patterns: settings, address book, groups and the optional index.
type environment struct {
	cfg      *config.Config
	book     *addrbook.Book
	groups   *addrbook.Groups
	index    *index.Index
	recorder *metrics.Recorder
	eval     *match.Evaluator
	logger   *slog.Logger
}

// loadEnvironment reads the settings file named by opts, if any, and opens
// the index at indexPath, falling back to the configured one. An empty path
// leaves the index closed.
func loadEnvironment(opts *RootOptions, indexPath string) (*environment, error) {
	logger := opts.logger()

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, &envError{code: ErrCodeConfig, err: err}
		}
		cfg = loaded
	}

	book, err := cfg.Book()
	if err != nil {
		return nil, &envError{code: ErrCodeConfig, err: fmt.Errorf("invalid config: %w", err)}
	}
	groups, err := cfg.GroupRegistry()
	if err != nil {
		return nil, &envError{code: ErrCodeConfig, err: fmt.Errorf("invalid config: %w", err)}
	}

	env := &environment{
		cfg:      cfg,
		book:     book,
		groups:   groups,
		recorder: metrics.NewRecorder(),
		logger:   logger,
	}

	if indexPath == "" {
		indexPath = cfg.Index
	}
	evalOpts := []match.Option{
		match.WithDirectory(book),
		match.WithAliases(book),
		match.WithObserver(env.recorder),
		match.WithLogger(logger),
	}
	if indexPath != "" {
		ix, err := index.Open(indexPath, index.WithLogger(logger))
		if err != nil {
			return nil, &envError{code: ErrCodeIndex, err: fmt.Errorf("open index: %w", err)}
		}
		env.index = ix
		evalOpts = append(evalOpts, match.WithSearcher(ix))
		logger.Debug("index opened", "path", indexPath)
	}
	env.eval = match.New(evalOpts...)
	return env, nil
}

// Close releases the index, if open.
func (e *environment) Close() error {
	if e.index == nil {
		return nil
	}
	return e.index.Close()
}

// compileOptions returns the pattern options for this environment. Without
// an index "~I" is rejected at compile time.
func (e *environment) compileOptions() pattern.Options {
	var external pattern.ExternalQuery
	if e.index != nil {
		external = e.index
	}
	return e.cfg.CompileOptions(e.groups, external)
}

// compile expands a simple search and compiles it.
func (e *environment) compile(input string) (*pattern.Tree, error) {
	expanded := pattern.ExpandSimple(input, e.cfg.SimpleSearch)
	if expanded != input {
		e.logger.Debug("expanded simple search", "input", input, "pattern", expanded)
	}
	return pattern.Compile(expanded, e.compileOptions())
}

// envError tags a failure to build the environment with a response code.
type envError struct {
	code string
	err  error
}

func (e *envError) Error() string { return e.err.Error() }

func (e *envError) Unwrap() error { return e.err }
