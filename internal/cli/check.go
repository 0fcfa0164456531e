package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mailpat/internal/pattern"
)

// CheckResult is the outcome of compiling one pattern.
type CheckResult struct {
	Input   string    `json:"input"`
	Pattern string    `json:"pattern"` // after simple-search expansion
	Valid   bool      `json:"valid"`
	Tree    string    `json:"tree,omitempty"`
	Nodes   int       `json:"nodes,omitempty"`
	Dynamic bool      `json:"dynamic,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
}

// CheckDetails locates a compile error in the pattern.
type CheckDetails struct {
	Offset int    `json:"offset"`
	Token  string `json:"token,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <pattern>...",
		Short: "Compile patterns without running them",
		Long: `Compile each pattern and print its expression tree.

Simple searches are expanded first. A pattern that fails to compile is
reported with its error kind and the offset of the offending token.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, inputs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := loadEnvironment(opts, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, "", "failed to load settings", err)
	}
	defer env.Close()

	results := make([]CheckResult, 0, len(inputs))
	invalid := 0
	for _, input := range inputs {
		res := checkPattern(env, input)
		if !res.Valid {
			invalid++
		}
		formatter.VerboseLog("checked %q: valid=%t", input, res.Valid)
		results = append(results, res)
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			fmt.Fprint(formatter.Writer, formatCheck(res))
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d patterns invalid", invalid, len(inputs)))
	}
	return nil
}

func checkPattern(env *environment, input string) CheckResult {
	res := CheckResult{
		Input:   input,
		Pattern: pattern.ExpandSimple(input, env.cfg.SimpleSearch),
	}
	tree, err := env.compile(input)
	if err != nil {
		res.Error = &CLIError{Code: errorCode(err), Message: err.Error()}
		var pe *pattern.Error
		if errors.As(err, &pe) {
			res.Error.Message = pe.Message
			res.Error.Details = CheckDetails{Offset: pe.Offset, Token: pe.Token}
		}
		return res
	}
	defer tree.Release()

	res.Valid = true
	res.Tree = tree.String()
	res.Nodes = tree.Len()
	res.Dynamic = tree.Dynamic()
	return res
}

// formatCheck renders one result for text output, with a caret under the
// offending token of an invalid pattern.
func formatCheck(res CheckResult) string {
	var sb strings.Builder
	if res.Valid {
		fmt.Fprintf(&sb, "✓ %s\n  %s\n", res.Pattern, res.Tree)
		return sb.String()
	}

	fmt.Fprintf(&sb, "✗ %s\n", res.Pattern)
	if d, ok := res.Error.Details.(CheckDetails); ok {
		fmt.Fprintf(&sb, "  %s^\n", strings.Repeat(" ", d.Offset))
	}
	fmt.Fprintf(&sb, "  %s: %s\n", res.Error.Code, res.Error.Message)
	return sb.String()
}
