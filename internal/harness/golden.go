package harness

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as stable text, one block per case:
//
//	scenario: threads
//	~(~f bob)
//	  tree: (thread (from /bob/i))
//	  matches: 1 2
func Snapshot(name string, result *Result) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", name)
	for _, c := range result.Cases {
		sb.WriteString(c.Expanded)
		sb.WriteByte('\n')
		if c.Error != "" {
			fmt.Fprintf(&sb, "  error: %s\n", c.Error)
			continue
		}
		fmt.Fprintf(&sb, "  tree: %s\n", c.Tree)
		if len(c.Matches) == 0 {
			sb.WriteString("  matches: none\n")
			continue
		}
		nums := make([]string, len(c.Matches))
		for i, n := range c.Matches {
			nums[i] = strconv.Itoa(n)
		}
		fmt.Fprintf(&sb, "  matches: %s\n", strings.Join(nums, " "))
	}
	return []byte(sb.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
	return result, nil
}
