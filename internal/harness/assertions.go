package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/mailpat/internal/mail"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness state and
// returns the failure messages.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTagged:
			err = assertTagged(h, a)
		case AssertMetric:
			err = assertMetric(h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTagged checks that exactly the listed messages are tagged.
func assertTagged(h *Harness, a Assertion) error {
	tagged := []int{}
	for _, m := range h.mailbox.Messages() {
		if m.Flags().Has(mail.FlagTagged) {
			tagged = append(tagged, m.Number())
		}
	}
	want := a.Expect
	if want == nil {
		want = []int{}
	}
	if !slices.Equal(tagged, want) {
		return &AssertionError{
			Type:     AssertTagged,
			Expected: fmt.Sprintf("tagged %v", want),
			Actual:   fmt.Sprintf("tagged %v", tagged),
		}
	}
	return nil
}

// assertMetric checks a counter value. A counter that was never
// incremented reads as zero.
func assertMetric(h *Harness, a Assertion) error {
	samples, err := h.recorder.Snapshot()
	if err != nil {
		return err
	}
	var got float64
	for _, s := range samples {
		if s.Name == a.Name && s.Labels == a.Labels {
			got = s.Value
			break
		}
	}
	if got != a.Value {
		return &AssertionError{
			Type:     AssertMetric,
			Expected: fmt.Sprintf("%s{%s} = %g", a.Name, a.Labels, a.Value),
			Actual:   fmt.Sprintf("%g", got),
		}
	}
	return nil
}
