package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mailpat/internal/config"
	"github.com/roach88/mailpat/internal/mail"
)

// Scenario defines a pattern conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now fixes the clock. Defaults to DefaultNow.
	Now time.Time `yaml:"now,omitempty"`

	// Settings are applied as if read from a settings file. Keys left out
	// keep their defaults.
	Settings config.Config `yaml:"settings,omitempty"`

	// Messages make up the mailbox, numbered from 1 in order.
	Messages []MessageSpec `yaml:"messages"`

	// Setup runs before the cases.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Cases are compiled and scanned in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate the state left after the cases.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultNow is the clock of scenarios that do not set one.
var DefaultNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// MessageSpec is one message of the scenario mailbox.
type MessageSpec struct {
	// Raw is the RFC 5322 text of the message.
	Raw string `yaml:"raw"`

	// Flags are status flag letters, e.g. "RF".
	Flags string `yaml:"flags,omitempty"`

	// Score presets the message score.
	Score int `yaml:"score,omitempty"`
}

// SetupStep changes the mailbox before the cases run. Exactly one field
// is set.
type SetupStep struct {
	// Tag tags every message matching the pattern.
	Tag string `yaml:"tag,omitempty"`

	// Untag clears the tag of every message matching the pattern.
	Untag string `yaml:"untag,omitempty"`

	// Collapse collapses the thread of the given message number.
	Collapse int `yaml:"collapse,omitempty"`

	// CollapseAll collapses every thread.
	CollapseAll bool `yaml:"collapse_all,omitempty"`
}

// Case is one pattern and its expected outcome. A case with neither
// Expect nor Error expects no matches.
type Case struct {
	Pattern string `yaml:"pattern"`

	// Expect lists the message numbers the pattern must match, in order.
	Expect []int `yaml:"expect,omitempty"`

	// Error is the compile error kind the pattern must fail with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is AssertTagged or AssertMetric.
	Type string `yaml:"type"`

	// Expect lists message numbers (tagged).
	Expect []int `yaml:"expect,omitempty"`

	// Name, Labels and Value identify a counter and its value (metric).
	// Labels use the form kind="list",result="hit".
	Name   string  `yaml:"name,omitempty"`
	Labels string  `yaml:"labels,omitempty"`
	Value  float64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTagged = "tagged"
	AssertMetric = "metric"
)

var flagLetters = map[rune]mail.Flags{
	'D': mail.FlagDeleted,
	'E': mail.FlagExpired,
	'F': mail.FlagFlagged,
	'O': mail.FlagOld,
	'R': mail.FlagRead,
	'A': mail.FlagReplied,
	'S': mail.FlagSuperseded,
	'T': mail.FlagTagged,
}

// ParseFlags converts flag letters to status flags.
func ParseFlags(letters string) (mail.Flags, error) {
	var f mail.Flags
	for _, r := range letters {
		flag, ok := flagLetters[r]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", r)
		}
		f |= flag
	}
	return f, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Settings: *config.Default()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "case:" for "cases:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}
	if err := s.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	for i, m := range s.Messages {
		if strings.TrimSpace(m.Raw) == "" {
			return fmt.Errorf("messages[%d]: raw is required", i)
		}
		if _, err := ParseFlags(m.Flags); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}

	for i, step := range s.Setup {
		if err := validateSetup(i, step, len(s.Messages)); err != nil {
			return err
		}
	}

	for i, c := range s.Cases {
		if c.Pattern == "" {
			return fmt.Errorf("cases[%d]: pattern is required", i)
		}
		if c.Error != "" && len(c.Expect) > 0 {
			return fmt.Errorf("cases[%d]: expect and error are mutually exclusive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateSetup(index int, step SetupStep, messages int) error {
	set := 0
	if step.Tag != "" {
		set++
	}
	if step.Untag != "" {
		set++
	}
	if step.Collapse != 0 {
		set++
		if step.Collapse < 1 || step.Collapse > messages {
			return fmt.Errorf("setup[%d]: collapse names message %d of %d", index, step.Collapse, messages)
		}
	}
	if step.CollapseAll {
		set++
	}
	if set != 1 {
		return fmt.Errorf("setup[%d]: exactly one of tag, untag, collapse, collapse_all is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTagged:
	case AssertMetric:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for metric", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
