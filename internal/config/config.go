// Package config loads mailpat settings from YAML or TOML files and turns
// them into the address book, group registry and pattern options the
// other packages consume.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gomail "github.com/emersion/go-message/mail"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mailpat/internal/addrbook"
	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/pattern"
)

// Config is the complete settings file.
type Config struct {
	// Case is the case mode for text operands: smart, sensitive or
	// insensitive.
	Case string `yaml:"case" toml:"case"`

	// ThoroughSearch decodes MIME parts before content operators search them.
	ThoroughSearch bool `yaml:"thorough_search" toml:"thorough_search"`

	// FullMessage enables the content operators (~b ~B ~h ~M ~X).
	FullMessage bool `yaml:"full_message" toml:"full_message"`

	// FullAddress matches address operators against display names too.
	FullAddress bool `yaml:"full_address" toml:"full_address"`

	// ServerSearch sends =b, =B and =h to the search index.
	ServerSearch bool `yaml:"server_search" toml:"server_search"`

	// SimpleSearch is the template for searches without operators.
	SimpleSearch string `yaml:"simple_search" toml:"simple_search"`

	// Index is the path of the search index database.
	Index string `yaml:"index" toml:"index"`

	From         []string `yaml:"from" toml:"from"`
	Alternates   []string `yaml:"alternates" toml:"alternates"`
	Unalternates []string `yaml:"unalternates" toml:"unalternates"`
	Lists        []string `yaml:"lists" toml:"lists"`
	Unlists      []string `yaml:"unlists" toml:"unlists"`
	Subscribe    []string `yaml:"subscribe" toml:"subscribe"`
	Unsubscribe  []string `yaml:"unsubscribe" toml:"unsubscribe"`

	// Aliases maps an alias name to address strings ("Name <addr>").
	Aliases map[string][]string `yaml:"aliases" toml:"aliases"`

	Groups map[string]Group `yaml:"groups" toml:"groups"`

	Score []ScoreRule `yaml:"score" toml:"score"`

	// Messages scoring at or below the delete and read thresholds are
	// marked deleted or read; at or above the flag threshold, flagged.
	// A negative delete or read threshold is disabled.
	ScoreThresholdDelete int `yaml:"score_threshold_delete" toml:"score_threshold_delete"`
	ScoreThresholdRead   int `yaml:"score_threshold_read" toml:"score_threshold_read"`
	ScoreThresholdFlag   int `yaml:"score_threshold_flag" toml:"score_threshold_flag"`
}

// Group is a named address group.
type Group struct {
	Addresses []string `yaml:"addresses" toml:"addresses"`
	Regexes   []string `yaml:"regexes" toml:"regexes"`
}

// ScoreRule adds Value to the score of messages matching Pattern. An exact
// rule sets the score to Value and stops further scoring.
type ScoreRule struct {
	Pattern string `yaml:"pattern" toml:"pattern"`
	Value   int    `yaml:"value" toml:"value"`
	Exact   bool   `yaml:"exact" toml:"exact"`
}

// ValidationError names the setting that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Case:                 pattern.CaseSmart.String(),
		SimpleSearch:         pattern.DefaultSimpleSearch,
		ScoreThresholdDelete: -1,
		ScoreThresholdRead:   -1,
		ScoreThresholdFlag:   9999,
	}
}

// Load reads a settings file. The format is chosen by extension: .yaml or
// .yml for YAML, .toml for TOML. Unknown keys are rejected in both.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	case ".toml":
		err = decodeTOML(data, cfg)
	default:
		return nil, fmt.Errorf("config file %s: unsupported format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("failed to parse TOML: unknown keys %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks every setting that can be checked without building the
// address book.
func (c *Config) Validate() error {
	if _, err := pattern.ParseCaseMode(c.Case); err != nil {
		return &ValidationError{Field: "case", Message: err.Error()}
	}
	if c.SimpleSearch != "" && !strings.Contains(c.SimpleSearch, "%s") {
		return &ValidationError{Field: "simple_search", Message: "template must contain %s"}
	}
	for i, rule := range c.Score {
		if strings.TrimSpace(rule.Pattern) == "" {
			return &ValidationError{Field: fmt.Sprintf("score[%d].pattern", i), Message: "pattern is required"}
		}
	}
	for name, addrs := range c.Aliases {
		if name == "" {
			return &ValidationError{Field: "aliases", Message: "alias name is required"}
		}
		for _, a := range addrs {
			if _, err := gomail.ParseAddress(a); err != nil {
				return &ValidationError{Field: "aliases." + name, Message: fmt.Sprintf("invalid address %q: %v", a, err)}
			}
		}
	}
	return nil
}

// CaseMode returns the parsed case setting.
func (c *Config) CaseMode() pattern.CaseMode {
	mode, _ := pattern.ParseCaseMode(c.Case)
	return mode
}

// MatchFlags returns the evaluation flags the settings ask for.
func (c *Config) MatchFlags() match.Flags {
	return match.Flags{
		FullMessage: c.FullMessage,
		FullAddress: c.FullAddress,
		Thorough:    c.ThoroughSearch,
	}
}

// CompileOptions returns pattern options wired to groups and an optional
// external query runner.
func (c *Config) CompileOptions(groups pattern.GroupRegistry, external pattern.ExternalQuery) pattern.Options {
	return pattern.Options{
		FullMessage:  c.FullMessage,
		ServerSearch: c.ServerSearch,
		Case:         c.CaseMode(),
		Groups:       groups,
		External:     external,
	}
}

// Book builds the address book.
func (c *Config) Book() (*addrbook.Book, error) {
	b := addrbook.NewBook(c.From...)
	steps := []struct {
		field string
		add   func(...string) error
		exprs []string
	}{
		{"alternates", b.AddAlternates, c.Alternates},
		{"unalternates", b.AddUnalternates, c.Unalternates},
		{"lists", b.AddLists, c.Lists},
		{"unlists", b.AddUnlists, c.Unlists},
		{"subscribe", b.Subscribe, c.Subscribe},
		{"unsubscribe", b.Unsubscribe, c.Unsubscribe},
	}
	for _, s := range steps {
		if err := s.add(s.exprs...); err != nil {
			return nil, &ValidationError{Field: s.field, Message: err.Error()}
		}
	}

	for _, name := range sortedKeys(c.Aliases) {
		for _, raw := range c.Aliases[name] {
			a, err := gomail.ParseAddress(raw)
			if err != nil {
				return nil, &ValidationError{Field: "aliases." + name, Message: err.Error()}
			}
			b.AddAlias(name, mail.Address{Name: a.Name, Mailbox: a.Address})
		}
	}
	return b, nil
}

// GroupRegistry builds the group registry.
func (c *Config) GroupRegistry() (*addrbook.Groups, error) {
	r := addrbook.NewGroups()
	for _, name := range sortedKeys(c.Groups) {
		spec := c.Groups[name]
		g := r.Define(name)
		g.Add(spec.Addresses...)
		if err := g.AddRegex(spec.Regexes...); err != nil {
			return nil, &ValidationError{Field: "groups." + name, Message: err.Error()}
		}
	}
	return r, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
