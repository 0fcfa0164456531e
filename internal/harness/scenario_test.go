package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/pattern"
)

const minimalScenario = `
name: minimal
description: one message, one case
messages:
  - raw: "Subject: hi\n\nbody\n"
cases:
  - pattern: "~s hi"
    expect: [1]
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "conversation.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "conversation", s.Name)
	assert.Equal(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC), s.Now.UTC())
	assert.Len(t, s.Messages, 4)
	assert.Equal(t, "RA", s.Messages[1].Flags)
	assert.Equal(t, []string{"me@example.com"}, s.Settings.From)
	require.Len(t, s.Setup, 3)
	assert.Equal(t, 1, s.Setup[2].Collapse)
	assert.Equal(t, "BAD_REGEX", s.Cases[len(s.Cases)-1].Error)
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, AssertMetric, s.Assertions[1].Type)
}

func TestParseScenario_KeepsDefaultSettings(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "smart", s.Settings.Case)
	assert.Equal(t, pattern.DefaultSimpleSearch, s.Settings.SimpleSearch)
	assert.True(t, s.Now.IsZero())
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\ncase:\n  - pattern: ~A\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: y\ncases:\n  - pattern: ~A\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\ncases:\n  - pattern: ~A\n",
			wantErr: "description is required",
		},
		{
			name:    "no cases",
			yaml:    "name: x\ndescription: y\n",
			wantErr: "cases list is required",
		},
		{
			name:    "empty pattern",
			yaml:    "name: x\ndescription: y\ncases:\n  - expect: [1]\n",
			wantErr: "cases[0]: pattern is required",
		},
		{
			name:    "expect and error",
			yaml:    "name: x\ndescription: y\ncases:\n  - pattern: ~A\n    expect: [1]\n    error: BAD_RANGE\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad flag",
			yaml:    "name: x\ndescription: y\nmessages:\n  - raw: \"Subject: a\\n\\nb\\n\"\n    flags: Z\ncases:\n  - pattern: ~A\n",
			wantErr: "messages[0]: unknown flag",
		},
		{
			name:    "empty message",
			yaml:    "name: x\ndescription: y\nmessages:\n  - flags: R\ncases:\n  - pattern: ~A\n",
			wantErr: "messages[0]: raw is required",
		},
		{
			name:    "two setup actions",
			yaml:    "name: x\ndescription: y\nsetup:\n  - tag: ~A\n    collapse_all: true\ncases:\n  - pattern: ~A\n",
			wantErr: "exactly one of",
		},
		{
			name:    "collapse out of range",
			yaml:    "name: x\ndescription: y\nsetup:\n  - collapse: 2\ncases:\n  - pattern: ~A\n",
			wantErr: "collapse names message 2 of 0",
		},
		{
			name:    "bad settings",
			yaml:    "name: x\ndescription: y\nsettings:\n  case: loud\ncases:\n  - pattern: ~A\n",
			wantErr: "settings:",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: y\ncases:\n  - pattern: ~A\nassertions:\n  - type: trace_order\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "metric without name",
			yaml:    "name: x\ndescription: y\ncases:\n  - pattern: ~A\nassertions:\n  - type: metric\n",
			wantErr: "name is required for metric",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags("RAT")
	require.NoError(t, err)
	assert.Equal(t, mail.FlagRead|mail.FlagReplied|mail.FlagTagged, f)

	f, err = ParseFlags("")
	require.NoError(t, err)
	assert.Zero(t, f)

	_, err = ParseFlags("Rx")
	assert.Error(t, err)
}

func TestScenarioFiles_Parse(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			data, err := os.ReadFile(f)
			require.NoError(t, err)
			_, err = ParseScenario(data)
			assert.NoError(t, err)
		})
	}
}
