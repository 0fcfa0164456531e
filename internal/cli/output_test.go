package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mailpat/internal/config"
	"github.com/roach88/mailpat/internal/match"
	"github.com/roach88/mailpat/internal/pattern"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"matched": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("BAD_REGEX", "missing closing )", CheckDetails{Offset: 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REGEX", resp.Error.Code)
	assert.Equal(t, "missing closing )", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error(ErrCodeMailbox, "no such file", "path=/nowhere"))
			assert.Contains(t, buf.String(), "Error [MAILBOX]: no such file")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: path=/nowhere")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("loaded %d message(s)", 4)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 4 message(s)\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitCommandError, ErrCodeIndex, "indexing failed", errors.New("disk full"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [INDEX]: indexing failed: disk full")
}

func TestErrorCode(t *testing.T) {
	_, compileErr := pattern.Compile("~Z", pattern.Options{})
	require.Error(t, compileErr)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"pattern", compileErr, "UNKNOWN_OPERATOR"},
		{"wrapped pattern", fmt.Errorf("rule 2: %w", compileErr), "UNKNOWN_OPERATOR"},
		{"config", &config.ValidationError{Field: "case", Message: "bad"}, ErrCodeConfig},
		{"environment", &envError{code: ErrCodeIndex, err: errors.New("locked")}, ErrCodeIndex},
		{"thread", fmt.Errorf("message 3: %w", match.ErrNoThreadContext), ErrCodeThread},
		{"other", errors.New("boom"), ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))

	wrapped := WrapExitError(ExitFailure, "no match", errors.New("inner"))
	assert.Equal(t, "no match: inner", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")
}
