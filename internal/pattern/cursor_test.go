package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_StructuralTokens(t *testing.T) {
	c := newCursor(`!^@~s ( ) | ~<( ~>( =b %g ~(`)

	want := []struct {
		kind   TokenKind
		text   string
		offset int
		tag    string
	}{
		{TokNot, "!", 0, ""},
		{TokAllAddr, "^", 1, ""},
		{TokAlias, "@", 2, ""},
		{TokOperator, "~s", 3, "s"},
		{TokLParen, "(", 6, ""},
		{TokRParen, ")", 8, ""},
		{TokOr, "|", 10, ""},
		{TokOperator, "~<(", 12, "<("},
		{TokOperator, "~>(", 16, ">("},
		{TokOperator, "=b", 20, "b"},
		{TokOperator, "%g", 23, "g"},
		{TokOperator, "~(", 26, "("},
		{TokEOF, "", 28, ""},
	}

	for i, w := range want {
		tok := c.Next()
		assert.Equal(t, w.kind, tok.Kind, "token %d", i)
		assert.Equal(t, w.text, tok.Text, "token %d", i)
		assert.Equal(t, w.offset, tok.Offset, "token %d", i)
		assert.Equal(t, w.tag, tok.Tag, "token %d", i)
	}
}

func TestCursor_PeekDoesNotConsume(t *testing.T) {
	c := newCursor("~A ~D")

	assert.Equal(t, "~A", c.Peek().Text)
	assert.Equal(t, "~A", c.Peek().Text)
	assert.Equal(t, 0, c.Offset())

	assert.Equal(t, "~A", c.Next().Text)
	assert.Equal(t, 2, c.Offset())
	assert.Equal(t, "~D", c.Next().Text)
	assert.Equal(t, TokEOF, c.Next().Kind)
}

func TestCursor_InvalidTokens(t *testing.T) {
	tests := []struct {
		input string
		text  string
	}{
		{"foo bar", "foo"},
		{"~ s", "~"},
		{"~", "~"},
		{"  =", "="},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := newCursor(tt.input).Next()
			assert.Equal(t, TokInvalid, tok.Kind)
			assert.Equal(t, tt.text, tok.Text)
		})
	}
}

func TestCursor_Operand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lead  string
		value string
		raw   string
		next  TokenKind
	}{
		{"plain", "~s foo ~A", "", "foo", "foo", TokOperator},
		{"single quotes are verbatim", `~s 'a \b'`, "", `a \b`, `'a \b'`, TokEOF},
		{"double quotes keep escapes", `~s "a\"b c"`, "", `a\"b c`, `"a\"b c"`, TokEOF},
		{"escaped space", `~s foo\ bar`, "", "foo bar", `foo\ bar`, TokEOF},
		{"regex escape kept", `~s a\.b`, "", `a\.b`, `a\.b`, TokEOF},
		{"stops at closing paren", "~s a(b)c) ~A", "", "a(b)c", "a(b)c", TokRParen},
		{"stops at or", "~s foo|~s bar", "", "foo", "foo", TokOr},
		{"stops at negation", "~s foo!~A", "", "foo", "foo", TokNot},
		{"lead accepted first", "~d =1d", "=", "=1d", "=1d", TokEOF},
		{"lead rejected without permission", "~s =x", "", "", "", TokOperator},
		{"lead only at start", "~m 1=2", "=", "1", "1", TokOperator},
		{"missing", "~s", "", "", "", TokEOF},
		{"empty quotes", `~s ""`, "", "", `""`, TokEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCursor(tt.input)
			op := c.Next()
			require.Equal(t, TokOperator, op.Kind)

			tok, value, err := c.Operand(tt.lead)
			require.NoError(t, err)
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.raw, tok.Text)
			assert.Equal(t, tt.next, c.Peek().Kind)
		})
	}
}

func TestCursor_OperandUnterminatedQuote(t *testing.T) {
	for _, input := range []string{`~s "abc`, `~s 'abc`, `~s "a\"`} {
		t.Run(input, func(t *testing.T) {
			c := newCursor(input)
			c.Next()

			_, _, err := c.Operand("")
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrUnterminatedQuote))
		})
	}
}

func TestCursor_Closes(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"( ~A )", true},
		{"( ~s a(b) )", true},
		{`( ~s ")" `, false},
		{`( ~s ')' `, false},
		{`( ~s \) `, false},
		{"( (~A) ", false},
		{"(", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := newCursor(tt.input)
			require.Equal(t, TokLParen, c.Next().Kind)

			assert.Equal(t, tt.want, c.closes())
			assert.Equal(t, 1, c.Offset(), "closes must not move the cursor")
		})
	}
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "plain", unescape("plain"))
	assert.Equal(t, `a"b`, unescape(`a\"b`))
	assert.Equal(t, `a\b`, unescape(`a\\b`))
	assert.Equal(t, `trailing\`, unescape(`trailing\`))
}
