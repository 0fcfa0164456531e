package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSimple(t *testing.T) {
	tests := []struct {
		input    string
		template string
		want     string
	}{
		{"~s foo", "", "~s foo"},
		{"=b x", "", "=b x"},
		{"%f friends", "", "%f friends"},
		{"foo", "", `~f "foo" | ~s "foo"`},
		{`a"b`, "", `~f "a\"b" | ~s "a\"b"`},
		{"hello world", "", `~f "hello world" | ~s "hello world"`},
		{"foo", "~b %s", `~b "foo"`},
		{"all", "", "~A"},
		{"ALL", "", "~A"},
		{".", "", "~A"},
		{"^", "", "~A"},
		{"del", "", "~D"},
		{"flag", "", "~F"},
		{"new", "", "~N"},
		{"old", "", "~O"},
		{"repl", "", "~Q"},
		{"read", "", "~R"},
		{"tag", "", "~T"},
		{"Unread", "", "~U"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandSimple(tt.input, tt.template))
		})
	}
}

func TestExpandSimple_Compiles(t *testing.T) {
	tree, err := Compile(ExpandSimple("hello world", ""), testOptions())
	require.NoError(t, err)
	assert.Equal(t, "(or (from /hello world/i) (subject /hello world/i))", tree.String())

	tree, err = Compile(ExpandSimple(`say "hi"`, ""), testOptions())
	require.NoError(t, err)
	assert.Equal(t, `(or (from /say \"hi\"/i) (subject /say \"hi\"/i))`, tree.String())
	assert.True(t, tree.Root().Children[1].Operand.(Regex).Re.MatchString(`Re: say "HI"`))
}

func TestCaseSensitive(t *testing.T) {
	assert.False(t, CaseSensitive("abc"))
	assert.False(t, CaseSensitive("123 @.-"))
	assert.True(t, CaseSensitive("aBc"))
	assert.True(t, CaseSensitive("Ärger"))
	assert.False(t, CaseSensitive(""))
}
