package pattern

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubGroup []string

func (g stubGroup) Match(s string) bool {
	for _, v := range g {
		if v == s {
			return true
		}
	}
	return false
}

type stubGroups map[string]stubGroup

func (r stubGroups) Group(name string) (Group, bool) {
	g, ok := r[name]
	return g, ok
}

type stubExternal struct {
	ids     []string
	err     error
	queries []string
}

func (e *stubExternal) MessageIDs(query string) ([]string, error) {
	e.queries = append(e.queries, query)
	return e.ids, e.err
}

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Clock:  fixedClock{testNow},
		Groups: stubGroups{"friends": {"alice@example.com"}},
	}
}

func TestCompile_Trees(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"~A", "(all)"},
		{"~s foo", "(subject /foo/i)"},
		{"~s Foo", "(subject /Foo/)"},
		{"~f alice ~s report", "(and (from /alice/i) (subject /report/i))"},
		{"~A | ~D ~F", "(or (all) (and (deleted) (flagged)))"},
		{"~A|~D|~F", "(or (all) (deleted) (flagged))"},
		{"(~A | ~D) ~F", "(and (or (all) (deleted)) (flagged))"},
		{"!~N", "!(new)"},
		{"!!~N", "(new)"},
		{"!(~N | ~O)", "!(or (new) (old))"},
		{"!(!~N)", "(new)"},
		{"^~C foo", "^(recipient /foo/i)"},
		{"@~f x", "@(from /x/i)"},
		{"!^~l", "!^(list)"},
		{"=s Foo", `(subject "Foo")`},
		{"=s foo", `(subject "foo"i)`},
		{`=s "a \"b\""`, `(subject "a \"b\""i)`},
		{"%f friends", "(from %friends)"},
		{"~m 1-5", "(number 1..5)"},
		{"~m <5", "(number *..4)"},
		{"~m -5", "(number *..5)"},
		{"~n >3", "(score 4..*)"},
		{"~z 10K-", "(size 10240..*)"},
		{"~n =7", "(score 7..7)"},
		{"~( ~s foo )", "(thread (subject /foo/i))"},
		{"~<(~F)", "(parent (flagged))"},
		{"~>(~F | ~T)", "(children (or (flagged) (tagged)))"},
		{"~d <1d", "(date <1d)"},
		{"~r =2w", "(received =2w)"},
		{"~d 01/02/2020", "(date 2020-02-01T00:00:00Z..2020-02-01T23:59:59Z)"},
		{"~d 20200102-20200105", "(date 2020-01-02T00:00:00Z..2020-01-05T23:59:59Z)"},
		{"~d 20200102-", "(date 2020-01-02T00:00:00Z..*)"},
		{"~s foo\\ bar", "(subject /foo bar/i)"},
		{"~v ~= ~$ ~#", "(and (collapsed) (duplicated) (unreferenced) (broken))"},
		{"~g ~G ~V ~k", "(and (signed) (encrypted) (verified) (pgp-key))"},
		{"~p | ~P | ~u", "(or (personal-recipient) (personal-from) (subscribed-list))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree, err := Compile(tt.input, testOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.want, tree.String())
			assert.Equal(t, tt.input, tree.Source())
		})
	}
}

func TestCompile_Offsets(t *testing.T) {
	tree, err := Compile("~A | !~s foo", testOptions())
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, KindOr, root.Kind)
	require.Len(t, root.Children, 2)
	assert.Equal(t, 0, root.Offset)
	assert.Equal(t, 0, root.Children[0].Offset)
	assert.Equal(t, 6, root.Children[1].Offset)
}

func TestCompile_OperandVariants(t *testing.T) {
	tree, err := Compile(`~s Foo =t bob %c friends ~m 3 ~d 1/1/2024`, testOptions())
	require.NoError(t, err)

	children := tree.Root().Children
	require.Len(t, children, 5)

	re, ok := children[0].Operand.(Regex)
	require.True(t, ok)
	assert.Equal(t, "Foo", re.Source)
	assert.True(t, re.Re.MatchString("xFoo"))
	assert.False(t, re.Re.MatchString("foo"))

	lit, ok := children[1].Operand.(Literal)
	require.True(t, ok)
	assert.Equal(t, "bob", lit.Text)
	assert.True(t, lit.In("BOB SMITH", true))
	assert.False(t, lit.In("BOB SMITH", false))

	group, ok := children[2].Operand.(GroupRef)
	require.True(t, ok)
	assert.Equal(t, "friends", group.Name)
	assert.True(t, group.Group.Match("alice@example.com"))

	rng, ok := children[3].Operand.(NumberRange)
	require.True(t, ok)
	assert.True(t, rng.Contains(3))
	assert.False(t, rng.Contains(4))

	date, ok := children[4].Operand.(DateRange)
	require.True(t, ok)
	assert.Nil(t, date.Relative)
	assert.False(t, children[4].Flags.Dynamic)
}

func TestCompile_CaseModes(t *testing.T) {
	opts := testOptions()

	opts.Case = CaseMatch
	tree, err := Compile("~s foo", opts)
	require.NoError(t, err)
	assert.Equal(t, "(subject /foo/)", tree.String())

	opts.Case = CaseIgnore
	tree, err = Compile("~s Foo", opts)
	require.NoError(t, err)
	assert.Equal(t, "(subject /Foo/i)", tree.String())

	re := tree.Root().Operand.(Regex)
	assert.True(t, re.Re.MatchString("FOO"))
}

func TestParseCaseMode(t *testing.T) {
	for in, want := range map[string]CaseMode{
		"":            CaseSmart,
		"smart":       CaseSmart,
		"Sensitive":   CaseMatch,
		"insensitive": CaseIgnore,
	} {
		got, err := ParseCaseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCaseMode("loud")
	assert.Error(t, err)
	assert.Equal(t, "insensitive", CaseIgnore.String())
}

func TestCompile_DynamicDates(t *testing.T) {
	tree, err := Compile("~d <1d", testOptions())
	require.NoError(t, err)
	assert.True(t, tree.Dynamic())
	assert.True(t, tree.Root().Flags.Dynamic)

	tree, err = Compile("~d 1/1/2024 ~s x", testOptions())
	require.NoError(t, err)
	assert.False(t, tree.Dynamic())
}

func TestCompile_FullMessage(t *testing.T) {
	opts := testOptions()

	for _, input := range []string{"~b foo", "~B foo", "~h foo", "~M text/html", "~X 1-"} {
		_, err := Compile(input, opts)
		require.Error(t, err, input)
		assert.True(t, IsKind(err, ErrNotSupported), input)
	}

	opts.FullMessage = true
	tree, err := Compile("~b foo ~X 1-", opts)
	require.NoError(t, err)
	assert.Equal(t, "(and (body /foo/i) (attachments 1..*))", tree.String())
}

func TestCompile_ServerSearch(t *testing.T) {
	opts := testOptions()
	opts.ServerSearch = true

	tree, err := Compile("=b invoice =h X-Spam", opts)
	require.NoError(t, err)
	assert.Equal(t, `(and (server-search body "invoice"i) (server-search header "X-Spam"))`, tree.String())

	search := tree.Root().Children[0].Operand.(Search)
	assert.Equal(t, KindBody, search.Field)
	assert.Equal(t, "invoice", search.Text)

	// "~" still needs the full message.
	_, err = Compile("~b invoice", opts)
	assert.True(t, IsKind(err, ErrNotSupported))
}

func TestCompile_ExternalQuery(t *testing.T) {
	ext := &stubExternal{ids: []string{"<a@x>", "<b@x>"}}
	opts := testOptions()
	opts.External = ext

	tree, err := Compile(`~I "tag:work and from:bob"`, opts)
	require.NoError(t, err)
	assert.Equal(t, `(external-id ["<a@x>" "<b@x>"])`, tree.String())
	assert.Equal(t, []string{"tag:work and from:bob"}, ext.queries)

	alts := tree.Root().Operand.(Alternatives)
	assert.True(t, alts.Contains("<b@x>"))
	assert.False(t, alts.Contains("<c@x>"))

	ext.err = errors.New("index offline")
	_, err = Compile("~I anything", opts)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrExternalQuery))
	assert.Contains(t, err.Error(), "index offline")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		input  string
		kind   ErrorKind
		token  string
		offset int
	}{
		{"", ErrEmptyExpression, "", 0},
		{"   ", ErrEmptyExpression, "", 0},
		{"(", ErrUnbalancedParens, "(", 0},
		{"(~A", ErrUnbalancedParens, "(", 0},
		{"~(~A", ErrUnbalancedParens, "~(", 0},
		{"~s a )", ErrUnbalancedParens, ")", 5},
		{")", ErrUnbalancedParens, ")", 0},
		{"~A | )", ErrUnbalancedParens, ")", 5},
		{"()", ErrEmptyExpression, ")", 1},
		{"~Z", ErrUnknownOperator, "~Z", 0},
		{"~A foo", ErrUnknownOperator, "foo", 3},
		{"~ s", ErrUnknownOperator, "~", 0},
		{"~<x", ErrUnknownOperator, "~<", 0},
		{"~d not-a-date", ErrBadDate, "not-a-date", 3},
		{"~d 31/02/2024", ErrBadDate, "31/02/2024", 3},
		{"~d <5q", ErrBadDate, "<5q", 3},
		{"~s (", ErrBadRegex, "(", 3},
		{"~s a[", ErrBadRegex, "a[", 3},
		{"~m 5-2", ErrBadRange, "5-2", 3},
		{"~m abc", ErrBadRange, "abc", 3},
		{"%f nobody", ErrUndefinedGroup, "nobody", 3},
		{"~A |", ErrEmptyExpression, "", 4},
		{"| ~A", ErrEmptyExpression, "|", 0},
		{"!", ErrEmptyExpression, "!", 0},
		{"~A !", ErrEmptyExpression, "!", 3},
		{"~s", ErrMissingOperand, "~s", 0},
		{"~s )", ErrMissingOperand, "~s", 0},
		{"~m", ErrMissingOperand, "~m", 0},
		{`~s "abc`, ErrUnterminatedQuote, `"abc`, 3},
		{"^~s x", ErrBadModifier, "~s", 1},
		{"@~s x", ErrBadModifier, "~s", 1},
		{"=A", ErrBadModifier, "=A", 0},
		{"%d 1", ErrBadModifier, "%d", 0},
		{"^(~A)", ErrBadModifier, "^", 0},
		{"~b foo", ErrNotSupported, "~b", 0},
		{"=b foo", ErrNotSupported, "=b", 0},
		{"~I query", ErrExternalQuery, "query", 3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree, err := Compile(tt.input, testOptions())
			require.Error(t, err)
			assert.Nil(t, tree)

			var perr *Error
			require.True(t, errors.As(err, &perr), "error %v is not a *Error", err)
			assert.Equal(t, tt.kind, perr.Kind, err.Error())
			assert.Equal(t, tt.token, perr.Token)
			assert.Equal(t, tt.offset, perr.Offset)
		})
	}
}

func TestCompile_BadRegexWrapsCause(t *testing.T) {
	_, err := Compile("~s a[", testOptions())
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.NotNil(t, errors.Unwrap(perr))
	assert.Contains(t, err.Error(), `BAD_REGEX at offset 3 ("a[")`)
}

func TestError_Format(t *testing.T) {
	err := &Error{Kind: ErrEmptyExpression, Message: "empty pattern"}
	assert.Equal(t, "EMPTY_EXPRESSION at offset 0: empty pattern", err.Error())

	err = &Error{Kind: ErrUnknownOperator, Token: "~Z", Offset: 4, Message: "unknown operator"}
	assert.Equal(t, `UNKNOWN_OPERATOR at offset 4 ("~Z"): unknown operator`, err.Error())

	assert.False(t, IsKind(errors.New("plain"), ErrUnknownOperator))
}

func TestCompile_Deterministic(t *testing.T) {
	input := `~f alice (~s "re: report" | ~d <2w) !^~C bob =s x ~( ~F ) %c friends`

	first, err := Compile(input, testOptions())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Compile(input, testOptions())
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
		assert.Equal(t, first.Len(), again.Len())
	}
}

func TestTree_Release(t *testing.T) {
	tree, err := Compile("~A (~s foo | ~( ~F ))", testOptions())
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, 6, tree.Len())
	assert.False(t, tree.Released())

	tree.Release()

	assert.True(t, tree.Released())
	assert.Nil(t, tree.Root())
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, "(released)", tree.String())
	assert.Nil(t, root.Children)

	// Releasing again is a no-op.
	tree.Release()
	assert.True(t, tree.Released())
}

func TestTree_Walk(t *testing.T) {
	tree, err := Compile("~A | ~s x ~F", testOptions())
	require.NoError(t, err)

	var kinds []Kind
	tree.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	assert.Equal(t, []Kind{KindOr, KindAll, KindAnd, KindSubject, KindFlagged}, kinds)

	kinds = nil
	tree.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != KindAnd
	})
	assert.Equal(t, []Kind{KindOr, KindAll, KindAnd}, kinds)
}

func TestMustCompile(t *testing.T) {
	assert.NotPanics(t, func() { MustCompile("~A", testOptions()) })
	assert.Panics(t, func() { MustCompile("~Z", testOptions()) })
}

func TestLookup(t *testing.T) {
	op, ok := Lookup("f")
	require.True(t, ok)
	assert.Equal(t, KindFrom, op.Kind)
	assert.True(t, op.Address)
	assert.True(t, op.AllAddr)

	op, ok = Lookup("<(")
	require.True(t, ok)
	assert.Equal(t, ShapePattern, op.Shape)

	_, ok = Lookup("Z")
	assert.False(t, ok)
}
