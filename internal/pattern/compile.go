package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Group is an address group owned by a GroupRegistry.
type Group interface {
	// Match reports whether s, usually an addr-spec, belongs to the group.
	Match(s string) bool
}

// GroupRegistry resolves "%" operands at compile time.
type GroupRegistry interface {
	Group(name string) (Group, bool)
}

// ExternalQuery runs the query of a "~I" operand and returns the matching
// Message-IDs. It is called once per compile.
type ExternalQuery interface {
	MessageIDs(query string) ([]string, error)
}

// CaseMode selects how text operands treat letter case.
type CaseMode int

const (
	// CaseSmart ignores case unless the operand contains an upper-case letter.
	CaseSmart CaseMode = iota
	// CaseMatch always matches case.
	CaseMatch
	// CaseIgnore always ignores case.
	CaseIgnore
)

// ParseCaseMode parses "smart", "sensitive" or "insensitive".
func ParseCaseMode(s string) (CaseMode, error) {
	switch strings.ToLower(s) {
	case "", "smart":
		return CaseSmart, nil
	case "sensitive":
		return CaseMatch, nil
	case "insensitive":
		return CaseIgnore, nil
	}
	return CaseSmart, fmt.Errorf("invalid case mode %q: must be smart, sensitive or insensitive", s)
}

func (m CaseMode) String() string {
	switch m {
	case CaseMatch:
		return "sensitive"
	case CaseIgnore:
		return "insensitive"
	default:
		return "smart"
	}
}

// Options control compilation.
type Options struct {
	// FullMessage enables operators that need message content
	// (~b ~B ~h ~M ~X).
	FullMessage bool

	// ServerSearch turns =b, =B and =h into server-side searches.
	ServerSearch bool

	// Case selects case handling for text operands.
	Case CaseMode

	// Groups resolves "%" operands. Nil means no groups are defined.
	Groups GroupRegistry

	// External runs "~I" queries. Nil rejects "~I".
	External ExternalQuery

	// Clock fills in missing parts of absolute dates. Defaults to the
	// system clock.
	Clock Clock
}

// compiler holds the state of one Compile call.
type compiler struct {
	cur   *cursor
	opts  Options
	now   time.Time
	depth int // open parentheses
}

// Compile parses input into an expression tree.
//
// On failure no tree is returned and the error is a *Error naming the
// offending token and its byte offset; nothing allocated during the call
// stays reachable. Identical input and registry state always yield trees
// of identical shape.
func Compile(input string, opts Options) (*Tree, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if strings.TrimSpace(input) == "" {
		return nil, &Error{Kind: ErrEmptyExpression, Message: "empty pattern"}
	}

	c := &compiler{
		cur:  newCursor(input),
		opts: opts,
		now:  opts.Clock.Now(),
	}

	root, err := c.disjunction()
	if err != nil {
		return nil, err
	}

	// A top-level disjunction only stops early at a ")" nobody opened.
	if tok := c.cur.Next(); tok.Kind != TokEOF {
		return nil, newError(ErrUnbalancedParens, tok, "unmatched closing parenthesis")
	}

	return &Tree{source: input, root: root}, nil
}

// MustCompile is like Compile but panics on error. It simplifies
// initialisation of patterns known to be valid.
func MustCompile(input string, opts Options) *Tree {
	t, err := Compile(input, opts)
	if err != nil {
		panic(`pattern: Compile(` + input + `): ` + err.Error())
	}
	return t
}

// disjunction := conjunction { "|" conjunction }
func (c *compiler) disjunction() (*Node, error) {
	first, err := c.conjunction()
	if err != nil {
		return nil, err
	}
	if c.cur.Peek().Kind != TokOr {
		return first, nil
	}

	or := &Node{Kind: KindOr, Offset: first.Offset, Children: []*Node{first}}
	for c.cur.Peek().Kind == TokOr {
		c.cur.Next()
		next, err := c.conjunction()
		if err != nil {
			return nil, err
		}
		or.Children = append(or.Children, next)
	}
	return or, nil
}

// conjunction := atom { atom }
func (c *compiler) conjunction() (*Node, error) {
	var atoms []*Node
	for {
		switch c.cur.Peek().Kind {
		case TokEOF, TokOr, TokRParen:
			switch len(atoms) {
			case 0:
				tok := c.cur.Peek()
				if tok.Kind == TokRParen && c.depth == 0 {
					return nil, newError(ErrUnbalancedParens, tok, "unmatched closing parenthesis")
				}
				return nil, newError(ErrEmptyExpression, tok, "missing pattern")
			case 1:
				return atoms[0], nil
			}
			return &Node{Kind: KindAnd, Offset: atoms[0].Offset, Children: atoms}, nil
		}

		atom, err := c.atom()
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
}

// atom := { "!" | "^" | "@" } ( "(" disjunction ")" | clause )
func (c *compiler) atom() (*Node, error) {
	var mods Flags
	first := c.cur.Peek()

modifiers:
	for {
		switch c.cur.Peek().Kind {
		case TokNot:
			mods.Not = !mods.Not
		case TokAllAddr:
			mods.AllAddr = true
		case TokAlias:
			mods.Alias = true
		default:
			break modifiers
		}
		c.cur.Next()
	}

	tok := c.cur.Next()
	switch tok.Kind {
	case TokLParen:
		if mods.AllAddr || mods.Alias {
			return nil, newError(ErrBadModifier, first, "modifier applies to a single clause, not a group")
		}
		inner, err := c.group(tok)
		if err != nil {
			return nil, err
		}
		inner.Flags.Not = inner.Flags.Not != mods.Not
		return inner, nil

	case TokOperator:
		return c.clause(tok, mods)

	case TokEOF, TokOr, TokRParen:
		return nil, newError(ErrEmptyExpression, first, "missing pattern after modifier")

	default:
		return nil, newError(ErrUnknownOperator, tok, "expected an operator")
	}
}

// group parses a disjunction up to the ")" matching the consumed open token.
func (c *compiler) group(open Token) (*Node, error) {
	if !c.cur.closes() {
		return nil, newError(ErrUnbalancedParens, open, "missing closing parenthesis")
	}
	c.depth++
	inner, err := c.disjunction()
	c.depth--
	if err != nil {
		return nil, err
	}
	if tok := c.cur.Next(); tok.Kind != TokRParen {
		return nil, newError(ErrUnbalancedParens, open, "missing closing parenthesis")
	}
	return inner, nil
}

// clause resolves an operator token and parses its operand.
func (c *compiler) clause(tok Token, mods Flags) (*Node, error) {
	op, ok := Lookup(tok.Tag)
	if !ok {
		return nil, newError(ErrUnknownOperator, tok, "unknown operator")
	}
	if mods.AllAddr && !op.AllAddr {
		return nil, newError(ErrBadModifier, tok, "^ is not supported by %s", tok.Text)
	}
	if mods.Alias && !op.Address {
		return nil, newError(ErrBadModifier, tok, "@ is not supported by %s", tok.Text)
	}
	if tok.Prefix != '~' && op.Shape != ShapeText {
		return nil, newError(ErrBadModifier, tok, "%c prefix is only supported by text operators", tok.Prefix)
	}

	server := tok.Prefix == '=' && c.opts.ServerSearch &&
		(op.Kind == KindBody || op.Kind == KindWholeMessage || op.Kind == KindHeader)
	if op.FullMessage && !c.opts.FullMessage && !server {
		return nil, newError(ErrNotSupported, tok, "not supported in this mode")
	}

	node := &Node{Kind: op.Kind, Flags: mods, Offset: tok.Offset}

	var err error
	switch op.Shape {
	case ShapeText:
		err = c.textOperand(node, tok, server)
	case ShapeRange:
		err = c.rangeOperand(node, tok)
	case ShapeDate:
		err = c.dateOperand(node, tok)
	case ShapeQuery:
		err = c.queryOperand(node, tok)
	case ShapePattern:
		var inner *Node
		inner, err = c.group(tok)
		if err == nil {
			node.Children = []*Node{inner}
		}
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

// operand reads a non-empty operand for the operator token op.
func (c *compiler) operand(op Token, lead string) (Token, string, error) {
	tok, value, err := c.cur.Operand(lead)
	if err != nil {
		return tok, "", err
	}
	if value == "" {
		return tok, "", newError(ErrMissingOperand, op, "missing operand")
	}
	return tok, value, nil
}

func (c *compiler) textOperand(node *Node, op Token, server bool) error {
	tok, value, err := c.operand(op, "")
	if err != nil {
		return err
	}

	switch op.Prefix {
	case '%':
		name := unescape(value)
		var group Group
		ok := false
		if c.opts.Groups != nil {
			group, ok = c.opts.Groups.Group(name)
		}
		if !ok {
			return newError(ErrUndefinedGroup, tok, "no such group %q", name)
		}
		node.Operand = GroupRef{Name: name, Group: group}

	case '=':
		text := unescape(value)
		node.Flags.IgnoreCase = c.ignoreCase(text)
		if server {
			node.Operand = Search{Field: node.Kind, Text: text}
			node.Kind = KindServerSearch
			return nil
		}
		node.Operand = newLiteral(text)

	default:
		ignore := c.ignoreCase(value)
		expr := value
		if ignore {
			expr = "(?i)" + value
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return &Error{
				Kind:    ErrBadRegex,
				Token:   tok.Text,
				Offset:  tok.Offset,
				Message: fmt.Sprintf("invalid regular expression %q", value),
				Err:     err,
			}
		}
		node.Flags.IgnoreCase = ignore
		node.Operand = Regex{Source: value, Re: re}
	}
	return nil
}

func (c *compiler) rangeOperand(node *Node, op Token) error {
	tok, value, err := c.operand(op, "=")
	if err != nil {
		return err
	}
	r, err := parseRange(unescape(value))
	if err != nil {
		return &Error{Kind: ErrBadRange, Token: tok.Text, Offset: tok.Offset, Message: "invalid range", Err: err}
	}
	node.Operand = r
	return nil
}

func (c *compiler) dateOperand(node *Node, op Token) error {
	tok, value, err := c.operand(op, "=")
	if err != nil {
		return err
	}
	d, err := parseDateRange(unescape(value), c.now)
	if err != nil {
		return &Error{Kind: ErrBadDate, Token: tok.Text, Offset: tok.Offset, Message: "invalid date", Err: err}
	}
	node.Flags.Dynamic = d.Relative != nil
	node.Operand = d
	return nil
}

func (c *compiler) queryOperand(node *Node, op Token) error {
	tok, value, err := c.operand(op, "")
	if err != nil {
		return err
	}
	if c.opts.External == nil {
		return newError(ErrExternalQuery, tok, "no external search is configured")
	}
	ids, err := c.opts.External.MessageIDs(unescape(value))
	if err != nil {
		return &Error{Kind: ErrExternalQuery, Token: tok.Text, Offset: tok.Offset, Message: "external search failed", Err: err}
	}
	node.Operand = newAlternatives(ids)
	return nil
}

func (c *compiler) ignoreCase(operand string) bool {
	switch c.opts.Case {
	case CaseMatch:
		return false
	case CaseIgnore:
		return true
	default:
		return !CaseSensitive(operand)
	}
}
