package pattern

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Flags are the per-node modifiers.
type Flags struct {
	Not        bool // invert the result
	AllAddr    bool // every address must match instead of any
	IgnoreCase bool // text operand matches case-insensitively
	Dynamic    bool // date bounds are resolved at evaluation time
	Alias      bool // only addresses that are known aliases are considered
}

// Node is one node of an expression tree.
//
// Logical and thread nodes use Children; every other node carries exactly
// one Operand whose variant is chosen by the operator's Shape (nil for
// ShapeNone).
type Node struct {
	Kind     Kind
	Flags    Flags
	Operand  Operand
	Children []*Node
	Offset   int // byte offset of the clause in the source
}

// Operand is the payload of a leaf node.
//
// This is a sealed interface - only types in this package implement it,
// and only the compiler constructs them.
type Operand interface {
	operand() // Marker method - seals interface to this package
}

// Regex is a compiled regular expression operand ("~" prefix).
type Regex struct {
	Source string
	Re     *regexp.Regexp
}

func (Regex) operand() {}

// Literal is a substring operand ("=" prefix). Folded holds Text after
// Unicode case folding and is used when the node ignores case.
type Literal struct {
	Text   string
	Folded string
}

func (Literal) operand() {}

func newLiteral(text string) Literal {
	return Literal{Text: text, Folded: cases.Fold().String(text)}
}

// In reports whether the literal occurs in s.
func (l Literal) In(s string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.Contains(cases.Fold().String(s), l.Folded)
	}
	return strings.Contains(s, l.Text)
}

// GroupRef names an address group ("%" prefix). Group is owned by the
// registry the pattern was compiled against.
type GroupRef struct {
	Name  string
	Group Group
}

func (GroupRef) operand() {}

// Alternatives is an ordered list of exact values, e.g. the Message-IDs
// returned by an external query.
type Alternatives struct {
	Values []string
	set    map[string]struct{}
}

func (Alternatives) operand() {}

func newAlternatives(values []string) Alternatives {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Alternatives{Values: values, set: set}
}

// Contains reports whether v is one of the alternatives.
func (a Alternatives) Contains(v string) bool {
	if a.set != nil {
		_, ok := a.set[v]
		return ok
	}
	for _, x := range a.Values {
		if x == v {
			return true
		}
	}
	return false
}

// Open ends of a NumberRange.
const (
	RangeMin int64 = math.MinInt64
	RangeMax int64 = math.MaxInt64
)

// NumberRange is an inclusive numeric range.
type NumberRange struct {
	Min int64
	Max int64
}

func (NumberRange) operand() {}

// Contains reports whether n lies within the range.
func (r NumberRange) Contains(n int64) bool {
	return n >= r.Min && n <= r.Max
}

// DateRange is an inclusive date range. A zero Min or Max is open.
// Relative is set for dynamic ranges; their Min and Max are zero and the
// bounds come from Bounds.
type DateRange struct {
	Min      time.Time
	Max      time.Time
	Relative *RelativeDate
}

func (DateRange) operand() {}

// Bounds returns the effective range at time now.
func (d DateRange) Bounds(now time.Time) (min, max time.Time) {
	if d.Relative != nil {
		return d.Relative.Bounds(now)
	}
	return d.Min, d.Max
}

// Search is a delegated server-side search of Field for Text.
type Search struct {
	Field Kind
	Text  string
}

func (Search) operand() {}

// Tree is a compiled pattern.
type Tree struct {
	source string
	root   *Node
}

// Root returns the root node, or nil once the tree has been released.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Source returns the string the tree was compiled from.
func (t *Tree) Source() string {
	return t.source
}

// Released reports whether Release has been called.
func (t *Tree) Released() bool {
	return t == nil || t.root == nil
}

// Release drops every node and operand of the tree. The tree must not be
// evaluated afterwards. Releasing twice is a no-op.
func (t *Tree) Release() {
	if t == nil || t.root == nil {
		return
	}
	release(t.root)
	t.root = nil
}

func release(n *Node) {
	for _, child := range n.Children {
		release(child)
	}
	n.Children = nil
	n.Operand = nil
}

// Walk visits every node depth-first in evaluation order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t.Root() == nil {
		return
	}
	walk(t.root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// Dynamic reports whether any node is resolved against the clock at
// evaluation time.
func (t *Tree) Dynamic() bool {
	dynamic := false
	t.Walk(func(n *Node) bool {
		if n.Flags.Dynamic {
			dynamic = true
		}
		return !dynamic
	})
	return dynamic
}

// String renders the tree in a canonical parenthesised form. Two trees
// with the same shape render identically.
func (t *Tree) String() string {
	if t.Root() == nil {
		return "(released)"
	}
	return t.root.String()
}

// String renders the node and its descendants, e.g.
//
//	(or (subject /foo/i) !^(list))
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	if n.Flags.Not {
		sb.WriteByte('!')
	}
	if n.Flags.AllAddr {
		sb.WriteByte('^')
	}
	if n.Flags.Alias {
		sb.WriteByte('@')
	}
	sb.WriteByte('(')
	sb.WriteString(n.Kind.String())
	if n.Operand != nil {
		sb.WriteByte(' ')
		n.formatOperand(sb)
	}
	for _, child := range n.Children {
		sb.WriteByte(' ')
		child.format(sb)
	}
	sb.WriteByte(')')
}

func (n *Node) formatOperand(sb *strings.Builder) {
	switch op := n.Operand.(type) {
	case Regex:
		sb.WriteByte('/')
		sb.WriteString(op.Source)
		sb.WriteByte('/')
		if n.Flags.IgnoreCase {
			sb.WriteByte('i')
		}
	case Literal:
		sb.WriteString(strconv.Quote(op.Text))
		if n.Flags.IgnoreCase {
			sb.WriteByte('i')
		}
	case GroupRef:
		sb.WriteByte('%')
		sb.WriteString(op.Name)
	case Alternatives:
		sb.WriteByte('[')
		for i, v := range op.Values {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Quote(v))
		}
		sb.WriteByte(']')
	case NumberRange:
		sb.WriteString(formatBound(op.Min, RangeMin))
		sb.WriteString("..")
		sb.WriteString(formatBound(op.Max, RangeMax))
	case DateRange:
		if op.Relative != nil {
			sb.WriteString(op.Relative.String())
			return
		}
		sb.WriteString(formatDate(op.Min))
		sb.WriteString("..")
		sb.WriteString(formatDate(op.Max))
	case Search:
		sb.WriteString(op.Field.String())
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(op.Text))
	}
}

func formatBound(v, open int64) string {
	if v == open {
		return "*"
	}
	return strconv.FormatInt(v, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.Format(time.RFC3339)
}
