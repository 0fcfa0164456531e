package pattern

import (
	"strings"
	"unicode/utf8"
)

// TokenKind is the type of a lexical unit.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokLParen
	TokRParen
	TokOr
	TokNot
	TokAllAddr
	TokAlias
	TokOperator
	TokOperand
	TokInvalid
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokOr:
		return "Or"
	case TokNot:
		return "Not"
	case TokAllAddr:
		return "AllAddr"
	case TokAlias:
		return "Alias"
	case TokOperator:
		return "Operator"
	case TokOperand:
		return "Operand"
	case TokInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Token is a lexical unit. Text is the exact source text and Offset its
// byte offset in the input.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
	Prefix byte   // operator prefix: '~', '=' or '%'
	Tag    string // operator tag, e.g. "s" or "<("
}

// operandStop lists the characters that end an unquoted operand.
const operandStop = "~=%!|"

// cursor is a forward-only reader over a pattern string.
//
// Structural tokens are produced by Peek and Next. Operands are read with
// Operand, which applies the quoting rules and must be called right after
// the operator token was consumed. The cursor never moves backwards.
type cursor struct {
	src    string
	pos    int
	peeked *Token
}

func newCursor(src string) *cursor {
	return &cursor{src: src}
}

// Peek returns the next structural token without consuming it.
func (c *cursor) Peek() Token {
	if c.peeked == nil {
		tok := c.lex()
		c.peeked = &tok
	}
	return *c.peeked
}

// Next consumes and returns the next structural token.
func (c *cursor) Next() Token {
	tok := c.Peek()
	c.peeked = nil
	c.pos = tok.Offset + len(tok.Text)
	return tok
}

// Offset returns the current read position.
func (c *cursor) Offset() int {
	return c.pos
}

func (c *cursor) lex() Token {
	i := skipSpace(c.src, c.pos)
	if i >= len(c.src) {
		return Token{Kind: TokEOF, Offset: len(c.src)}
	}

	ch := c.src[i]
	switch ch {
	case '(':
		return Token{Kind: TokLParen, Text: "(", Offset: i}
	case ')':
		return Token{Kind: TokRParen, Text: ")", Offset: i}
	case '|':
		return Token{Kind: TokOr, Text: "|", Offset: i}
	case '!':
		return Token{Kind: TokNot, Text: "!", Offset: i}
	case '^':
		return Token{Kind: TokAllAddr, Text: "^", Offset: i}
	case '@':
		return Token{Kind: TokAlias, Text: "@", Offset: i}
	case '~', '=', '%':
		j := i + 1
		if j >= len(c.src) || isSpace(c.src[j]) {
			return Token{Kind: TokInvalid, Text: c.src[i:j], Offset: i}
		}
		_, size := utf8.DecodeRuneInString(c.src[j:])
		tag := c.src[j : j+size]
		if (tag == "<" || tag == ">") && j+1 < len(c.src) && c.src[j+1] == '(' {
			tag = c.src[j : j+2]
		}
		return Token{
			Kind:   TokOperator,
			Text:   c.src[i : j+len(tag)],
			Offset: i,
			Prefix: ch,
			Tag:    tag,
		}
	}

	j := i
	for j < len(c.src) && !isSpace(c.src[j]) {
		j++
	}
	return Token{Kind: TokInvalid, Text: c.src[i:j], Offset: i}
}

// Operand reads the operand that follows an operator.
//
// Single quotes protect their content verbatim. Inside double quotes and
// outside quotes a backslash protects the next character; the backslash is
// kept (so regex escapes survive) except before whitespace. Unquoted
// operands end at whitespace, at one of ~ = % ! |, or at a ")" that closes
// a parenthesis opened outside the operand. Characters in lead are accepted
// as the first character of the operand.
//
// The returned token holds the raw source text; value is the operand with
// quotes removed. An empty value means there was no operand.
func (c *cursor) Operand(lead string) (tok Token, value string, err error) {
	c.peeked = nil
	start := skipSpace(c.src, c.pos)
	i := start

	var sb strings.Builder
	var quote byte
	depth := 0

scan:
	for i < len(c.src) {
		ch := c.src[i]

		if quote == '\'' {
			if ch == '\'' {
				quote = 0
			} else {
				sb.WriteByte(ch)
			}
			i++
			continue
		}

		if ch == '\\' && i+1 < len(c.src) {
			next := c.src[i+1]
			if !isSpace(next) {
				sb.WriteByte(ch)
			}
			sb.WriteByte(next)
			i += 2
			continue
		}

		if quote == '"' {
			if ch == '"' {
				quote = 0
			} else {
				sb.WriteByte(ch)
			}
			i++
			continue
		}

		switch {
		case ch == '\'' || ch == '"':
			quote = ch
			i++
			continue
		case isSpace(ch):
			break scan
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				break scan
			}
			depth--
		case strings.IndexByte(operandStop, ch) >= 0:
			if i != start || strings.IndexByte(lead, ch) < 0 {
				break scan
			}
		}
		sb.WriteByte(ch)
		i++
	}

	tok = Token{Kind: TokOperand, Text: c.src[start:i], Offset: start}
	if quote != 0 {
		return tok, "", newError(ErrUnterminatedQuote, tok, "missing closing %c", quote)
	}
	c.pos = i
	return tok, sb.String(), nil
}

// closes reports whether the text after the current position contains a
// ")" that balances one already-consumed "(". Quoted text and escaped
// characters are skipped. This is a look-ahead only; the position does not
// change.
func (c *cursor) closes() bool {
	depth := 1
	var quote byte
	for i := c.pos; i < len(c.src); i++ {
		ch := c.src[i]
		switch {
		case quote == '\'':
			if ch == '\'' {
				quote = 0
			}
		case ch == '\\':
			i++
		case quote == '"':
			if ch == '"' {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

// unescape removes the backslash from every backslash pair.
func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
