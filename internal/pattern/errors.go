package pattern

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes compile errors.
type ErrorKind string

const (
	// ErrUnknownOperator indicates an operator letter that is not in the table,
	// or text where an operator was expected.
	ErrUnknownOperator ErrorKind = "UNKNOWN_OPERATOR"

	// ErrUnbalancedParens indicates a "(" without its ")" or a stray ")".
	ErrUnbalancedParens ErrorKind = "UNBALANCED_PARENS"

	// ErrBadRegex indicates an operand that is not a valid regular expression.
	ErrBadRegex ErrorKind = "BAD_REGEX"

	// ErrBadRange indicates a malformed numeric range.
	ErrBadRange ErrorKind = "BAD_RANGE"

	// ErrBadDate indicates a malformed date or date range.
	ErrBadDate ErrorKind = "BAD_DATE"

	// ErrUndefinedGroup indicates a "%" operand naming an unknown group.
	ErrUndefinedGroup ErrorKind = "UNDEFINED_GROUP"

	// ErrEmptyExpression indicates there is nothing to compile where a
	// clause was required.
	ErrEmptyExpression ErrorKind = "EMPTY_EXPRESSION"

	// ErrMissingOperand indicates an operator without its operand.
	ErrMissingOperand ErrorKind = "MISSING_OPERAND"

	// ErrBadModifier indicates a prefix or modifier the operator does not accept.
	ErrBadModifier ErrorKind = "BAD_MODIFIER"

	// ErrNotSupported indicates a full-message operator compiled without
	// Options.FullMessage.
	ErrNotSupported ErrorKind = "NOT_SUPPORTED"

	// ErrUnterminatedQuote indicates an operand with an unclosed quote.
	ErrUnterminatedQuote ErrorKind = "UNTERMINATED_QUOTE"

	// ErrExternalQuery indicates that an external query could not be run.
	ErrExternalQuery ErrorKind = "EXTERNAL_QUERY"
)

// Error is a compile error. Offset is the byte offset of Token in the
// compiled string.
type Error struct {
	Kind    ErrorKind
	Token   string
	Offset  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Token == "" {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, msg)
	}
	return fmt.Sprintf("%s at offset %d (%q): %s", e.Kind, e.Offset, e.Token, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a compile error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, tok Token, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Token:   tok.Text,
		Offset:  tok.Offset,
		Message: fmt.Sprintf(format, args...),
	}
}
