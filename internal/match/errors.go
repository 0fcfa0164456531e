package match

import (
	"errors"
	"fmt"

	"github.com/roach88/mailpat/internal/pattern"
)

var (
	// ErrNoThreadContext is returned when a thread operator is evaluated
	// without a mailbox.
	ErrNoThreadContext = errors.New("match: thread operator needs a mailbox")

	// ErrReleasedTree is returned when a released tree is evaluated.
	ErrReleasedTree = errors.New("match: pattern tree has been released")

	// ErrMalformedNode is returned for a node whose operand does not fit
	// its kind. Trees built by pattern.Compile never contain one.
	ErrMalformedNode = errors.New("match: malformed node")
)

func malformed(n *pattern.Node) error {
	return fmt.Errorf("%w: %s node with operand %T", ErrMalformedNode, n.Kind, n.Operand)
}
