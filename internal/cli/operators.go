package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mailpat/internal/pattern"
)

// OperatorInfo describes one operator for output.
type OperatorInfo struct {
	Operator    string `json:"operator"`
	Kind        string `json:"kind"`
	Operand     string `json:"operand"`
	FullMessage bool   `json:"full_message,omitempty"`
	Address     bool   `json:"address,omitempty"`
	Help        string `json:"help"`
}

// NewOperatorsCommand creates the operators command.
func NewOperatorsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "operators",
		Short:         "List the pattern operators",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperators(rootOpts, cmd)
		},
	}
}

func runOperators(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ops := pattern.Operators()
	infos := make([]OperatorInfo, len(ops))
	for i, op := range ops {
		infos[i] = OperatorInfo{
			Operator:    "~" + op.Tag,
			Kind:        op.Kind.String(),
			Operand:     op.Shape.String(),
			FullMessage: op.FullMessage,
			Address:     op.Address,
			Help:        op.Help,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		operand := info.Operand
		if operand == "none" {
			operand = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Operator, operand, info.Help)
	}
	return tw.Flush()
}
