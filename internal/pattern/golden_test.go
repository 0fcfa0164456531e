package pattern

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Regenerate with: go test ./internal/pattern -run Golden -update
func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGolden_OperatorTable(t *testing.T) {
	var buf bytes.Buffer
	for _, op := range Operators() {
		var traits []string
		if op.Address {
			traits = append(traits, "addr")
		}
		if op.AllAddr {
			traits = append(traits, "all")
		}
		if op.FullMessage {
			traits = append(traits, "full")
		}
		if len(traits) == 0 {
			traits = []string{"-"}
		}
		fmt.Fprintf(&buf, "%-3s %-18s %-7s %s\n", op.Tag, op.Kind, op.Shape, strings.Join(traits, ","))
	}

	newGoldie(t).Assert(t, "operators", buf.Bytes())
}

func TestGolden_Trees(t *testing.T) {
	inputs := []string{
		`~f alice ~s report`,
		`~A | ~D ~F`,
		`!(~N | ~O) ~p`,
		`^~C list@example.com | @~f boss`,
		`~( ~s "release notes" ) ~d <2w`,
		`~<(~F) | ~>(!~R)`,
		`=s Invoice %f friends ~z 10K-1M`,
		`~d 01/03/2024-15/03/2024 ~m <100`,
	}

	var buf bytes.Buffer
	for _, input := range inputs {
		tree, err := Compile(input, testOptions())
		if err != nil {
			t.Fatalf("Compile(%q): %v", input, err)
		}
		fmt.Fprintf(&buf, "%s\n\t%s\n", input, tree)
	}

	newGoldie(t).Assert(t, "trees", buf.Bytes())
}
