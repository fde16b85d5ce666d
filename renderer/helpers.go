package renderer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/irpf"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// table writes a markdown table header. The first column is left aligned,
// the others are numbers.
func table(w io.Writer, columns ...string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(columns, " | "))
	align := make([]string, len(columns))
	for i := range align {
		align[i] = "---:"
	}
	align[0] = ":---"
	fmt.Fprintf(w, "|%s|\n", strings.Join(align, "|"))
}

// row writes a markdown table row.
func row(w io.Writer, cells ...string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
}

// amount prints zero amounts as a dash.
func amount(m irpf.Money) string {
	if m.Round(2).IsZero() {
		return "-"
	}
	return m.String()
}
