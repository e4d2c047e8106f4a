package format

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/dhamidi/bnf/ebnf/grammar"
)

// WriteRuleTable writes a summary of every rule in table, builtins included,
// in declaration order.
func WriteRuleTable(w io.Writer, table *grammar.RuleTable) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Rule", "Alternatives", "Elidable", "Builtin", "Declared"})
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range table.Rules() {
		declared := ""
		if r.Pos().IsValid() {
			declared = r.Pos().String()
		}
		tw.Append([]string{
			"<" + r.Name() + ">",
			strconv.Itoa(r.Len()),
			yesNo(r.Elidable()),
			yesNo(r.Builtin()),
			declared,
		})
	}
	tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
