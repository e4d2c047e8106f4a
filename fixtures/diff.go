package fixtures

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// TreeMismatch reports a parse tree that differs from the expected one.
type TreeMismatch struct {
	Want string
	Got  string
}

func (m *TreeMismatch) Error() string {
	return "tree mismatch (-want +got):\n" + LineDiff(m.Want, m.Got)
}

// LineDiff returns a line-oriented diff of two texts. Removed lines are
// prefixed with "- ", added lines with "+ " and common lines with two spaces.
func LineDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
