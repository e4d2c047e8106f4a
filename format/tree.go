package format

import (
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/bnf/ebnf/parse"
)

// TreeEncoder writes a token tree one token per line, indented two spaces per
// level. Literal tokens are printed quoted; rule leaves as Type="text".
type TreeEncoder struct {
	w io.Writer
}

func NewTreeEncoder(w io.Writer) *TreeEncoder {
	return &TreeEncoder{w: w}
}

func (e *TreeEncoder) Encode(tok *parse.Token) error {
	text, err := e.MarshalText(tok)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *TreeEncoder) MarshalText(tok *parse.Token) ([]byte, error) {
	return []byte(Tree(tok)), nil
}

// Tree returns the indented rendering of tok used by TreeEncoder.
func Tree(tok *parse.Token) string {
	if tok == nil {
		return ""
	}
	var sb strings.Builder
	writeTree(&sb, tok, 0)
	return sb.String()
}

func writeTree(sb *strings.Builder, tok *parse.Token, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("|-")
	switch {
	case tok.IsLiteral():
		sb.WriteString(strconv.Quote(tok.Text))
	case tok.IsLeaf():
		sb.WriteString(tok.Type)
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(tok.Text))
	default:
		sb.WriteString(tok.Type)
	}
	sb.WriteByte('\n')
	for _, c := range tok.Children {
		writeTree(sb, c, depth+1)
	}
}
