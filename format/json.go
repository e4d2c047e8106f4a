package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/bnf/ebnf/parse"
)

type JSONEncoder struct {
	w     io.Writer
	input string
}

func NewJSONEncoder(w io.Writer, input string) *JSONEncoder {
	return &JSONEncoder{w: w, input: input}
}

func (e *JSONEncoder) Encode(tok *parse.Token) error {
	text, err := e.MarshalText(tok)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(text); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

func (e *JSONEncoder) MarshalText(tok *parse.Token) ([]byte, error) {
	return json.MarshalIndent(TokenToNode(tok, e.input), "", "  ")
}

// Node is the serialized form of a token shared by the JSON and YAML
// encoders and the HTTP API.
type Node struct {
	Type     string  `json:"type" yaml:"type"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Span     *Span   `json:"span,omitempty" yaml:"span,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func toPosition(p parse.Position) Position {
	return Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

// TokenToNode converts a token tree. Spans are computed against input.
func TokenToNode(tok *parse.Token, input string) *Node {
	if tok == nil {
		return nil
	}
	n := &Node{
		Type: tok.Type,
		Span: &Span{
			Start: toPosition(parse.PositionOf(input, tok.Start)),
			End:   toPosition(parse.PositionOf(input, tok.End)),
		},
	}
	if tok.IsLeaf() {
		n.Text = tok.Text
	}
	for _, c := range tok.Children {
		n.Children = append(n.Children, TokenToNode(c, input))
	}
	return n
}
