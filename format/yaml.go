package format

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dhamidi/bnf/ebnf/parse"
)

type YAMLEncoder struct {
	w     io.Writer
	input string
}

func NewYAMLEncoder(w io.Writer, input string) *YAMLEncoder {
	return &YAMLEncoder{w: w, input: input}
}

func (e *YAMLEncoder) Encode(tok *parse.Token) error {
	text, err := e.MarshalText(tok)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *YAMLEncoder) MarshalText(tok *parse.Token) ([]byte, error) {
	return yaml.Marshal(TokenToNode(tok, e.input))
}
