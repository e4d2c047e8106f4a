// Package format renders syntax trees and rule tables for people and tools.
package format

import (
	"fmt"
	"io"
	"sort"

	"github.com/dhamidi/bnf/ebnf/parse"
)

// Encoder writes token trees in one output format. MarshalText returns the
// encoding of tok without writing it.
type Encoder interface {
	Encode(tok *parse.Token) error
	MarshalText(tok *parse.Token) ([]byte, error)
}

var encoders = map[string]func(w io.Writer, input string) Encoder{
	"tree": func(w io.Writer, input string) Encoder { return NewTreeEncoder(w) },
	"json": func(w io.Writer, input string) Encoder { return NewJSONEncoder(w, input) },
	"yaml": func(w io.Writer, input string) Encoder { return NewYAMLEncoder(w, input) },
}

// Names lists the formats accepted by NewEncoder.
func Names() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEncoder returns the encoder registered under name. input is the text the
// encoded trees were parsed from; encoders that report line and column
// positions derive them from it.
func NewEncoder(name string, w io.Writer, input string) (Encoder, error) {
	newEncoder, ok := encoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, Names())
	}
	return newEncoder(w, input), nil
}
