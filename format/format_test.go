package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
)

const assignGrammar = `
<assign> ::= <name> <WS> "=" <WS> <digit>
<name>   ::= "x" | "y"
<digit>  ::= "1" | "2"
<WS>     ::= " " | ""
<empty>  ::= ""
`

func parseAssign(t *testing.T, start, input string) *parse.Token {
	t.Helper()
	tok, err := parse.Parse(grammar.MustCompile(assignGrammar), start, input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return tok
}

func TestTreeEncoder(t *testing.T) {
	tests := []struct {
		name  string
		start string
		input string
		want  string
	}{
		{
			name:  "elided whitespace",
			start: "assign",
			input: "x = 1",
			want: `|-assign
  |-name
    |-"x"
  |-" "
  |-"="
  |-" "
  |-digit
    |-"1"
`,
		},
		{
			name:  "rule leaf",
			start: "empty",
			input: "",
			want:  "|-empty=\"\"\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewTreeEncoder(&buf).Encode(parseAssign(t, tt.start, tt.input)); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONEncoder(t *testing.T) {
	input := "y=2"
	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf, input).Encode(parseAssign(t, "assign", input)); err != nil {
		t.Fatal(err)
	}

	var root Node
	if err := json.Unmarshal(buf.Bytes(), &root); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if root.Type != "assign" || len(root.Children) != 3 {
		t.Fatalf("unexpected root: %s", buf.String())
	}
	if want := (Position{Offset: 3, Line: 1, Column: 4}); root.Span.End != want {
		t.Errorf("root ends at %+v, want %+v", root.Span.End, want)
	}
	name := root.Children[0]
	if name.Type != "name" || name.Text != "" || name.Children[0].Text != "y" {
		t.Errorf("unexpected name node: %+v", name)
	}
	if eq := root.Children[1]; eq.Type != parse.LiteralType || eq.Text != "=" {
		t.Errorf("unexpected literal node: %+v", eq)
	}
}

func TestYAMLEncoder(t *testing.T) {
	input := "x =2"
	tok := parseAssign(t, "assign", input)
	var buf bytes.Buffer
	if err := NewYAMLEncoder(&buf, input).Encode(tok); err != nil {
		t.Fatal(err)
	}
	var got Node
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(TokenToNode(tok, input), &got); diff != "" {
		t.Errorf("yaml tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEncoder(t *testing.T) {
	for _, name := range Names() {
		if _, err := NewEncoder(name, &bytes.Buffer{}, ""); err != nil {
			t.Errorf("NewEncoder(%q): %v", name, err)
		}
	}
	if _, err := NewEncoder("xml", &bytes.Buffer{}, ""); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestMarshalText(t *testing.T) {
	input := "y=2"
	tok := parseAssign(t, "assign", input)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewEncoder(name, &buf, input)
			if err != nil {
				t.Fatal(err)
			}
			text, err := enc.MarshalText(tok)
			if err != nil {
				t.Fatal(err)
			}
			if buf.Len() != 0 {
				t.Errorf("MarshalText wrote %q", buf.String())
			}
			if err := enc.Encode(tok); err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(buf.String(), string(text)) || len(text) == 0 {
				t.Errorf("MarshalText %q is not what Encode wrote %q", text, buf.String())
			}
		})
	}
}

func TestWriteRuleTable(t *testing.T) {
	var buf bytes.Buffer
	WriteRuleTable(&buf, grammar.MustCompile(assignGrammar))
	out := buf.String()
	for _, want := range []string{"Rule", "<assign>", "<WS>", "<EOL>", "2:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("rule table does not contain %q:\n%s", want, out)
		}
	}
}
