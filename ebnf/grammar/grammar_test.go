package grammar

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompile_Rules(t *testing.T) {
	table, err := Compile(`
// optional whitespace
<greeting> ::= "hello" <WS> <name>
<name>     ::= 'world' | "there"
<WS>       ::= " " <WS> | ""
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := table.Start().Name(); got != "greeting" {
		t.Errorf("start rule %q, want greeting", got)
	}
	if diff := cmp.Diff([]string{"greeting", "name", "WS"}, table.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	ws, ok := table.Lookup("WS")
	if !ok {
		t.Fatal("WS not found")
	}
	if !ws.Elidable() {
		t.Error("WS should be elidable")
	}
	if ws.Len() != 2 || !ws.Alternative(1).IsEmpty() {
		t.Errorf("WS alternatives: %s", ws)
	}
	if ref := ws.Alternative(0).Element(1); ref.Kind() != Reference || ref.Ref() != ws.Index() {
		t.Errorf("WS self reference not resolved: %+v", ref)
	}

	greeting, _ := table.Lookup("greeting")
	if greeting.Elidable() {
		t.Error("greeting should not be elidable")
	}
	if pos := greeting.Pos(); pos.Line != 3 || pos.Column != 1 {
		t.Errorf("greeting declared at %s, want 3:1", pos)
	}
}

func TestIsElidableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"WS", true},
		{"RULE_WS", true},
		{"RULE_2", true},
		{"_REP_1", true},
		{"Term", false},
		{"var_decl", false},
		{"EOL-x", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsElidableName(tt.name); got != tt.want {
			t.Errorf("IsElidableName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCompile_ContinuationLines(t *testing.T) {
	table, err := Compile(`
<digit> ::= "0" | "1"
          | "2"
          // comments may appear between continuation lines
          | "3"
<other> ::= <digit>
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	digit, _ := table.Lookup("digit")
	if digit.Len() != 4 {
		t.Errorf("got %d alternatives, want 4: %s", digit.Len(), digit)
	}
}

func TestCompile_BuiltinEOL(t *testing.T) {
	table := MustCompile(`<line> ::= "x" <EOL>`)
	eol, ok := table.Lookup(EOL)
	if !ok {
		t.Fatal("EOL not available")
	}
	if !eol.Builtin() || !eol.Elidable() {
		t.Errorf("EOL builtin=%v elidable=%v", eol.Builtin(), eol.Elidable())
	}
	if got := eol.Alternative(0).Element(0).Text(); got != "\r\n" {
		t.Errorf("first EOL alternative %q, want CRLF", got)
	}
	if diff := cmp.Diff([]string{"line"}, table.Names()); diff != "" {
		t.Errorf("builtin rules should not be listed as declared (-want +got):\n%s", diff)
	}

	custom := MustCompile(`
<line> ::= "x" <EOL>
<EOL> ::= ";"
`)
	eol, _ = custom.Lookup(EOL)
	if eol.Builtin() || eol.Len() != 1 {
		t.Errorf("declared EOL should replace the builtin: %s", eol)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kinds  []IssueKind
	}{
		{
			name:   "missing name",
			source: `::= "a"`,
			kinds:  []IssueKind{MissingName},
		},
		{
			name:   "empty name",
			source: `<> ::= "a"`,
			kinds:  []IssueKind{MissingName},
		},
		{
			name:   "missing separator",
			source: `<a> "a"`,
			kinds:  []IssueKind{MissingSeparator},
		},
		{
			name:   "unterminated literal",
			source: `<a> ::= "a`,
			kinds:  []IssueKind{UnterminatedLiteral},
		},
		{
			name:   "unterminated name",
			source: `<a ::= "a"`,
			kinds:  []IssueKind{MalformedName},
		},
		{
			name:   "unexpected character",
			source: `<a> ::= "a" *`,
			kinds:  []IssueKind{UnexpectedInput},
		},
		{
			name:   "empty alternative",
			source: `<a> ::= "a" |`,
			kinds:  []IssueKind{EmptyAlternative},
		},
		{
			name: "duplicate rule",
			source: `<a> ::= "a"
<a> ::= "b"`,
			kinds: []IssueKind{DuplicateRule},
		},
		{
			name:   "reference before a lexical error",
			source: `<A> ::= <X> "unterminated`,
			kinds:  []IssueKind{UnterminatedLiteral, UndefinedRule},
		},
		{
			name: "reference on a broken continuation line",
			source: `<A> ::= "a"
    | <Y> *`,
			kinds: []IssueKind{UnexpectedInput, UndefinedRule},
		},
		{
			name:   "empty grammar",
			source: "\n// nothing here\n",
			kinds:  []IssueKind{EmptyGrammar},
		},
		{
			name: "every malformed line is reported",
			source: `<a> "a"
<b> ::= "b
<c> ::= <a> <b>`,
			kinds: []IssueKind{MissingSeparator, UnterminatedLiteral, UndefinedRule},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Compile(tt.source)
			if table != nil {
				t.Fatal("a failed compile must not return a table")
			}
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
			}
			var got []IssueKind
			for _, issue := range serr.Issues {
				got = append(got, issue.Kind)
			}
			if diff := cmp.Diff(tt.kinds, got); diff != "" {
				t.Errorf("issue kinds mismatch (-want +got):\n%s\nerror: %v", diff, err)
			}
		})
	}
}

func TestCompile_UndefinedNamesReportedTogether(t *testing.T) {
	_, err := Compile(`
<statement> ::= <Identifer> <WS> <EQUALS> <value>
<value>     ::= <Identifier> | <number>
<Identifier> ::= "x"
<WS> ::= " " | ""
`)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Identifer", "EQUALS", "number"}, serr.Undefined()); diff != "" {
		t.Errorf("undefined names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Identifier"}, serr.Issues[0].Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	msg := err.Error()
	if !strings.Contains(msg, "undefined rules: <Identifer>, <EQUALS>, <number>") {
		t.Errorf("error message %q does not list all undefined names", msg)
	}
	if pos := serr.Issues[0].Pos; pos.Line != 2 || pos.Column != 17 {
		t.Errorf("first undefined reference at %s, want 2:17", pos)
	}
}

func TestParse_Filename(t *testing.T) {
	_, err := Parse("lang.bnf", strings.NewReader(`<a> ::= <b>`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "lang.bnf: undefined rules: <b>") {
		t.Errorf("got %q", err.Error())
	}
}

func TestRuleTable_String(t *testing.T) {
	src := `<a> ::= "x" <b> | ""
<b> ::= 'say "hi"'
`
	table := MustCompile(src)
	again := MustCompile(table.String())
	if table.String() != again.String() {
		t.Errorf("rendering is not stable:\n%s\n%s", table, again)
	}
	if want := `<a> ::= "x" <b> | ""`; !strings.HasPrefix(table.String(), want) {
		t.Errorf("got %q, want prefix %q", table.String(), want)
	}
}

func TestParseEBNF(t *testing.T) {
	table, err := ParseEBNF("digits.ebnf", strings.NewReader(`
Number = [ "-" ] digit { digit } .
digit  = "0" … "9" .
Sum    = Number { ( "+" | "-" ) Number } .
`))
	if err != nil {
		t.Fatalf("parse ebnf: %v", err)
	}

	if got := table.Start().Name(); got != "Number" {
		t.Errorf("start %q, want Number", got)
	}
	number, _ := table.Lookup("Number")
	if number.Len() != 1 || number.Alternative(0).Len() != 3 {
		t.Fatalf("Number lowered to %s", number)
	}
	opt := table.Rule(number.Alternative(0).Element(0).Ref())
	if !strings.HasPrefix(opt.Name(), "_OPT_") || !opt.Elidable() {
		t.Errorf("option lowered to %s", opt)
	}
	if opt.Len() != 2 || !opt.Alternative(1).IsEmpty() {
		t.Errorf("option should end with the empty alternative: %s", opt)
	}

	rep := table.Rule(number.Alternative(0).Element(2).Ref())
	if !strings.HasPrefix(rep.Name(), "_REP_") {
		t.Fatalf("repetition lowered to %s", rep)
	}
	if last := rep.Alternative(0).Element(rep.Alternative(0).Len() - 1); last.Ref() != rep.Index() {
		t.Errorf("repetition must recurse on itself: %s", rep)
	}

	digit, _ := table.Lookup("digit")
	rng := table.Rule(digit.Alternative(0).Element(0).Ref())
	if rng.Len() != 10 {
		t.Errorf("range lowered to %d alternatives, want 10", rng.Len())
	}
}

func TestParseEBNF_Undefined(t *testing.T) {
	_, err := ParseEBNF("bad.ebnf", strings.NewReader(`A = B | C .`))
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if diff := cmp.Diff([]string{"B", "C"}, serr.Undefined()); diff != "" {
		t.Errorf("undefined mismatch (-want +got):\n%s", diff)
	}
}

func TestSymbols(t *testing.T) {
	src := `<a> ::= <b> "x"
    | <c
<b> ::= "y"`
	type sym struct {
		Name string
		Line int
		Col  int
		Def  bool
	}
	var got []sym
	for _, s := range Symbols("", src) {
		got = append(got, sym{s.Name, s.Pos.Line, s.Pos.Column, s.Definition})
	}
	want := []sym{
		{"a", 1, 1, true},
		{"b", 1, 9, false},
		{"b", 3, 1, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}
