// Package grammar compiles grammar text into an immutable rule table.
//
// The notation is a small BNF dialect:
//
//	<Name> ::= "literal" <Other> | ""
//
// Every alternative is a whitespace separated sequence of quoted literals and
// rule references. An alternative consisting only of "" matches the empty
// string. There are no repetition or option operators; use self-referential
// rules instead. Rules whose names consist only of upper case letters, digits
// and underscores are elidable: parsers splice their children into the parent
// node instead of emitting a node of their own.
package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// Position represents a location in grammar source.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position refers to an actual source location.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// ElementKind distinguishes literal elements from rule references.
type ElementKind int

const (
	Literal ElementKind = iota
	Reference
)

func (k ElementKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Element is a single item of an alternative.
type Element struct {
	kind ElementKind
	text string
	ref  int
	pos  Position
}

func newLiteral(text string, pos Position) Element {
	return Element{kind: Literal, text: text, ref: -1, pos: pos}
}

func newReference(name string, pos Position) Element {
	return Element{kind: Reference, text: name, ref: -1, pos: pos}
}

func (e Element) Kind() ElementKind { return e.kind }

// Text returns the literal text for literals and the rule name for references.
func (e Element) Text() string { return e.text }

// Ref returns the index of the referenced rule in its table, or -1 for literals.
func (e Element) Ref() int { return e.ref }

func (e Element) Pos() Position { return e.pos }

func (e Element) String() string {
	if e.kind == Reference {
		return "<" + e.text + ">"
	}
	return quote(e.text)
}

// Alternative is an ordered sequence of elements.
type Alternative struct {
	elems []Element
}

func (a Alternative) Len() int { return len(a.elems) }

func (a Alternative) Element(i int) Element { return a.elems[i] }

// IsEmpty reports whether the alternative is the empty match "".
func (a Alternative) IsEmpty() bool {
	return len(a.elems) == 1 && a.elems[0].kind == Literal && a.elems[0].text == ""
}

func (a Alternative) String() string {
	parts := make([]string, len(a.elems))
	for i, e := range a.elems {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Rule is a named production with ordered alternatives.
type Rule struct {
	name     string
	index    int
	alts     []Alternative
	elidable bool
	builtin  bool
	pos      Position
}

func (r *Rule) Name() string { return r.name }

// Index returns the position of the rule in its table.
func (r *Rule) Index() int { return r.index }

// Elidable reports whether nodes for this rule are spliced into their parent.
func (r *Rule) Elidable() bool { return r.elidable }

// Builtin reports whether the rule is provided without being declared.
func (r *Rule) Builtin() bool { return r.builtin }

// Pos returns the position of the rule's declaration.
func (r *Rule) Pos() Position { return r.pos }

// Len returns the number of alternatives.
func (r *Rule) Len() int { return len(r.alts) }

func (r *Rule) Alternative(i int) Alternative { return r.alts[i] }

func (r *Rule) String() string {
	alts := make([]string, len(r.alts))
	for i, a := range r.alts {
		alts[i] = a.String()
	}
	return fmt.Sprintf("<%s> ::= %s", r.name, strings.Join(alts, " | "))
}

// RuleTable is a compiled grammar. It is never modified after compilation and
// can be shared between goroutines.
type RuleTable struct {
	filename string
	rules    []*Rule
	index    map[string]int
}

// Filename returns the name the grammar was compiled from, if any.
func (t *RuleTable) Filename() string { return t.filename }

// Start returns the first declared rule.
func (t *RuleTable) Start() *Rule {
	for _, r := range t.rules {
		if !r.builtin {
			return r
		}
	}
	return nil
}

// Lookup finds a rule by name.
func (t *RuleTable) Lookup(name string) (*Rule, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.rules[i], true
}

// Rule returns the rule at index i.
func (t *RuleTable) Rule(i int) *Rule { return t.rules[i] }

// Len returns the number of rules, including built-in ones.
func (t *RuleTable) Len() int { return len(t.rules) }

// Rules returns all rules in declaration order followed by built-in rules.
func (t *RuleTable) Rules() []*Rule {
	out := make([]*Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Names returns the names of all declared rules in declaration order.
func (t *RuleTable) Names() []string {
	var names []string
	for _, r := range t.rules {
		if !r.builtin {
			names = append(names, r.name)
		}
	}
	return names
}

// String renders the declared rules back into grammar notation.
func (t *RuleTable) String() string {
	var sb strings.Builder
	for _, r := range t.rules {
		if r.builtin {
			continue
		}
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// IsElidableName reports whether a rule with the given name is elided from
// syntax trees by default.
func IsElidableName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// EOL is the name of the built-in line break rule.
const EOL = "EOL"

func builtinRules() []*Rule {
	return []*Rule{
		{
			name: EOL,
			alts: []Alternative{
				{elems: []Element{newLiteral("\r\n", Position{})}},
				{elems: []Element{newLiteral("\n", Position{})}},
				{elems: []Element{newLiteral("\r", Position{})}},
			},
			builtin: true,
		},
	}
}

func quote(s string) string {
	if strings.ContainsAny(s, "\r\n\t") {
		return strconv.Quote(s)
	}
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
