// Package parse matches input text against a compiled rule table and builds
// syntax trees.
package parse

import (
	"strings"

	"github.com/dhamidi/bnf/ebnf/grammar"
)

// LiteralType is the Type of tokens produced for matched literals. It can
// never collide with a rule name.
const LiteralType = "#text"

// Token is a node in the syntax tree.
// Leaf tokens carry the matched source text; interior tokens only have
// Children.
type Token struct {
	Type     string   // Rule name, or LiteralType for raw text
	Text     string   // Matched text, set for leaves only
	Children []*Token // Child tokens in source order
	Start    int      // Byte offset of the first matched character
	End      int      // Byte offset just past the match
}

// IsLiteral reports whether the token was produced by a literal element.
func (t *Token) IsLiteral() bool {
	return t.Type == LiteralType
}

// IsLeaf reports whether the token has no children.
func (t *Token) IsLeaf() bool {
	return len(t.Children) == 0
}

// Content returns the source text covered by the token, reassembled from its
// leaves.
func (t *Token) Content() string {
	if t.IsLeaf() {
		return t.Text
	}
	var sb strings.Builder
	t.Walk(func(n *Token) bool {
		if n.IsLeaf() {
			sb.WriteString(n.Text)
		}
		return true
	})
	return sb.String()
}

// Walk visits t and its descendants in pre-order. Returning false from fn
// skips the children of the visited token.
func (t *Token) Walk(fn func(*Token) bool) {
	if !fn(t) {
		return
	}
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// Find returns all descendants of t (including t) with the given type, in
// pre-order.
func (t *Token) Find(typ string) []*Token {
	var out []*Token
	t.Walk(func(n *Token) bool {
		if n.Type == typ {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Leaves returns the leaf tokens under t from left to right.
func (t *Token) Leaves() []*Token {
	var out []*Token
	t.Walk(func(n *Token) bool {
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	return out
}

func newLiteral(text string, start int) *Token {
	return &Token{Type: LiteralType, Text: text, Start: start, End: start + len(text)}
}

// appendChild adds child to children, splicing the child's own children in
// its place when its rule is elided. Children of child have already been
// elided when it was built, so one level of splicing flattens the tree.
func appendChild(children []*Token, child *Token, elide bool) []*Token {
	if elide {
		return append(children, child.Children...)
	}
	return append(children, child)
}

// Elide applies the default elision policy to a tree built with
// KeepAllRules: tokens of elidable rules are replaced by their children. The
// root is kept. Leaf text is recomputed from input so that interior tokens
// left without children become leaves.
func Elide(table *grammar.RuleTable, root *Token, input string) *Token {
	out := &Token{Type: root.Type, Start: root.Start, End: root.End}
	if root.IsLiteral() {
		out.Text = root.Text
		return out
	}
	out.Children = elideChildren(table, root.Children, input)
	if len(out.Children) == 0 {
		out.Text = input[root.Start:root.End]
	}
	return out
}

func elideChildren(table *grammar.RuleTable, children []*Token, input string) []*Token {
	var out []*Token
	for _, c := range children {
		if c.IsLiteral() {
			out = append(out, &Token{Type: c.Type, Text: c.Text, Start: c.Start, End: c.End})
			continue
		}
		if r, ok := table.Lookup(c.Type); ok && r.Elidable() {
			out = append(out, elideChildren(table, c.Children, input)...)
			continue
		}
		out = append(out, Elide(table, c, input))
	}
	return out
}
