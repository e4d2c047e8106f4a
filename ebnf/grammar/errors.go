package grammar

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// IssueKind classifies a problem found while compiling a grammar.
type IssueKind int

const (
	MissingName IssueKind = iota + 1
	MissingSeparator
	UnterminatedLiteral
	MalformedName
	UnexpectedInput
	EmptyAlternative
	DuplicateRule
	UndefinedRule
	EmptyGrammar
	MalformedEBNF
)

var issueKindNames = map[IssueKind]string{
	MissingName:         "missing-name",
	MissingSeparator:    "missing-separator",
	UnterminatedLiteral: "unterminated-literal",
	MalformedName:       "malformed-name",
	UnexpectedInput:     "unexpected-input",
	EmptyAlternative:    "empty-alternative",
	DuplicateRule:       "duplicate-rule",
	UndefinedRule:       "undefined-rule",
	EmptyGrammar:        "empty-grammar",
	MalformedEBNF:       "malformed-ebnf",
}

func (k IssueKind) String() string {
	if s, ok := issueKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Issue is a single problem in grammar source.
type Issue struct {
	Kind    IssueKind
	Pos     Position
	Name    string // rule name involved, if any
	Message string
	// Suggestions lists declared rule names close to an undefined Name.
	Suggestions []string
}

// Detail returns the message with any suggestions, without the position.
func (i Issue) Detail() string {
	if len(i.Suggestions) > 0 {
		return i.Message + fmt.Sprintf(" (did you mean %s?)", joinNames(i.Suggestions, " or "))
	}
	return i.Message
}

func (i Issue) String() string {
	if i.Pos.IsValid() {
		return i.Pos.String() + ": " + i.Detail()
	}
	return i.Detail()
}

// SyntaxError reports every problem found in one compilation. A grammar with
// a SyntaxError never yields a rule table.
type SyntaxError struct {
	Filename string
	Issues   []Issue
}

func (e *SyntaxError) Error() string {
	var lines []string
	for _, issue := range e.Issues {
		if issue.Kind == UndefinedRule {
			continue
		}
		lines = append(lines, issue.String())
	}
	if undefined := e.Undefined(); len(undefined) > 0 {
		msg := "undefined rules: " + joinNames(undefined, ", ")
		if e.Filename != "" {
			msg = e.Filename + ": " + msg
		}
		lines = append(lines, msg)
	}
	return strings.Join(lines, "\n")
}

// Undefined returns the names of all referenced but undeclared rules, in
// order of first reference.
func (e *SyntaxError) Undefined() []string {
	var names []string
	for _, issue := range e.Issues {
		if issue.Kind == UndefinedRule {
			names = append(names, issue.Name)
		}
	}
	return names
}

// Has reports whether any issue is of the given kind.
func (e *SyntaxError) Has(kind IssueKind) bool {
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// maxDistanceForHint is the levenshtein distance below which a declared name
// is suggested for an undefined one.
const maxDistanceForHint = 3

func closestNames(name string, candidates []string) []string {
	closest := []string{}
	minDistance := maxDistanceForHint
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		switch {
		case d < minDistance:
			closest = []string{c}
			minDistance = d
		case d == minDistance:
			closest = append(closest, c)
		}
	}
	slices.Sort(closest)
	return closest
}

func joinNames(names []string, sep string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "<" + n + ">"
	}
	return strings.Join(parts, sep)
}
