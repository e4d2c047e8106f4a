package server

import (
	"errors"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/format"
)

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	Grammar string `json:"grammar"`
	Syntax  string `json:"syntax,omitempty"` // "bnf" (default) or "ebnf"
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	CheckRequest
	Start        string `json:"start,omitempty"`
	Input        string `json:"input"`
	KeepAllRules bool   `json:"keep_all_rules,omitempty"`
}

type Response struct {
	OK     bool         `json:"ok"`
	Rules  []RuleInfo   `json:"rules,omitempty"`
	Tree   *format.Node `json:"tree,omitempty"`
	Issues []IssueInfo  `json:"issues,omitempty"`
	Error  *ErrorInfo   `json:"error,omitempty"`
}

type RuleInfo struct {
	Name         string `json:"name"`
	Alternatives int    `json:"alternatives"`
	Elidable     bool   `json:"elidable"`
	Builtin      bool   `json:"builtin,omitempty"`
}

type IssueInfo struct {
	Kind        string   `json:"kind"`
	Line        int      `json:"line,omitempty"`
	Column      int      `json:"column,omitempty"`
	Name        string   `json:"name,omitempty"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type ErrorInfo struct {
	Message   string   `json:"message"`
	Offset    int      `json:"offset"`
	Furthest  int      `json:"furthest"`
	Line      int      `json:"line,omitempty"`
	Column    int      `json:"column,omitempty"`
	Expected  []string `json:"expected,omitempty"`
	Trailing  bool     `json:"trailing,omitempty"`
	Recursion bool     `json:"recursion,omitempty"`
}

func rulesOf(table *grammar.RuleTable) []RuleInfo {
	var out []RuleInfo
	for _, r := range table.Rules() {
		out = append(out, RuleInfo{
			Name:         r.Name(),
			Alternatives: r.Len(),
			Elidable:     r.Elidable(),
			Builtin:      r.Builtin(),
		})
	}
	return out
}

// issuesOf describes a grammar compile error. Errors other than
// *grammar.SyntaxError become a single issue.
func issuesOf(err error) []IssueInfo {
	var serr *grammar.SyntaxError
	if !errors.As(err, &serr) {
		return []IssueInfo{{Kind: "error", Message: err.Error()}}
	}
	out := make([]IssueInfo, 0, len(serr.Issues))
	for _, issue := range serr.Issues {
		out = append(out, IssueInfo{
			Kind:        issue.Kind.String(),
			Line:        issue.Pos.Line,
			Column:      issue.Pos.Column,
			Name:        issue.Name,
			Message:     issue.Message,
			Suggestions: issue.Suggestions,
		})
	}
	return out
}

func errorOf(err error) *ErrorInfo {
	info := &ErrorInfo{Message: err.Error()}
	var perr *parse.Error
	var rerr *parse.RecursionLimitError
	var nerr *parse.NestingLimitError
	switch {
	case errors.As(err, &perr):
		info.Offset = perr.Pos.Offset
		info.Furthest = perr.Furthest
		info.Line = perr.Pos.Line
		info.Column = perr.Pos.Column
		info.Expected = perr.Expected
		info.Trailing = perr.Trailing
	case errors.As(err, &rerr):
		info.Offset = rerr.Offset
		info.Recursion = true
	case errors.As(err, &nerr):
		info.Offset = nerr.Offset
	}
	return info
}
