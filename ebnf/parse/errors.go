package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrRecursionLimit is matched by errors.Is for every RecursionLimitError.
	ErrRecursionLimit = errors.New("recursion limit exceeded")
	// ErrNestingLimit is matched by errors.Is for every NestingLimitError.
	ErrNestingLimit = errors.New("nesting limit exceeded")
)

// Position represents a location in parsed input.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf converts a byte offset in input into a line and column. Lines
// and columns start at 1; columns count runes.
func PositionOf(input string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(input) {
		offset = len(input)
	}
	line := 1 + strings.Count(input[:offset], "\n")
	lineStart := strings.LastIndexByte(input[:offset], '\n') + 1
	return Position{
		Offset: offset,
		Line:   line,
		Column: utf8.RuneCountInString(input[lineStart:offset]) + 1,
	}
}

// Error reports input that does not match the grammar.
type Error struct {
	Rule string   // start rule
	Pos  Position // where the failure is reported
	// Furthest is the largest offset reached by any alternative, including
	// ones that eventually failed.
	Furthest int
	// Expected lists the literals tried at Furthest.
	Expected []string
	// Got is the input found at the reported position, empty at end of input.
	Got string
	// Trailing is set when the start rule matched a prefix of the input and
	// Pos is the first unconsumed offset.
	Trailing bool
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse <%s>: ", e.Rule)
	if e.Trailing {
		fmt.Fprintf(&sb, "unexpected trailing input at %s", e.Pos)
	} else {
		fmt.Fprintf(&sb, "no match at %s", e.Pos)
	}
	if e.Got != "" {
		fmt.Fprintf(&sb, " near %s", strconv.Quote(e.Got))
	} else {
		sb.WriteString(" at end of input")
	}
	if len(e.Expected) > 0 {
		quoted := make([]string, len(e.Expected))
		for i, s := range e.Expected {
			quoted[i] = strconv.Quote(s)
		}
		fmt.Fprintf(&sb, ", expected %s", strings.Join(quoted, " or "))
	}
	return sb.String()
}

// RecursionLimitError reports that more rule invocations than the configured
// limit were nested at one offset, which happens for grammars that recurse
// without consuming input.
type RecursionLimitError struct {
	Rule   string // rule being entered when the limit was hit
	Offset int
	Limit  int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("recursion limit %d exceeded entering <%s> at offset %d without consuming input", e.Limit, e.Rule, e.Offset)
}

func (e *RecursionLimitError) Unwrap() error {
	return ErrRecursionLimit
}

// NestingLimitError reports a match that nests more rule invocations than the
// configured limit, counting invocations that consumed input.
type NestingLimitError struct {
	Rule   string
	Offset int
	Limit  int
}

func (e *NestingLimitError) Error() string {
	return fmt.Sprintf("nesting limit %d exceeded entering <%s> at offset %d", e.Limit, e.Rule, e.Offset)
}

func (e *NestingLimitError) Unwrap() error {
	return ErrNestingLimit
}

// gotAt returns a short excerpt of input at offset for error messages.
func gotAt(input string, offset int) string {
	if offset >= len(input) {
		return ""
	}
	rest := input[offset:]
	if i := strings.IndexAny(rest, "\r\n"); i == 0 {
		return rest[:1]
	} else if i > 0 {
		rest = rest[:i]
	}
	const max = 16
	if utf8.RuneCountInString(rest) > max {
		n := 0
		for i := range rest {
			if n == max {
				return rest[:i]
			}
			n++
		}
	}
	return rest
}
