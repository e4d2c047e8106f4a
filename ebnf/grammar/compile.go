package grammar

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("bnf.grammar")

type tokenKind int

const (
	tokName tokenKind = iota
	tokDefine
	tokPipe
	tokLiteral
)

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func (t token) describe() string {
	switch t.kind {
	case tokName:
		return "<" + t.text + ">"
	case tokDefine:
		return "::="
	case tokPipe:
		return "|"
	default:
		return quote(t.text)
	}
}

// ruleBuilder accumulates the body tokens of one rule across continuation lines.
type ruleBuilder struct {
	name   string
	pos    Position
	body   []token
	broken bool // header line had a lexical error
}

type compiler struct {
	filename string
	issues   []Issue
	rules    []*ruleBuilder
}

// Compile compiles grammar text into a rule table.
func Compile(text string) (*RuleTable, error) {
	return compile("", text)
}

// Parse reads grammar text from r and compiles it. The filename is used in
// positions and error messages only.
func Parse(filename string, r io.Reader) (*RuleTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	return compile(filename, string(data))
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string) *RuleTable {
	t, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(filename, text string) (*RuleTable, error) {
	c := &compiler{filename: filename}
	c.scan(text)
	if len(c.rules) == 0 && len(c.issues) == 0 {
		c.issue(EmptyGrammar, Position{}, "", "grammar declares no rules")
	}
	table := c.build()
	if len(c.issues) > 0 {
		return nil, &SyntaxError{Filename: filename, Issues: c.issues}
	}
	log.Debugf("compiled %d rules from %q", table.Len(), filename)
	return table, nil
}

func (c *compiler) issue(kind IssueKind, pos Position, name, format string, args ...any) {
	c.issues = append(c.issues, Issue{
		Kind:    kind,
		Pos:     pos,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	})
}

// scan splits the source into lines, tokenizes each and groups lines into
// rules. A rule starts with "<Name> ::=" at the beginning of a line; lines
// starting with "|" continue the previous rule.
func (c *compiler) scan(text string) {
	var current *ruleBuilder
	forEachLine(text, func(line string, offset, lineNo int) {
		tokens, ok := c.tokenize(line, offset, lineNo)
		if ok && len(tokens) > 0 {
			current = c.classify(tokens, current)
		} else if !ok {
			// tokens before the error still count, so references on a broken
			// line are resolved, and continuation lines after a broken header
			// still belong to it
			switch {
			case len(tokens) > 1 && tokens[0].kind == tokName && tokens[1].kind == tokDefine:
				current = c.startRule(tokens[0])
				current.body = append(current.body, tokens[2:]...)
				current.broken = true
			case len(tokens) > 0 && tokens[0].kind == tokPipe && current != nil:
				current.body = append(current.body, tokens...)
				current.broken = true
			}
		}
	})
}

// forEachLine calls fn for every line of text with its byte offset and
// 1-based line number. Line terminators are not passed to fn.
func forEachLine(text string, fn func(line string, offset, lineNo int)) {
	offset := 0
	for lineNo := 1; offset <= len(text); lineNo++ {
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		if end < 0 {
			line = text[offset:]
		} else {
			line = text[offset : offset+end]
		}
		fn(strings.TrimSuffix(line, "\r"), offset, lineNo)
		if end < 0 {
			return
		}
		offset += end + 1
	}
}

func (c *compiler) startRule(name token) *ruleBuilder {
	rb := &ruleBuilder{name: name.text, pos: name.pos}
	c.rules = append(c.rules, rb)
	return rb
}

func (c *compiler) classify(tokens []token, current *ruleBuilder) *ruleBuilder {
	first := tokens[0]
	switch first.kind {
	case tokPipe:
		if current == nil {
			c.issue(MissingName, first.pos, "", "alternative outside of a rule declaration")
			return nil
		}
		current.body = append(current.body, tokens...)
		return current
	case tokDefine:
		c.issue(MissingName, first.pos, "", "missing rule name before ::=")
		return nil
	case tokName:
		if len(tokens) < 2 || tokens[1].kind != tokDefine {
			c.issue(MissingSeparator, first.pos, first.text, "missing ::= after %s", first.describe())
			return nil
		}
		rb := c.startRule(first)
		rb.body = append(rb.body, tokens[2:]...)
		return rb
	default:
		c.issue(MissingName, first.pos, "", "expected rule declaration, found %s", first.describe())
		return nil
	}
}

// tokenize splits one line into tokens. It reports false if the line
// contained a lexical error, which has already been recorded.
func (c *compiler) tokenize(line string, base, lineNo int) ([]token, bool) {
	var tokens []token
	pos := func(i int) Position {
		return Position{
			Filename: c.filename,
			Offset:   base + i,
			Line:     lineNo,
			Column:   utf8.RuneCountInString(line[:i]) + 1,
		}
	}

	i := 0
	for i < len(line) {
		ch := line[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case strings.HasPrefix(line[i:], "//"):
			return tokens, true
		case strings.HasPrefix(line[i:], "::="):
			tokens = append(tokens, token{kind: tokDefine, pos: pos(i)})
			i += 3
		case ch == '|':
			tokens = append(tokens, token{kind: tokPipe, pos: pos(i)})
			i++
		case ch == '"' || ch == '\'':
			end := strings.IndexByte(line[i+1:], ch)
			if end < 0 {
				c.issue(UnterminatedLiteral, pos(i), "", "unterminated literal %s", line[i:])
				return tokens, false
			}
			tokens = append(tokens, token{kind: tokLiteral, text: line[i+1 : i+1+end], pos: pos(i)})
			i += end + 2
		case ch == '<':
			end := strings.IndexByte(line[i+1:], '>')
			if end < 0 {
				c.issue(MalformedName, pos(i), "", "rule name %s is missing closing >", line[i:])
				return tokens, false
			}
			name := line[i+1 : i+1+end]
			if name == "" {
				c.issue(MissingName, pos(i), "", "empty rule name <>")
				return tokens, false
			}
			if !validName(name) {
				c.issue(MalformedName, pos(i), name, "invalid rule name <%s>", name)
				return tokens, false
			}
			tokens = append(tokens, token{kind: tokName, text: name, pos: pos(i)})
			i += end + 2
		default:
			r, _ := utf8.DecodeRuneInString(line[i:])
			c.issue(UnexpectedInput, pos(i), "", "unexpected character %q", r)
			return tokens, false
		}
	}
	return tokens, true
}

func validName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// build turns the collected rule bodies into a table and resolves references.
// Issues found here are appended to c.issues.
func (c *compiler) build() *RuleTable {
	table := &RuleTable{filename: c.filename, index: make(map[string]int)}
	for _, rb := range c.rules {
		if _, dup := table.index[rb.name]; dup {
			first := table.rules[table.index[rb.name]]
			c.issue(DuplicateRule, rb.pos, rb.name, "rule <%s> already declared at %s", rb.name, first.pos)
			continue
		}
		rule := &Rule{
			name:     rb.name,
			index:    len(table.rules),
			elidable: IsElidableName(rb.name),
			pos:      rb.pos,
			alts:     c.alternatives(rb),
		}
		table.index[rule.name] = rule.index
		table.rules = append(table.rules, rule)
	}
	addBuiltins(table)
	c.issues = append(c.issues, resolve(table)...)
	return table
}

func (c *compiler) alternatives(rb *ruleBuilder) []Alternative {
	var alts []Alternative
	var elems []Element
	lastPos := rb.pos
	flush := func(at Position) {
		if len(elems) == 0 && !rb.broken {
			c.issue(EmptyAlternative, at, rb.name, "empty alternative in <%s>; write \"\" to match nothing", rb.name)
		}
		alts = append(alts, Alternative{elems: elems})
		elems = nil
	}
	for _, tok := range rb.body {
		switch tok.kind {
		case tokPipe:
			flush(tok.pos)
		case tokLiteral:
			elems = append(elems, newLiteral(tok.text, tok.pos))
		case tokName:
			elems = append(elems, newReference(tok.text, tok.pos))
		case tokDefine:
			c.issue(UnexpectedInput, tok.pos, rb.name, "unexpected ::= in body of <%s>", rb.name)
		}
		lastPos = tok.pos
	}
	flush(lastPos)
	return alts
}

func addBuiltins(table *RuleTable) {
	for _, b := range builtinRules() {
		if _, declared := table.index[b.name]; declared {
			continue
		}
		b.index = len(table.rules)
		b.elidable = IsElidableName(b.name)
		table.index[b.name] = b.index
		table.rules = append(table.rules, b)
	}
}

// resolve links every reference to its rule index and reports each undefined
// name once, at its first reference.
func resolve(table *RuleTable) []Issue {
	var issues []Issue
	reported := make(map[string]bool)
	for _, rule := range table.rules {
		for _, alt := range rule.alts {
			for i := range alt.elems {
				e := &alt.elems[i]
				if e.kind != Reference {
					continue
				}
				if idx, ok := table.index[e.text]; ok {
					e.ref = idx
					continue
				}
				if reported[e.text] {
					continue
				}
				reported[e.text] = true
				issues = append(issues, Issue{
					Kind:        UndefinedRule,
					Pos:         e.pos,
					Name:        e.text,
					Message:     fmt.Sprintf("undefined rule <%s> referenced in <%s>", e.text, rule.name),
					Suggestions: closestNames(e.text, table.Names()),
				})
			}
		}
	}
	return issues
}
