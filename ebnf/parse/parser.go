package parse

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/bnf/ebnf/grammar"
)

var log = commonlog.GetLogger("bnf.parse")

// DefaultMaxDepth is the default limit on rule invocations nested at one
// input offset. Only a grammar that recurses without consuming input reaches
// it.
const DefaultMaxDepth = 4096

// DefaultMaxNesting is the default limit on nested rule invocations overall.
// Right-recursive repetition nests once or twice per repeated item, so this
// bounds the input length such a rule can match.
const DefaultMaxNesting = 1 << 18

type Option func(*Parser)

// KeepAllRules disables elision: the tree gets one token per rule invocation.
func KeepAllRules() Option {
	return func(p *Parser) {
		p.keepAllRules = true
	}
}

// WithKeepAllRules is KeepAllRules with an explicit switch, for callers that
// take the setting from configuration.
func WithKeepAllRules(keep bool) Option {
	return func(p *Parser) {
		p.keepAllRules = keep
	}
}

// WithMaxDepth sets the limit on rule invocations nested at one input
// offset. Values below 1 select DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		p.maxDepth = depth
	}
}

// WithMaxNesting sets the limit on nested rule invocations, whether or not
// they consume input. Values below 1 select DefaultMaxNesting.
func WithMaxNesting(nesting int) Option {
	return func(p *Parser) {
		if nesting < 1 {
			nesting = DefaultMaxNesting
		}
		p.maxNesting = nesting
	}
}

// Parser parses input against a rule table. A Parser holds no per-parse
// state and may be used from several goroutines at once.
type Parser struct {
	table        *grammar.RuleTable
	keepAllRules bool
	maxDepth     int
	maxNesting   int
}

func NewParser(table *grammar.RuleTable, opts ...Option) *Parser {
	p := &Parser{table: table, maxDepth: DefaultMaxDepth, maxNesting: DefaultMaxNesting}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses input against a rule table starting at the named rule.
func Parse(table *grammar.RuleTable, start, input string, opts ...Option) (*Token, error) {
	return NewParser(table, opts...).Parse(start, input)
}

func (p *Parser) Table() *grammar.RuleTable { return p.table }

// Parse matches the whole input against the start rule. An empty start
// selects the first declared rule. On failure no tree is returned; the error
// is a *Error, a *RecursionLimitError or a *NestingLimitError.
func (p *Parser) Parse(start, input string) (*Token, error) {
	var rule *grammar.Rule
	if start == "" {
		rule = p.table.Start()
		if rule == nil {
			return nil, fmt.Errorf("parse: grammar has no start rule")
		}
	} else {
		r, ok := p.table.Lookup(start)
		if !ok {
			return nil, fmt.Errorf("parse: unknown start rule <%s>", start)
		}
		rule = r
	}

	m := &matcher{
		table:      p.table,
		input:      input,
		keepAll:    p.keepAllRules,
		maxDepth:   p.maxDepth,
		maxNesting: p.maxNesting,
		entered:    -1,
	}
	tok, ok, err := m.matchRule(rule, 0)
	if err != nil {
		log.Debugf("parse <%s> aborted: %s", rule.Name(), err)
		return nil, err
	}
	if !ok {
		return nil, m.failure(rule.Name(), m.furthest, false)
	}
	if tok.End != len(input) {
		return nil, m.failure(rule.Name(), tok.End, true)
	}
	return tok, nil
}

// matcher holds the state of a single parse.
type matcher struct {
	table      *grammar.RuleTable
	input      string
	keepAll    bool
	maxDepth   int
	maxNesting int
	nesting    int
	// stalled counts the innermost invocations entered at offset entered.
	stalled    int
	entered    int
	furthest   int
	expected   []string
}

func (m *matcher) failure(rule string, offset int, trailing bool) *Error {
	e := &Error{
		Rule:     rule,
		Pos:      PositionOf(m.input, offset),
		Furthest: m.furthest,
		Got:      gotAt(m.input, offset),
		Trailing: trailing,
	}
	if offset == m.furthest {
		e.Expected = m.expected
	}
	log.Debugf("%s", e)
	return e
}

// reach records that the cursor advanced to pos.
func (m *matcher) reach(pos int) {
	if pos > m.furthest {
		m.furthest = pos
		m.expected = nil
	}
}

// expect records a literal that failed to match at pos.
func (m *matcher) expect(pos int, lit string) {
	m.reach(pos)
	if pos == m.furthest && !slices.Contains(m.expected, lit) {
		m.expected = append(m.expected, lit)
	}
}

// matchRule tries the alternatives of rule in order and returns the token of
// the first one that matches at pos.
func (m *matcher) matchRule(rule *grammar.Rule, pos int) (*Token, bool, error) {
	stalled, entered := m.stalled, m.entered
	m.nesting++
	if pos == m.entered {
		m.stalled++
	} else {
		m.stalled, m.entered = 1, pos
	}
	defer func() {
		m.nesting--
		m.stalled, m.entered = stalled, entered
	}()
	if m.stalled > m.maxDepth {
		return nil, false, &RecursionLimitError{Rule: rule.Name(), Offset: pos, Limit: m.maxDepth}
	}
	if m.nesting > m.maxNesting {
		return nil, false, &NestingLimitError{Rule: rule.Name(), Offset: pos, Limit: m.maxNesting}
	}

	for i := 0; i < rule.Len(); i++ {
		children, end, ok, err := m.matchAlternative(rule.Alternative(i), pos)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		tok := &Token{Type: rule.Name(), Children: children, Start: pos, End: end}
		if len(children) == 0 {
			tok.Text = m.input[pos:end]
		}
		return tok, true, nil
	}
	return nil, false, nil
}

// matchAlternative matches the elements of alt in sequence starting at
// start. On failure the cursor is implicitly rewound: nothing matched so far
// is kept.
func (m *matcher) matchAlternative(alt grammar.Alternative, start int) ([]*Token, int, bool, error) {
	pos := start
	var children []*Token
	for i := 0; i < alt.Len(); i++ {
		e := alt.Element(i)
		switch e.Kind() {
		case grammar.Literal:
			lit := e.Text()
			if !strings.HasPrefix(m.input[pos:], lit) {
				m.expect(pos, lit)
				return nil, start, false, nil
			}
			if lit == "" {
				continue
			}
			children = append(children, newLiteral(lit, pos))
			pos += len(lit)
			m.reach(pos)

		case grammar.Reference:
			rule := m.table.Rule(e.Ref())
			child, ok, err := m.matchRule(rule, pos)
			if err != nil {
				return nil, start, false, err
			}
			if !ok {
				return nil, start, false, nil
			}
			children = appendChild(children, child, rule.Elidable() && !m.keepAll)
			pos = child.End
		}
	}
	return children, pos, true, nil
}
