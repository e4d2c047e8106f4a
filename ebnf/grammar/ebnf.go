package grammar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"text/scanner"
	"unicode/utf8"

	"golang.org/x/exp/ebnf"
)

// ParseEBNF reads a grammar written in the EBNF notation of golang.org/x/exp/ebnf
// and lowers it into a rule table. Options, groups,
// repetitions and character ranges become elidable helper rules, so the
// resulting table has the same shape as one compiled from BNF text.
// Alternatives keep ordered choice semantics.
func ParseEBNF(filename string, r io.Reader) (*RuleTable, error) {
	g, err := ebnf.Parse(filename, r)
	if err != nil {
		return nil, &SyntaxError{Filename: filename, Issues: ebnfIssues(err)}
	}
	return lowerEBNF(filename, g)
}

// LoadFile compiles the grammar in the named file. Files ending in .ebnf are
// read as Go EBNF, everything else as BNF.
func LoadFile(filename string) (*RuleTable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()

	if filepath.Ext(filename) == ".ebnf" {
		return ParseEBNF(filename, f)
	}
	return Parse(filename, f)
}

type lowerer struct {
	filename string
	rules    []*Rule
	names    map[string]bool
	counter  int
	issues   []Issue
}

func lowerEBNF(filename string, g ebnf.Grammar) (*RuleTable, error) {
	prods := make([]*ebnf.Production, 0, len(g))
	for _, p := range g {
		prods = append(prods, p)
	}
	sort.Slice(prods, func(i, j int) bool {
		return prods[i].Name.StringPos.Offset < prods[j].Name.StringPos.Offset
	})

	l := &lowerer{filename: filename, names: make(map[string]bool)}
	for _, p := range prods {
		l.names[p.Name.String] = true
	}
	if len(prods) == 0 {
		l.issue(EmptyGrammar, Position{}, "grammar declares no productions")
	}

	for _, p := range prods {
		rule := l.addRule(p.Name.String, l.pos(p.Name.Pos()))
		rule.alts = l.alternatives(p.Expr)
	}

	table := &RuleTable{filename: filename, index: make(map[string]int)}
	for _, r := range l.rules {
		r.index = len(table.rules)
		table.index[r.name] = r.index
		table.rules = append(table.rules, r)
	}
	addBuiltins(table)
	l.issues = append(l.issues, resolve(table)...)

	if len(l.issues) > 0 {
		return nil, &SyntaxError{Filename: filename, Issues: l.issues}
	}
	log.Debugf("lowered %d productions into %d rules from %q", len(prods), table.Len(), filename)
	return table, nil
}

func (l *lowerer) issue(kind IssueKind, pos Position, format string, args ...any) {
	l.issues = append(l.issues, Issue{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (l *lowerer) pos(p scanner.Position) Position {
	return Position{Filename: l.filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func (l *lowerer) addRule(name string, pos Position) *Rule {
	r := &Rule{name: name, elidable: IsElidableName(name), pos: pos}
	l.rules = append(l.rules, r)
	return r
}

// helper declares a fresh elidable rule named after the construct it replaces.
func (l *lowerer) helper(kind string, pos Position, alts []Alternative) Element {
	var name string
	for {
		l.counter++
		name = fmt.Sprintf("_%s_%d", kind, l.counter)
		if !l.names[name] {
			break
		}
	}
	l.names[name] = true
	r := l.addRule(name, pos)
	r.alts = alts
	return newReference(name, pos)
}

func (l *lowerer) alternatives(expr ebnf.Expression) []Alternative {
	if alt, ok := expr.(ebnf.Alternative); ok {
		alts := make([]Alternative, len(alt))
		for i, x := range alt {
			alts[i] = Alternative{elems: l.sequence(x)}
		}
		return alts
	}
	return []Alternative{{elems: l.sequence(expr)}}
}

func (l *lowerer) sequence(expr ebnf.Expression) []Element {
	if expr == nil {
		return []Element{newLiteral("", Position{})}
	}
	if seq, ok := expr.(ebnf.Sequence); ok {
		var elems []Element
		for _, x := range seq {
			elems = append(elems, l.item(x)...)
		}
		return elems
	}
	return l.item(expr)
}

func (l *lowerer) item(expr ebnf.Expression) []Element {
	switch e := expr.(type) {
	case *ebnf.Token:
		return []Element{newLiteral(e.String, l.pos(e.Pos()))}

	case *ebnf.Name:
		return []Element{newReference(e.String, l.pos(e.Pos()))}

	case ebnf.Sequence:
		return l.sequence(e)

	case ebnf.Alternative:
		return []Element{l.helper("GRP", l.pos(e.Pos()), l.alternatives(e))}

	case *ebnf.Group:
		if _, ok := e.Body.(ebnf.Alternative); ok {
			return []Element{l.helper("GRP", l.pos(e.Pos()), l.alternatives(e.Body))}
		}
		return l.sequence(e.Body)

	case *ebnf.Option:
		alts := append(l.alternatives(e.Body), Alternative{elems: []Element{newLiteral("", Position{})}})
		return []Element{l.helper("OPT", l.pos(e.Pos()), alts)}

	case *ebnf.Repetition:
		pos := l.pos(e.Pos())
		body := l.alternatives(e.Body)
		// the recursive reference is patched in once the helper's name is known
		ref := l.helper("REP", pos, nil)
		rule := l.rules[len(l.rules)-1]
		for i := range body {
			elems := append(body[i].elems[:len(body[i].elems):len(body[i].elems)], ref)
			rule.alts = append(rule.alts, Alternative{elems: elems})
		}
		rule.alts = append(rule.alts, Alternative{elems: []Element{newLiteral("", Position{})}})
		return []Element{ref}

	case *ebnf.Range:
		return []Element{l.charRange(e)}

	case *ebnf.Bad:
		l.issue(MalformedEBNF, l.pos(e.Pos()), "%s", e.Error)
		return nil

	default:
		l.issue(MalformedEBNF, l.pos(expr.Pos()), "unsupported expression %T", expr)
		return nil
	}
}

func (l *lowerer) charRange(e *ebnf.Range) Element {
	pos := l.pos(e.Pos())
	begin, n1 := utf8.DecodeRuneInString(e.Begin.String)
	end, n2 := utf8.DecodeRuneInString(e.End.String)
	if n1 != len(e.Begin.String) || n2 != len(e.End.String) || n1 == 0 || n2 == 0 || begin > end {
		l.issue(MalformedEBNF, pos, "invalid character range %q … %q", e.Begin.String, e.End.String)
		return newLiteral("", pos)
	}
	var alts []Alternative
	for r := begin; r <= end; r++ {
		alts = append(alts, Alternative{elems: []Element{newLiteral(string(r), pos)}})
	}
	return l.helper("RANGE", pos, alts)
}

// ebnfIssues converts the error list returned by ebnf.Parse into issues.
func ebnfIssues(err error) []Issue {
	var issues []Issue
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if e, ok := v.Index(i).Interface().(error); ok {
				issues = append(issues, Issue{Kind: MalformedEBNF, Message: e.Error()})
			}
		}
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Kind: MalformedEBNF, Message: err.Error()})
	}
	return issues
}
