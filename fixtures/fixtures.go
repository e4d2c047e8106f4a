// Package fixtures loads grammar scenarios from YAML files and checks them
// against the parser.
//
// A fixture names a grammar, either a file next to it or inline source, and
// a list of cases. Each case parses one input and states what the result must
// look like: the exact tree, an ordered outline of tokens the tree contains,
// or the failure it must produce.
package fixtures

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/format"
)

var log = commonlog.GetLogger("bnf.fixtures")

//go:embed languages
var languages embed.FS

type Fixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Grammar     string `yaml:"grammar,omitempty"` // grammar file relative to the fixture
	Source      string `yaml:"source,omitempty"`  // inline BNF, instead of Grammar
	Start       string `yaml:"start,omitempty"`
	MaxDepth    int    `yaml:"max_depth,omitempty"`
	Cases       []Case `yaml:"cases"`

	Path  string             `yaml:"-"`
	Table *grammar.RuleTable `yaml:"-"`
}

type Case struct {
	Name         string         `yaml:"name"`
	Input        string         `yaml:"input"`
	KeepAllRules bool           `yaml:"keep_all_rules,omitempty"`
	Tree         string         `yaml:"tree,omitempty"`
	Contains     []string       `yaml:"contains,omitempty"`
	Error        *ExpectedError `yaml:"error,omitempty"`
}

// ExpectedError describes a failure a case must produce. Unset fields are
// not checked.
type ExpectedError struct {
	Offset    *int     `yaml:"offset,omitempty"`
	Trailing  bool     `yaml:"trailing,omitempty"`
	Expected  []string `yaml:"expected,omitempty"`
	Recursion bool     `yaml:"recursion,omitempty"`
}

// Builtin returns the fixtures shipped with the module.
func Builtin() ([]*Fixture, error) {
	sub, err := fs.Sub(languages, "languages")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir loads every *.yaml fixture in dir.
func LoadDir(dir string) ([]*Fixture, error) {
	return LoadFS(os.DirFS(dir))
}

func LoadFS(fsys fs.FS) ([]*Fixture, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var out []*Fixture
	for _, name := range names {
		f, err := LoadFixture(fsys, name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// LoadFixture reads one fixture and compiles its grammar.
func LoadFixture(fsys fs.FS, name string) (*Fixture, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	f.Path = name
	if f.Name == "" {
		f.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	f.Table, err = f.compile(fsys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Debugf("loaded fixture %s with %d cases", f.Name, len(f.Cases))
	return &f, nil
}

func (f *Fixture) compile(fsys fs.FS) (*grammar.RuleTable, error) {
	switch {
	case f.Source != "" && f.Grammar != "":
		return nil, errors.New("grammar and source are mutually exclusive")
	case f.Source != "":
		return grammar.Parse(f.Path, strings.NewReader(f.Source))
	case f.Grammar != "":
		file := path.Join(path.Dir(f.Path), f.Grammar)
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		if path.Ext(file) == ".ebnf" {
			return grammar.ParseEBNF(f.Grammar, bytes.NewReader(data))
		}
		return grammar.Parse(f.Grammar, bytes.NewReader(data))
	default:
		return nil, errors.New("no grammar given")
	}
}

// Result is the outcome of one case.
type Result struct {
	Fixture string
	Case    string
	Err     error // nil when the case passed
}

func (r Result) Passed() bool { return r.Err == nil }

func (r Result) String() string {
	if r.Passed() {
		return fmt.Sprintf("ok   %s/%s", r.Fixture, r.Case)
	}
	return fmt.Sprintf("FAIL %s/%s: %s", r.Fixture, r.Case, r.Err)
}

// Run checks every case of f.
func (f *Fixture) Run() []Result {
	results := make([]Result, 0, len(f.Cases))
	for _, c := range f.Cases {
		results = append(results, Result{Fixture: f.Name, Case: c.Name, Err: f.RunCase(c)})
	}
	return results
}

// RunCase parses the case input and reports the first expectation it misses.
func (f *Fixture) RunCase(c Case) error {
	tok, err := parse.Parse(f.Table, f.Start, c.Input,
		parse.WithKeepAllRules(c.KeepAllRules),
		parse.WithMaxDepth(f.MaxDepth),
	)
	if c.Error != nil {
		return c.Error.check(tok, err)
	}
	if err != nil {
		return fmt.Errorf("unexpected failure: %w", err)
	}
	if c.Tree != "" {
		if got := format.Tree(tok); got != c.Tree {
			return &TreeMismatch{Want: c.Tree, Got: got}
		}
	}
	if len(c.Contains) > 0 {
		if missing, ok := containsOutline(tok, c.Contains); !ok {
			return fmt.Errorf("tree has no %q after the preceding entries:\n%s", missing, format.Tree(tok))
		}
	}
	return nil
}

func (e *ExpectedError) check(tok *parse.Token, err error) error {
	if err == nil {
		return fmt.Errorf("expected a failure, got:\n%s", format.Tree(tok))
	}
	if e.Recursion {
		if !errors.Is(err, parse.ErrRecursionLimit) {
			return fmt.Errorf("expected the recursion limit to be hit, got: %v", err)
		}
		return nil
	}
	var perr *parse.Error
	if !errors.As(err, &perr) {
		return fmt.Errorf("expected a parse error, got: %v", err)
	}
	if e.Offset != nil && perr.Pos.Offset != *e.Offset {
		return fmt.Errorf("failed at offset %d, want %d: %v", perr.Pos.Offset, *e.Offset, err)
	}
	if perr.Trailing != e.Trailing {
		return fmt.Errorf("trailing=%v, want %v: %v", perr.Trailing, e.Trailing, err)
	}
	if len(e.Expected) > 0 && !slices.Equal(perr.Expected, e.Expected) {
		return fmt.Errorf("expected literals %q, want %q", perr.Expected, e.Expected)
	}
	return nil
}

// containsOutline reports whether the pre-order token sequence of root holds
// every entry of outline in order. An entry is a token type, optionally
// followed by "=" and the exact content of the token. On failure it returns
// the first entry that could not be found.
func containsOutline(root *parse.Token, outline []string) (string, bool) {
	i := 0
	root.Walk(func(t *parse.Token) bool {
		if i < len(outline) && entryMatches(outline[i], t) {
			i++
		}
		return i < len(outline)
	})
	if i < len(outline) {
		return outline[i], false
	}
	return "", true
}

func entryMatches(entry string, t *parse.Token) bool {
	typ, content, hasContent := strings.Cut(entry, "=")
	if t.Type != typ {
		return false
	}
	return !hasContent || t.Content() == content
}
