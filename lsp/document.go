package lsp

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/bnf/ebnf/grammar"
)

// Document is an open grammar file and the result of compiling it.
type Document struct {
	URI     string
	Text    string
	Table   *grammar.RuleTable // nil when the grammar has errors
	Err     error
	Symbols []grammar.Symbol // empty for EBNF documents
}

// Analyze compiles text. Files ending in .ebnf are read as Go EBNF, all
// others as BNF.
func Analyze(uri, text string) *Document {
	doc := &Document{URI: uri, Text: text}
	path, err := uriToPath(uri)
	if err != nil {
		path = uri
	}
	if filepath.Ext(path) == ".ebnf" {
		doc.Table, doc.Err = grammar.ParseEBNF(filepath.Base(path), strings.NewReader(text))
		return doc
	}
	doc.Table, doc.Err = grammar.Parse(filepath.Base(path), strings.NewReader(text))
	doc.Symbols = grammar.Symbols(filepath.Base(path), text)
	return doc
}

// Diagnostics converts compile errors into LSP diagnostics. A document that
// compiled yields an empty, non-nil slice so that stale diagnostics are
// cleared.
func (d *Document) Diagnostics() []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	if d.Err == nil {
		return diags
	}
	severity := protocol.DiagnosticSeverityError
	source := lsName

	var serr *grammar.SyntaxError
	if !errors.As(d.Err, &serr) {
		return append(diags, protocol.Diagnostic{
			Range:    protocol.Range{},
			Severity: &severity,
			Source:   &source,
			Message:  d.Err.Error(),
		})
	}
	for _, issue := range serr.Issues {
		length := 1
		if issue.Name != "" {
			length = len(issue.Name) + 2
		} else if issue.Pos.Offset < len(d.Text) {
			_, length = utf8.DecodeRuneInString(d.Text[issue.Pos.Offset:])
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    d.rangeAt(issue.Pos, length),
			Severity: &severity,
			Source:   &source,
			Message:  issue.Detail(),
		})
	}
	return diags
}

// Completions returns rule names for a reference being typed at the given
// position, that is after an unclosed "<" on the same line.
func (d *Document) Completions(line, character int) []protocol.CompletionItem {
	offset, ok := offsetAt(d.Text, line, character)
	if !ok {
		return nil
	}
	prefix, ok := referencePrefix(d.Text[strings.LastIndexByte(d.Text[:offset], '\n')+1 : offset])
	if !ok {
		return nil
	}
	kind := protocol.CompletionItemKindReference
	var items []protocol.CompletionItem
	for _, name := range d.ruleNames() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		detail := "rule"
		if grammar.IsElidableName(name) {
			detail = "elidable rule"
		}
		insert := name + ">"
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}
	return items
}

// ruleNames lists declared names in source order followed by EOL, which is
// always available.
func (d *Document) ruleNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if d.Table != nil {
		for _, r := range d.Table.Rules() {
			add(r.Name())
		}
		return names
	}
	for _, s := range d.Symbols {
		if s.Definition {
			add(s.Name)
		}
	}
	add(grammar.EOL)
	return names
}

// Definition returns the declaration of the rule referenced at the given
// position, or nil.
func (d *Document) Definition(line, character int) *protocol.Location {
	offset, ok := offsetAt(d.Text, line, character)
	if !ok {
		return nil
	}
	var name string
	for _, s := range d.Symbols {
		if offset >= s.Pos.Offset && offset < s.Pos.Offset+s.Len() {
			name = s.Name
			break
		}
	}
	if name == "" {
		return nil
	}
	for _, s := range d.Symbols {
		if s.Definition && s.Name == name {
			return &protocol.Location{URI: d.URI, Range: d.rangeAt(s.Pos, s.Len())}
		}
	}
	return nil
}

// referencePrefix returns the partial rule name after an unclosed "<" at the
// end of before.
func referencePrefix(before string) (string, bool) {
	open := strings.LastIndexByte(before, '<')
	if open < 0 || strings.ContainsAny(before[open:], "> \"'") {
		return "", false
	}
	return before[open+1:], true
}

// rangeAt spans length bytes of the document starting at pos.
func (d *Document) rangeAt(pos grammar.Position, length int) protocol.Range {
	if !pos.IsValid() {
		return protocol.Range{}
	}
	return protocol.Range{
		Start: positionAt(d.Text, pos.Offset),
		End:   positionAt(d.Text, pos.Offset+length),
	}
}

// positionAt converts a byte offset in text into an LSP position, whose
// character counts UTF-16 code units.
func positionAt(text string, offset int) protocol.Position {
	offset = min(max(offset, 0), len(text))
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	units := 0
	for _, r := range text[lineStart:offset] {
		units += utf16.RuneLen(r)
	}
	return protocol.Position{
		Line:      protocol.UInteger(strings.Count(text[:offset], "\n")),
		Character: protocol.UInteger(units),
	}
}

// offsetAt converts an LSP position into a byte offset in text. A character
// past the end of the line selects the end of the line. It reports false if
// the line does not exist.
func offsetAt(text string, line, character int) (int, bool) {
	if line < 0 {
		return 0, false
	}
	start := 0
	for ; line > 0; line-- {
		next := strings.IndexByte(text[start:], '\n')
		if next < 0 {
			return 0, false
		}
		start += next + 1
	}
	end := len(text)
	if next := strings.IndexByte(text[start:], '\n'); next >= 0 {
		end = start + next
	}
	end = start + len(strings.TrimSuffix(text[start:end], "\r"))
	units := 0
	for i, r := range text[start:end] {
		if units >= character {
			return start + i, true
		}
		units += utf16.RuneLen(r)
	}
	return end, true
}

// Documents holds the open documents by URI.
type Documents struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]*Document)}
}

// Update analyzes text and stores the result under uri.
func (ds *Documents) Update(uri, text string) *Document {
	doc := Analyze(uri, text)
	ds.mu.Lock()
	ds.docs[uri] = doc
	ds.mu.Unlock()
	return doc
}

func (ds *Documents) Get(uri string) *Document {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.docs[uri]
}

func (ds *Documents) Remove(uri string) {
	ds.mu.Lock()
	delete(ds.docs, uri)
	ds.mu.Unlock()
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}
