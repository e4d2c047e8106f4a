package grammar

// Symbol is an occurrence of a rule name in BNF source.
type Symbol struct {
	Name       string
	Pos        Position // position of the opening <
	Definition bool     // the name starts a "<Name> ::=" declaration
}

// Len returns the length of the occurrence in the source, brackets included.
func (s Symbol) Len() int { return len(s.Name) + 2 }

// Symbols lists the rule names in BNF source in order of appearance. Unlike
// Compile it never fails: lines with errors contribute the names found before
// the error.
func Symbols(filename, text string) []Symbol {
	c := &compiler{filename: filename}
	var out []Symbol
	forEachLine(text, func(line string, offset, lineNo int) {
		tokens, _ := c.tokenize(line, offset, lineNo)
		for i, tok := range tokens {
			if tok.kind != tokName {
				continue
			}
			out = append(out, Symbol{
				Name:       tok.text,
				Pos:        tok.pos,
				Definition: i == 0 && len(tokens) > 1 && tokens[1].kind == tokDefine,
			})
		}
	})
	return out
}
