// Package repl implements an interactive loop that parses each entered line
// against a grammar and prints the resulting tree.
package repl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/format"
)

var log = commonlog.GetLogger("bnf.repl")

// stop is returned by commands that end the loop.
type stop struct{}

func (stop) Error() string { return "stop" }

type REPL struct {
	output      io.Writer
	table       *grammar.RuleTable
	start       string
	keepAll     bool
	maxDepth    int
	format      string
	historyPath string
	prompt      string
}

type Option func(*REPL)

func WithStart(rule string) Option { return func(r *REPL) { r.start = rule } }

func WithKeepAllRules(keep bool) Option { return func(r *REPL) { r.keepAll = keep } }

func WithMaxDepth(depth int) Option { return func(r *REPL) { r.maxDepth = depth } }

func WithFormat(name string) Option { return func(r *REPL) { r.format = name } }

// WithHistory sets the file the line history is read from and written to.
func WithHistory(path string) Option { return func(r *REPL) { r.historyPath = path } }

func New(table *grammar.RuleTable, output io.Writer, opts ...Option) *REPL {
	r := &REPL{
		output: output,
		table:  table,
		format: "tree",
		prompt: "bnf> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Loop reads lines until :quit, Ctrl+C or Ctrl+D.
func (r *REPL) Loop() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(r.complete)
	r.loadHistory(line)

	for {
		input, err := line.Prompt(r.prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Fprintln(r.output, "Exiting")
			break
		}
		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			break
		}

		if err := r.OneShot(input); err != nil {
			if _, ok := err.(stop); ok {
				break
			}
			fmt.Fprintln(r.output, "error:", err)
		}
		line.AppendHistory(input)
	}

	r.saveHistory(line)
}

// OneShot runs a single command or parses a single input line. Lines
// starting with ":" are commands; input that itself starts with a colon is
// written "::input" or ":parse input". Parse failures are returned for the
// caller to display.
func (r *REPL) OneShot(line string) error {
	trimmed := strings.TrimSpace(line)
	if escaped, ok := strings.CutPrefix(trimmed, "::"); ok {
		return r.parse(":" + escaped)
	}
	if cmd, args, ok := command(line); ok {
		switch cmd {
		case "parse":
			return r.parse(verbatim(trimmed[len(":parse"):]))
		case "start":
			return r.cmdStart(args)
		case "keep":
			return r.cmdKeep(args)
		case "format":
			return r.cmdFormat(args)
		case "rules":
			format.WriteRuleTable(r.output, r.table)
			return nil
		case "grammar":
			fmt.Fprint(r.output, r.table)
			return nil
		case "help", "?":
			return r.cmdHelp()
		case "quit", "exit":
			return stop{}
		default:
			return fmt.Errorf("unknown command :%s (try :help)", cmd)
		}
	}
	return r.parse(line)
}

func (r *REPL) parse(input string) error {
	tok, err := parse.Parse(r.table, r.start, input,
		parse.WithKeepAllRules(r.keepAll),
		parse.WithMaxDepth(r.maxDepth),
	)
	if err != nil {
		return err
	}
	enc, err := format.NewEncoder(r.format, r.output, input)
	if err != nil {
		return err
	}
	return enc.Encode(tok)
}

// verbatim strips the single separator that follows a command name.
func verbatim(rest string) string {
	if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		return rest[1:]
	}
	return rest
}

func command(line string) (string, []string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return "", nil, false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (r *REPL) cmdStart(args []string) error {
	if len(args) == 0 {
		start := r.start
		if start == "" {
			start = r.table.Start().Name()
		}
		fmt.Fprintf(r.output, "start rule: <%s>\n", start)
		return nil
	}
	name := strings.Trim(args[0], "<>")
	if _, ok := r.table.Lookup(name); !ok {
		return fmt.Errorf("unknown rule <%s>", name)
	}
	r.start = name
	log.Debugf("start rule set to <%s>", name)
	return nil
}

func (r *REPL) cmdKeep(args []string) error {
	if len(args) == 0 {
		r.keepAll = !r.keepAll
	} else {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			r.keepAll = true
		case "off", "false", "no":
			r.keepAll = false
		default:
			return fmt.Errorf("usage: :keep [on|off]")
		}
	}
	fmt.Fprintf(r.output, "keep all rules: %v\n", r.keepAll)
	return nil
}

func (r *REPL) cmdFormat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: :format %s", strings.Join(format.Names(), "|"))
	}
	if _, err := format.NewEncoder(args[0], io.Discard, ""); err != nil {
		return err
	}
	r.format = args[0]
	return nil
}

var commands = []struct {
	name string
	note string
}{
	{"<input>", "parse the line and print the tree"},
	{"::<input>", "parse input that starts with a colon"},
	{":parse <input>", "parse the rest of the line as is"},
	{":start [rule]", "show or set the start rule"},
	{":keep [on|off]", "toggle keeping elidable rules in the tree"},
	{":format name", "select the output format (" + strings.Join(format.Names(), ", ") + ")"},
	{":rules", "summarize the rules of the grammar"},
	{":grammar", "print the grammar"},
	{":help", "print this message (or :?)"},
	{":quit", "exit (or :exit, ctrl+c, ctrl+d)"},
}

func (r *REPL) cmdHelp() error {
	width := 0
	for _, c := range commands {
		width = max(width, len(c.name))
	}
	for _, c := range commands {
		fmt.Fprintf(r.output, "  %-*s  %s\n", width, c.name, c.note)
	}
	return nil
}

func (r *REPL) complete(line string) []string {
	if rest, ok := strings.CutPrefix(line, ":start "); ok {
		var out []string
		for _, name := range r.table.Names() {
			if strings.HasPrefix(name, strings.TrimPrefix(rest, "<")) {
				out = append(out, ":start "+name)
			}
		}
		return out
	}
	if !strings.HasPrefix(line, ":") {
		return nil
	}
	var out []string
	for _, c := range commands {
		name, _, _ := strings.Cut(c.name, " ")
		if strings.HasPrefix(name, line) && !strings.Contains(name, "<") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *REPL) loadHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Open(r.historyPath); err == nil {
		prompt.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Create(r.historyPath); err == nil {
		prompt.WriteHistory(f)
		f.Close()
	}
}
