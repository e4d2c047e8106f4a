package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type change struct {
	Path    string
	Removed bool
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bnf")
	b := filepath.Join(dir, "b.bnf")
	if err := os.WriteFile(a, []byte(`<a> ::= "x"`), 0o644); err != nil {
		t.Fatal(err)
	}

	var got []change
	w := NewFileWatcher([]string{a, b}, func(path string, removed bool) {
		got = append(got, change{path, removed})
	})
	w.record()

	w.scan()
	if len(got) != 0 {
		t.Fatalf("unchanged files reported: %v", got)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(a, later, later); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte(`<b> ::= "y"`), 0o644); err != nil {
		t.Fatal(err)
	}
	w.scan()
	w.scan()

	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	w.scan()

	want := []change{
		{a, false},
		{b, false},
		{a, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestWatched(t *testing.T) {
	w := NewFileWatcher([]string{"grammars/./lang.bnf"}, func(string, bool) {})
	if !w.watched("grammars/lang.bnf") {
		t.Error("cleaned path should be watched")
	}
	if w.watched("grammars/other.bnf") {
		t.Error("sibling file should not be watched")
	}
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lang.bnf")
	if err := os.WriteFile(path, []byte(`<a> ::= "x"`), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewFileWatcher([]string{path}, func(string, bool) {})
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Stop()
	w.Stop()
}
