package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dhamidi/bnf/ebnf/parse"
)

const pairGrammar = `<pair> ::= <key> "=" <key>
<key> ::= "a" | "b"
`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	s, err := NewServer(opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) (int, Response) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestCheck(t *testing.T) {
	ts := newTestServer(t)

	status, resp := post(t, ts, "/v1/check", CheckRequest{Grammar: pairGrammar})
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	want := []RuleInfo{
		{Name: "pair", Alternatives: 1},
		{Name: "key", Alternatives: 2},
		{Name: "EOL", Alternatives: 3, Elidable: true, Builtin: true},
	}
	if diff := cmp.Diff(want, resp.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	status, resp = post(t, ts, "/v1/check", CheckRequest{Grammar: "<a> ::= <kee>\n<key> ::= \"k\"\n"})
	if status != http.StatusUnprocessableEntity || resp.OK {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	wantIssues := []IssueInfo{{
		Kind:        "undefined-rule",
		Line:        1,
		Column:      9,
		Name:        "kee",
		Message:     "undefined rule <kee> referenced in <a>",
		Suggestions: []string{"key"},
	}}
	if diff := cmp.Diff(wantIssues, resp.Issues); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	ts := newTestServer(t)

	status, resp := post(t, ts, "/v1/parse", ParseRequest{
		CheckRequest: CheckRequest{Grammar: pairGrammar},
		Input:        "a=b",
	})
	if status != http.StatusOK || !resp.OK {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	if resp.Tree.Type != "pair" || len(resp.Tree.Children) != 3 {
		t.Fatalf("unexpected tree %+v", resp.Tree)
	}
	if got := resp.Tree.Children[1]; got.Type != parse.LiteralType || got.Text != "=" {
		t.Errorf("unexpected middle child %+v", got)
	}

	status, resp = post(t, ts, "/v1/parse", ParseRequest{
		CheckRequest: CheckRequest{Grammar: pairGrammar},
		Input:        "a=c",
	})
	if status != http.StatusUnprocessableEntity || resp.Error == nil {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	if diff := cmp.Diff([]string{"a", "b"}, resp.Error.Expected); diff != "" || resp.Error.Offset != 2 {
		t.Errorf("error %+v (-want +got expected):\n%s", resp.Error, diff)
	}
}

func TestParse_TrailingReportsFurthest(t *testing.T) {
	ts := newTestServer(t)

	status, resp := post(t, ts, "/v1/parse", ParseRequest{
		CheckRequest: CheckRequest{Grammar: `<s> ::= "a" "b" "c" | "a"`},
		Input:        "abd",
	})
	if status != http.StatusUnprocessableEntity || resp.Error == nil {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	want := ErrorInfo{Offset: 1, Furthest: 2, Line: 1, Column: 2, Trailing: true}
	got := *resp.Error
	got.Message = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EBNFAndRecursion(t *testing.T) {
	ts := newTestServer(t, WithMaxDepth(32))

	status, resp := post(t, ts, "/v1/parse", ParseRequest{
		CheckRequest: CheckRequest{Grammar: `List = "x" { "," "x" } .`, Syntax: "ebnf"},
		Input:        "x,x,x",
	})
	if status != http.StatusOK {
		t.Fatalf("status %d, response %+v", status, resp)
	}
	if n := len(resp.Tree.Children); n != 5 {
		t.Errorf("helper rules should be elided, got %d children", n)
	}

	status, resp = post(t, ts, "/v1/parse", ParseRequest{
		CheckRequest: CheckRequest{Grammar: `<A> ::= <A> "x" | "y"`},
		Input:        "yx",
	})
	if status != http.StatusUnprocessableEntity || resp.Error == nil || !resp.Error.Recursion {
		t.Fatalf("status %d, response %+v", status, resp)
	}
}

func TestBadRequest(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{"{", `{"grammar": 1}`, `{"grammar": "", "extra": true}`} {
		resp, err := http.Post(ts.URL+"/v1/check", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", body, resp.StatusCode)
		}
	}

	status, resp := post(t, ts, "/v1/check", CheckRequest{Grammar: pairGrammar, Syntax: "yacc"})
	if status != http.StatusUnprocessableEntity || len(resp.Issues) != 1 {
		t.Errorf("status %d, response %+v", status, resp)
	}
}

func TestMetricsAndCache(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		post(t, ts, "/v1/check", CheckRequest{Grammar: pairGrammar})
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(body)
	for _, want := range []string{
		`bnf_grammar_cache_total{result="hit"} 2`,
		`bnf_grammar_cache_total{result="miss"} 1`,
		`bnf_requests_total{endpoint="check",outcome="ok"} 3`,
		`bnf_grammar_cache_entries 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics do not contain %q:\n%s", want, text)
		}
	}
}
