// Package server exposes grammar checking and parsing over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/bnf/ebnf/grammar"
	"github.com/dhamidi/bnf/ebnf/parse"
	"github.com/dhamidi/bnf/format"
)

var log = commonlog.GetLogger("bnf.server")

const (
	DefaultCacheSize = 128

	// maxBodySize bounds request bodies.
	maxBodySize = 4 << 20
)

type Option func(*Server)

// WithCacheSize sets how many compiled grammars are kept. Values below 1
// select DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(s *Server) { s.cacheSize = n }
}

func WithMaxDepth(depth int) Option {
	return func(s *Server) { s.maxDepth = depth }
}

// WithRegistry registers the server metrics with reg instead of a private
// registry. /metrics serves whatever reg gathers.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

type Server struct {
	mux       *http.ServeMux
	tables    *lru.Cache[uint64, *grammar.RuleTable]
	metrics   *collectors
	registry  *prometheus.Registry
	cacheSize int
	maxDepth  int
}

func NewServer(opts ...Option) (*Server, error) {
	s := &Server{mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize < 1 {
		s.cacheSize = DefaultCacheSize
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	tables, err := lru.New[uint64, *grammar.RuleTable](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create grammar cache: %w", err)
	}
	s.tables = tables

	s.metrics = newCollectors(tables.Len)
	if err := s.metrics.register(s.registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	s.mux.HandleFunc("POST /v1/check", s.handleCheck)
	s.mux.HandleFunc("POST /v1/parse", s.handleParse)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !s.decode(w, r, "check", &req) {
		return
	}
	table, err := s.compile(req)
	if err != nil {
		s.reply(w, "check", http.StatusUnprocessableEntity, Response{Issues: issuesOf(err)})
		return
	}
	s.reply(w, "check", http.StatusOK, Response{OK: true, Rules: rulesOf(table)})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !s.decode(w, r, "parse", &req) {
		return
	}
	table, err := s.compile(req.CheckRequest)
	if err != nil {
		s.reply(w, "parse", http.StatusUnprocessableEntity, Response{Issues: issuesOf(err)})
		return
	}

	began := time.Now()
	tok, err := parse.Parse(table, req.Start, req.Input,
		parse.WithKeepAllRules(req.KeepAllRules),
		parse.WithMaxDepth(s.maxDepth),
	)
	s.metrics.parseDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		s.reply(w, "parse", http.StatusUnprocessableEntity, Response{Error: errorOf(err)})
		return
	}
	s.reply(w, "parse", http.StatusOK, Response{OK: true, Tree: format.TokenToNode(tok, req.Input)})
}

// compile returns the rule table for req, compiling it on a cache miss.
// Grammars that fail to compile are not cached.
func (s *Server) compile(req CheckRequest) (*grammar.RuleTable, error) {
	syntax := strings.ToLower(req.Syntax)
	if syntax == "" {
		syntax = "bnf"
	}
	key := xxhash.Sum64String(syntax + "\x00" + req.Grammar)
	if table, ok := s.tables.Get(key); ok {
		s.metrics.cache.WithLabelValues("hit").Inc()
		return table, nil
	}
	s.metrics.cache.WithLabelValues("miss").Inc()

	var table *grammar.RuleTable
	var err error
	switch syntax {
	case "bnf":
		table, err = grammar.Parse("grammar.bnf", strings.NewReader(req.Grammar))
	case "ebnf":
		table, err = grammar.ParseEBNF("grammar.ebnf", strings.NewReader(req.Grammar))
	default:
		return nil, fmt.Errorf("unknown grammar syntax %q", req.Syntax)
	}
	if err != nil {
		return nil, err
	}
	s.tables.Add(key, table)
	log.Debugf("cached grammar %016x with %d rules", key, table.Len())
	return table, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, endpoint string, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.metrics.requests.WithLabelValues(endpoint, "bad_request").Inc()
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, endpoint string, status int, resp Response) {
	outcome := "ok"
	if !resp.OK {
		outcome = "rejected"
	}
	s.metrics.requests.WithLabelValues(endpoint, outcome).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("write %s response: %s", endpoint, err)
	}
}
