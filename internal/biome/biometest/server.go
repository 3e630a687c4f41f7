// Package biometest provides an in-process fake of the Biome service for tests.
package biometest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

// Step is one scripted answer of GET /jobs/{id}. A nil Result omits the field.
type Step struct {
	Status string
	Result any
}

// Request is a recorded call to the fake.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	sources   []map[string]any
	nextIDs   []string
	scripts   map[string][]Step
	polls     map[string]int
	overrides map[string]override
	requests  []Request
	seq       int
}

type override struct {
	status int
	body   string
}

// NewServer starts a fake with no sources and no jobs. It is closed when
// the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		scripts:   map[string][]Step{},
		polls:     map[string]int{},
		overrides: map[string]override{},
	}
	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/sources", s.handleSources)
	r.Post("/jobs/query", s.handleSubmit)
	r.Post("/jobs/scan", s.handleSubmit)
	r.Get("/jobs/{id}", s.handleJob)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetSources replaces the source listing. Order is the ranking returned by
// every /sources call.
func (s *Server) SetSources(sources ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = sources
}

// QueueJob makes the next submission return id, and scripts its status
// sequence. The last step repeats once the script is exhausted.
func (s *Server) QueueJob(id string, steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIDs = append(s.nextIDs, id)
	s.scripts[id] = steps
}

// Override answers method+path with a fixed status and raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// Polls returns how many times the status of id was requested.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

// Requests returns a copy of every recorded call.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Source builds a well-formed upstream record.
func Source(id, name, initials, purpose, baseURL string) map[string]any {
	m := map[string]any{
		"id": id,
		"content": map[string]any{
			"Web Page Descriptions": map[string]any{
				"name":     name,
				"initials": initials,
				"purpose":  purpose,
			},
			"Information on Links on Web Page": []any{
				map[string]any{"url": baseURL + "/data", "description": "Data portal"},
			},
		},
	}
	if baseURL != "" {
		m["base_url"] = baseURL
	}
	return m
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		ov, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(ov.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := append([]map[string]any{}, s.sources...)
	s.mu.Unlock()

	out := all
	if sqs := r.URL.Query().Get("simple_query_string"); sqs != "" {
		wanted := map[string]bool{}
		for _, p := range phrases(gjson.Get(sqs, "query").String()) {
			wanted[p] = true
		}
		out = out[:0:0]
		for _, src := range all {
			if wanted[sourceName(src)] {
				out = append(out, src)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

// phrases returns the quoted phrases of a simple_query_string query with
// their backslash escapes undone. Text outside quotes is ignored.
func phrases(q string) []string {
	var out []string
	var cur strings.Builder
	in, esc := false, false
	for _, r := range q {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case in && r == '\\':
			esc = true
		case r == '"':
			if in {
				out = append(out, cur.String())
				cur.Reset()
			}
			in = !in
		case in:
			cur.WriteRune(r)
		}
	}
	return out
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var id string
	if len(s.nextIDs) > 0 {
		id, s.nextIDs = s.nextIDs[0], s.nextIDs[1:]
	} else {
		s.seq++
		id = fmt.Sprintf("job-%d", s.seq)
		s.scripts[id] = []Step{{Status: "queued"}}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"job_id": id})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	script, ok := s.scripts[id]
	n := s.polls[id]
	s.polls[id] = n + 1
	s.mu.Unlock()
	if !ok || len(script) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "job not found"})
		return
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	step := script[n]
	resp := map[string]any{"status": step.Status}
	if step.Result != nil {
		resp["result"] = step.Result
	}
	writeJSON(w, http.StatusOK, resp)
}

func sourceName(src map[string]any) string {
	b, _ := json.Marshal(src)
	return gjson.GetBytes(b, `content.Web Page Descriptions.name`).String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
