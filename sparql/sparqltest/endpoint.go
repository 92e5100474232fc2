// Package sparqltest provides a fake SPARQL endpoint for tests.
package sparqltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Example is an sh:SPARQLExecutable served by the fake endpoint.
type Example struct {
	ID      string
	Comment string
	Label   string
	Query   string
}

// Endpoint is a fake endpoint answering the editor's bookkeeping queries
// and user queries.
type Endpoint struct {
	*httptest.Server

	mu         sync.Mutex
	prefixes   map[string]string
	examples   []Example
	classes    []string
	properties []string
	status     map[string]int
	hits       map[string]int
	queries    []string
	holds      map[string]chan struct{}
}

// Kinds recognised by the fake endpoint.
const (
	KindPrefixes   = "prefixes"
	KindExamples   = "examples"
	KindClasses    = "class"
	KindProperties = "property"
	KindQuery      = "query"
)

// NewEndpoint starts a fake endpoint closed at test cleanup.
func NewEndpoint(t testing.TB) *Endpoint {
	t.Helper()
	e := &Endpoint{
		prefixes: make(map[string]string),
		status:   make(map[string]int),
		hits:     make(map[string]int),
		holds:    make(map[string]chan struct{}),
	}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Server.Close)
	return e
}

// SetPrefixes sets the declared prefixes.
func (e *Endpoint) SetPrefixes(m map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefixes = m
}

// SetExamples sets the published examples.
func (e *Endpoint) SetExamples(list ...Example) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.examples = list
}

// SetTerms sets the VoID class and property lists.
func (e *Endpoint) SetTerms(classes, properties []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.classes = classes
	e.properties = properties
}

// SetStatus makes requests of kind answer with status. 0 restores 200.
func (e *Endpoint) SetStatus(kind string, status int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[kind] = status
}

// Hold delays the response to the next request of kind until release is
// called. The response body is taken when the request arrives. Call release
// before the endpoint closes.
func (e *Endpoint) Hold(kind string) (release func()) {
	gate := make(chan struct{})
	e.mu.Lock()
	e.holds[kind] = gate
	e.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Hits returns how many requests of kind were received.
func (e *Endpoint) Hits(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[kind]
}

// Queries returns the user queries received, in order.
func (e *Endpoint) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func classify(r *http.Request) string {
	q := r.URL.Query()
	if q.Get("ac") != "1" {
		return KindQuery
	}
	text := q.Get("query")
	switch {
	case strings.Contains(text, "?prefix ?namespace"):
		return KindPrefixes
	case strings.Contains(text, "?sq"):
		return KindExamples
	case strings.Contains(text, "?class"):
		return KindClasses
	case strings.Contains(text, "?property"):
		return KindProperties
	}
	return KindQuery
}

func (e *Endpoint) serve(w http.ResponseWriter, r *http.Request) {
	kind := classify(r)

	e.mu.Lock()
	gate := e.holds[kind]
	delete(e.holds, kind)
	e.mu.Unlock()

	if gate == nil {
		e.respond(w, r, kind)
		return
	}

	rec := httptest.NewRecorder()
	e.respond(rec, r, kind)
	select {
	case <-gate:
	case <-r.Context().Done():
		return
	}
	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	w.Write(rec.Body.Bytes())
}

func (e *Endpoint) respond(w http.ResponseWriter, r *http.Request, kind string) {
	e.mu.Lock()
	e.hits[kind]++
	if kind == KindQuery {
		e.queries = append(e.queries, r.URL.Query().Get("query"))
	}
	status := e.status[kind]
	e.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte("fake endpoint error"))
		return
	}

	switch kind {
	case KindPrefixes:
		e.writePrefixes(w)
	case KindExamples:
		e.writeExamples(w)
	case KindClasses:
		e.writeTerms(w, "class", e.snapshot(func() []string { return e.classes }))
	case KindProperties:
		e.writeTerms(w, "property", e.snapshot(func() []string { return e.properties }))
	default:
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{"head":{"vars":["s"]},"results":{"bindings":[]}}`))
	}
}

func (e *Endpoint) snapshot(get func() []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), get()...)
}

type term struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]term `json:"bindings"`
	} `json:"results"`
}

func (e *Endpoint) writePrefixes(w http.ResponseWriter) {
	e.mu.Lock()
	keys := make([]string, 0, len(e.prefixes))
	for k := range e.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res results
	res.Head.Vars = []string{"prefix", "namespace"}
	res.Results.Bindings = make([]map[string]term, 0, len(keys))
	for _, k := range keys {
		res.Results.Bindings = append(res.Results.Bindings, map[string]term{
			"prefix":    {Type: "literal", Value: k},
			"namespace": {Type: "uri", Value: e.prefixes[k]},
		})
	}
	e.mu.Unlock()

	writeJSON(w, res)
}

func (e *Endpoint) writeExamples(w http.ResponseWriter) {
	e.mu.Lock()
	list := append([]Example(nil), e.examples...)
	e.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	var res results
	res.Head.Vars = []string{"sq", "comment", "label", "query"}
	res.Results.Bindings = make([]map[string]term, 0, len(list))
	for _, ex := range list {
		b := map[string]term{
			"sq":    {Type: "uri", Value: ex.ID},
			"query": {Type: "literal", Value: ex.Query},
		}
		if ex.Comment != "" {
			b["comment"] = term{Type: "literal", Value: ex.Comment}
		}
		if ex.Label != "" {
			b["label"] = term{Type: "literal", Value: ex.Label}
		}
		res.Results.Bindings = append(res.Results.Bindings, b)
	}

	writeJSON(w, res)
}

func (e *Endpoint) writeTerms(w http.ResponseWriter, header string, terms []string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Write([]byte(header + "\r\n" + strings.Join(terms, "\r\n") + "\r\n"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/sparql-results+json")
	json.NewEncoder(w).Encode(v)
}
