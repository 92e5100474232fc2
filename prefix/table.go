package prefix

import (
	"sort"
	"sync"
)

// Entry is one prefix declaration.
type Entry struct {
	Prefix    string `json:"prefix"`
	Namespace string `json:"namespace"`
}

// defaults are the prefixes known before the endpoint answers.
var defaults = []Entry{
	{"up", "http://purl.uniprot.org/core/"},
	{"keywords", "http://purl.uniprot.org/keywords/"},
	{"uniprotkb", "http://purl.uniprot.org/uniprot/"},
	{"taxon", "http://purl.uniprot.org/taxonomy/"},
	{"ec", "http://purl.uniprot.org/enzyme/"},
	{"rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{"rdfs", "http://www.w3.org/2000/01/rdf-schema#"},
	{"skos", "http://www.w3.org/2004/02/skos/core#"},
	{"owl", "http://www.w3.org/2002/07/owl#"},
	{"bibo", "http://purl.org/ontology/bibo/"},
	{"dc", "http://purl.org/dc/terms/"},
	{"xsd", "http://www.w3.org/2001/XMLSchema#"},
	{"faldo", "http://biohackathon.org/resource/faldo#"},
}

// Defaults returns a fresh copy of the built-in prefix mapping.
func Defaults() map[string]string {
	m := make(map[string]string, len(defaults))
	for _, e := range defaults {
		m[e.Prefix] = e.Namespace
	}
	return m
}

// Table is a concurrency-safe prefix to namespace mapping.
type Table struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewTable creates a table seeded with the given mapping.
func NewTable(seed map[string]string) *Table {
	t := &Table{entries: make(map[string]string, len(seed))}
	for k, v := range seed {
		t.entries[k] = v
	}
	return t
}

// DefaultTable creates a table seeded with Defaults.
func DefaultTable() *Table {
	return NewTable(Defaults())
}

// Set binds prefix to namespace, overwriting any previous binding.
func (t *Table) Set(prefix, namespace string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[prefix] = namespace
}

// Merge binds every entry of m, overwriting on conflict.
func (t *Table) Merge(m map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range m {
		t.entries[k] = v
	}
}

// Get returns the namespace bound to prefix.
func (t *Table) Get(prefix string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ns, ok := t.entries[prefix]
	return ns, ok
}

// Len returns the number of bound prefixes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Keys returns the prefixes in ascending order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns all bindings sorted by prefix.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for k, v := range t.entries {
		out = append(out, Entry{Prefix: k, Namespace: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// Map returns a copy of the mapping.
func (t *Table) Map() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		m[k] = v
	}
	return m
}
