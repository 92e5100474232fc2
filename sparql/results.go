package sparql

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is a single RDF term in the SPARQL 1.1 JSON results format.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Binding maps variable names to the terms bound in one solution.
type Binding map[string]Term

// Value returns the lexical value bound to name, or "" if unbound.
func (b Binding) Value(name string) string {
	return b[name].Value
}

// Has reports whether name is bound in this solution.
func (b Binding) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// Results is a decoded SPARQL JSON results document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`

	// Boolean is set for ASK results.
	Boolean *bool `json:"boolean,omitempty"`
}

// Bindings returns the solution sequence.
func (r *Results) Bindings() []Binding {
	if r == nil {
		return nil
	}
	return r.Results.Bindings
}

// ParseResults decodes a SPARQL JSON results document.
func ParseResults(body []byte) (*Results, error) {
	var res Results
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("parse sparql json results: %w", err)
	}
	return &res, nil
}

// ParseTermList parses a CSV term list as returned for a single-variable
// SELECT: lines are split on newlines, empty lines are dropped and the
// first remaining line (the header) is discarded.
func ParseTermList(body string) []string {
	lines := strings.Split(body, "\n")
	terms := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		terms = append(terms, line)
	}
	if len(terms) == 0 {
		return terms
	}
	return terms[1:]
}
