// Package autocomplete provides bulk term providers for the query editor's
// class and property completion, backed by the endpoint's VoID statistics.
package autocomplete

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Provider names registered by the editor.
const (
	ClassProviderName    = "voidClass"
	PropertyProviderName = "voidProperty"
)

// GetFunc fetches completion candidates for a token. Bulk providers ignore
// the token and return every candidate.
type GetFunc func(ctx context.Context, token string) []string

// Provider is an autocompletion source registered with the editor.
type Provider struct {
	Name string
	Bulk bool
	Get  GetFunc
}

// Registry holds the active providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		_ = r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same name.
func (r *Registry) Register(p Provider) error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if p.Get == nil {
		return fmt.Errorf("provider %s has no Get function", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.providers[p.Name] = p
	return nil
}

// Replace registers p and removes the provider it supersedes.
func (r *Registry) Replace(old string, p Provider) error {
	if err := r.Register(p); err != nil {
		return err
	}
	if old != p.Name {
		r.Remove(old)
	}
	return nil
}

// Remove unregisters a provider. Unknown names are ignored.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return
	}
	delete(r.providers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Filter returns the terms matching token, case-insensitively, in their
// input order. A token containing "/" or "#" is matched as a prefix of the
// full IRI; any other token is matched against the local name only. An
// empty token returns all terms.
func Filter(terms []string, token string) []string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return terms
	}
	iriPrefix := strings.ContainsAny(token, "/#")
	out := make([]string, 0)
	for _, t := range terms {
		lower := strings.ToLower(t)
		if iriPrefix {
			if strings.HasPrefix(lower, token) {
				out = append(out, t)
			}
			continue
		}
		if strings.Contains(LocalName(lower), token) {
			out = append(out, t)
		}
	}
	return out
}

// LocalName returns the part of an IRI after its last "#" or "/".
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
