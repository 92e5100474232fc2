package prefix

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/sparqled/sparql"
)

// Loader fetches the prefixes an endpoint declares with sh:prefix and
// sh:namespace.
type Loader struct {
	client *sparql.Client
	logger *slog.Logger
}

// NewLoader creates a prefix loader for the client's endpoint.
func NewLoader(client *sparql.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{client: client, logger: logger}
}

// Fetch returns the declared prefixes in endpoint order (ascending prefix).
// Bindings missing either variable are skipped.
func (l *Loader) Fetch(ctx context.Context) ([]Entry, error) {
	res, err := l.client.Select(ctx, sparql.KindPrefixes, sparql.PrefixesQuery())
	if err != nil {
		return nil, fmt.Errorf("fetch prefixes: %w", err)
	}

	entries := make([]Entry, 0, len(res.Bindings()))
	for _, b := range res.Bindings() {
		p, ns := b.Value("prefix"), b.Value("namespace")
		if !b.Has("prefix") || ns == "" {
			continue
		}
		entries = append(entries, Entry{Prefix: p, Namespace: ns})
	}
	return entries, nil
}

// Load merges the endpoint's prefixes into t and returns how many were
// merged. On failure t is left untouched.
func (l *Loader) Load(ctx context.Context, t *Table) (int, error) {
	entries, err := l.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Prefix] = e.Namespace
	}
	t.Merge(m)

	l.logger.Debug("Merged endpoint prefixes",
		"endpoint", l.client.Endpoint(),
		"count", len(entries),
		"total", t.Len())
	return len(entries), nil
}
