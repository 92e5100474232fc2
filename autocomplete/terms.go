package autocomplete

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/c360studio/sparqled/sparql"
)

// TermSource fetches VoID class and property lists from an endpoint and
// caches successful results.
type TermSource struct {
	client *sparql.Client
	cache  *expirable.LRU[string, []string]
	logger *slog.Logger
}

// NewTermSource creates a term source. A negative cacheSize disables
// caching, zero means unbounded; a zero ttl never expires entries.
func NewTermSource(client *sparql.Client, cacheSize int, ttl time.Duration, logger *slog.Logger) *TermSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TermSource{client: client, logger: logger}
	if cacheSize >= 0 {
		s.cache = expirable.NewLRU[string, []string](cacheSize, nil, ttl)
	}
	return s
}

// Classes returns the distinct classes observed in the dataset. On failure
// the error is logged and an empty list returned.
func (s *TermSource) Classes(ctx context.Context) []string {
	return s.terms(ctx, sparql.KindClasses, sparql.ClassesQuery())
}

// Properties returns the distinct properties and link predicates observed
// in the dataset. On failure the error is logged and an empty list returned.
func (s *TermSource) Properties(ctx context.Context) []string {
	return s.terms(ctx, sparql.KindProperties, sparql.PropertiesQuery())
}

// Invalidate drops cached term lists.
func (s *TermSource) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *TermSource) terms(ctx context.Context, kind, query string) []string {
	key := s.client.Endpoint() + "#" + kind
	if s.cache != nil {
		if terms, ok := s.cache.Get(key); ok {
			return terms
		}
	}

	terms, err := s.client.SelectTerms(ctx, kind, query)
	if err != nil {
		s.logger.Error("Failed to fetch autocomplete terms",
			"kind", kind,
			"endpoint", s.client.Endpoint(),
			"error", err)
		return []string{}
	}

	if s.cache != nil {
		s.cache.Add(key, terms)
	}
	return terms
}

// ClassProvider returns the bulk provider for class completion.
func ClassProvider(s *TermSource) Provider {
	return Provider{
		Name: ClassProviderName,
		Bulk: true,
		Get: func(ctx context.Context, _ string) []string {
			return s.Classes(ctx)
		},
	}
}

// PropertyProvider returns the bulk provider for property completion.
func PropertyProvider(s *TermSource) Provider {
	return Provider{
		Name: PropertyProviderName,
		Bulk: true,
		Get: func(ctx context.Context, _ string) []string {
			return s.Properties(ctx)
		},
	}
}
