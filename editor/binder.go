package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/sparqled/autocomplete"
	"github.com/c360studio/sparqled/examples"
	"github.com/c360studio/sparqled/metrics"
	"github.com/c360studio/sparqled/prefix"
	"github.com/c360studio/sparqled/sparql"
	"github.com/c360studio/sparqled/urlparams"
)

// Autocompleter names the forked providers replace.
const (
	baseClassCompleter    = "class"
	basePropertyCompleter = "property"
)

// Binder loads an endpoint's prefixes and examples and applies them to
// widgets.
type Binder struct {
	client        *sparql.Client
	prefixLoader  *prefix.Loader
	exampleLoader *examples.Loader
	local         *examples.LocalSource
	terms         *autocomplete.TermSource
	registry      *autocomplete.Registry
	metrics       *metrics.Metrics
	logger        *slog.Logger

	defaults      map[string]string
	remotePrefix  bool
	inlineCount   int
	termCacheSize int
	termCacheTTL  time.Duration

	mu       sync.RWMutex
	table    *prefix.Table
	examples []examples.Example
	panel    *examples.Panel
	remote   []examples.Example
	loaded   bool

	wg        sync.WaitGroup
	refreshMu sync.Mutex
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records prefix, example and query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Binder) {
		b.metrics = m
	}
}

// WithDefaults overrides or extends the built-in prefixes.
func WithDefaults(extra map[string]string) Option {
	return func(b *Binder) {
		for k, v := range extra {
			b.defaults[k] = v
		}
	}
}

// WithRemotePrefixes enables or disables the endpoint prefix fetch.
func WithRemotePrefixes(enabled bool) Option {
	return func(b *Binder) {
		b.remotePrefix = enabled
	}
}

// WithInlineCount sets how many examples are shown outside the modal.
func WithInlineCount(n int) Option {
	return func(b *Binder) {
		b.inlineCount = n
	}
}

// WithLocalExamples merges examples read from src after the endpoint's.
func WithLocalExamples(src *examples.LocalSource) Option {
	return func(b *Binder) {
		b.local = src
	}
}

// WithTermCache configures the autocomplete term cache.
func WithTermCache(size int, ttl time.Duration) Option {
	return func(b *Binder) {
		b.termCacheSize = size
		b.termCacheTTL = ttl
	}
}

// WithRegistry registers the VoID providers on an existing registry.
func WithRegistry(r *autocomplete.Registry) Option {
	return func(b *Binder) {
		if r != nil {
			b.registry = r
		}
	}
}

// New creates a binder and starts the prefix and example fetches in the
// background. Construction never fails because of the endpoint: until the
// fetches complete, or when they fail, the default prefixes apply and no
// examples are shown.
func New(ctx context.Context, client *sparql.Client, opts ...Option) *Binder {
	b := &Binder{
		client:       client,
		registry:     autocomplete.NewRegistry(),
		logger:       slog.Default(),
		defaults:     prefix.Defaults(),
		remotePrefix: true,
		inlineCount:  examples.DefaultInlineCount,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.prefixLoader = prefix.NewLoader(client, b.logger)
	b.exampleLoader = examples.NewLoader(client, b.logger)
	b.terms = autocomplete.NewTermSource(client, b.termCacheSize, b.termCacheTTL, b.logger)
	b.table = prefix.NewTable(b.defaults)
	b.metrics.SetPrefixes(b.table.Len())

	if err := b.registry.Replace(baseClassCompleter, autocomplete.ClassProvider(b.terms)); err != nil {
		b.logger.Warn("Failed to register class autocompleter", "error", err)
	}
	if err := b.registry.Replace(basePropertyCompleter, autocomplete.PropertyProvider(b.terms)); err != nil {
		b.logger.Warn("Failed to register property autocompleter", "error", err)
	}

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		if err := b.loadPrefixes(ctx); err != nil {
			b.logFetchFailure("Endpoint prefixes unavailable, using defaults", err)
		}
	}()
	go func() {
		defer b.wg.Done()
		if err := b.loadExamples(ctx); err != nil {
			b.logFetchFailure("Endpoint examples unavailable", err)
		}
	}()

	return b
}

// logFetchFailure logs transport and HTTP failures as warnings. Anything
// else is a malformed response body and only logged at debug level.
func (b *Binder) logFetchFailure(msg string, err error) {
	level := slog.LevelDebug
	if sparql.IsTransient(err) || sparql.IsFatal(err) {
		level = slog.LevelWarn
	}
	b.logger.Log(context.Background(), level, msg,
		"endpoint", b.client.Endpoint(),
		"error", err)
}

// Wait blocks until both initial fetches have finished.
func (b *Binder) Wait() {
	b.wg.Wait()
}

// Refresh re-runs both loaders concurrently and waits for them. Each
// loader keeps its previous state on failure; the first error is returned.
// It waits for the initial loads first so their late results cannot replace
// the refreshed state. Concurrent calls run one at a time.
func (b *Binder) Refresh(ctx context.Context) error {
	b.wg.Wait()

	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.loadPrefixes(gctx) })
	g.Go(func() error { return b.loadExamples(gctx) })
	err := g.Wait()
	b.terms.Invalidate()
	return err
}

// SetLocalExamples replaces the local examples, keeping the last endpoint
// examples ahead of them.
func (b *Binder) SetLocalExamples(local []examples.Example) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setExamplesLocked(b.remote, local)
}

func (b *Binder) loadPrefixes(ctx context.Context) error {
	if !b.remotePrefix {
		return nil
	}

	table := prefix.NewTable(b.defaults)
	n, err := b.prefixLoader.Load(ctx, table)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.table = table
	b.mu.Unlock()

	b.metrics.SetPrefixes(table.Len())
	b.logger.Info("Loaded endpoint prefixes",
		"endpoint", b.client.Endpoint(),
		"count", n,
		"total", table.Len())
	return nil
}

func (b *Binder) loadExamples(ctx context.Context) error {
	remote, fetchErr := b.exampleLoader.Fetch(ctx)

	var local []examples.Example
	if b.local != nil {
		var err error
		if local, err = b.local.Load(); err != nil {
			b.logger.Warn("Failed to load local examples",
				"dir", b.local.Dir(),
				"error", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if fetchErr != nil {
		// Keep what the previous fetch found.
		if b.loaded {
			remote = b.remote
		}
	}
	b.setExamplesLocked(remote, local)
	b.loaded = b.loaded || fetchErr == nil

	if fetchErr == nil {
		b.logger.Info("Loaded endpoint examples",
			"endpoint", b.client.Endpoint(),
			"count", len(remote),
			"local", len(local))
	}
	return fetchErr
}

func (b *Binder) setExamplesLocked(remote, local []examples.Example) {
	b.remote = remote
	all := make([]examples.Example, 0, len(remote)+len(local))
	all = append(all, remote...)
	all = append(all, local...)
	b.examples = all
	b.panel = examples.NewPanel(all, b.inlineCount)
	b.metrics.SetExamples(len(all))
}

// Client returns the endpoint client.
func (b *Binder) Client() *sparql.Client {
	return b.client
}

// Registry returns the autocomplete registry holding the VoID providers.
func (b *Binder) Registry() *autocomplete.Registry {
	return b.registry
}

// Table returns the current prefix table.
func (b *Binder) Table() *prefix.Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.table
}

// ResultPrefixes returns a copy of the merged prefix mapping for the
// results view.
func (b *Binder) ResultPrefixes() map[string]string {
	return b.Table().Map()
}

// Examples returns every example, endpoint ones first.
func (b *Binder) Examples() []examples.Example {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.examples
}

// Panel returns the example panel, or nil when there are no examples.
func (b *Binder) Panel() *examples.Panel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.panel
}

// InjectPrefixes declares every known prefix the widget's query uses but
// does not declare, and returns the keys that were added.
func (b *Binder) InjectPrefixes(w Widget) []string {
	before := w.Value()
	offered := prefix.NewInjector(b.Table()).Inject(before, w)

	declared := prefix.Declared(w.Value())
	previously := prefix.Declared(before)
	added := make([]string, 0, len(offered))
	for _, key := range offered {
		_, had := previously[key]
		if _, ok := declared[key]; ok && !had {
			added = append(added, key)
		}
	}

	b.metrics.AddInjected(len(added))
	if len(added) > 0 {
		b.logger.Debug("Injected prefixes", "prefixes", added)
	}
	return added
}

// AddAllPrefixes declares every known prefix in ascending order and folds
// the prefix block.
func (b *Binder) AddAllPrefixes(w Widget) {
	table := b.Table()
	for _, e := range table.Entries() {
		w.AddPrefixes(map[string]string{e.Prefix: e.Namespace})
	}
	w.CollapsePrefixes(true)
}

// UseExample replaces the widget's query with example i, injects the
// prefixes it needs and closes the modal.
func (b *Binder) UseExample(w Widget, i int) (examples.Example, error) {
	ex, err := b.Panel().Select(i)
	if err != nil {
		return examples.Example{}, err
	}
	w.SetValue(ex.Query)
	b.InjectPrefixes(w)
	return ex, nil
}

// UseExampleID loads the example with the given ID into w, like UseExample.
func (b *Binder) UseExampleID(w Widget, id string) (examples.Example, error) {
	ex, err := b.Panel().SelectID(id)
	if err != nil {
		return examples.Example{}, err
	}
	w.SetValue(ex.Query)
	b.InjectPrefixes(w)
	return ex, nil
}

// OpenExamples opens the examples modal and returns every entry it lists.
// It returns nil when no examples are loaded.
func (b *Binder) OpenExamples() []examples.Example {
	p := b.Panel()
	p.OpenModal()
	return p.All()
}

// Bootstrap applies the page's query string. When it carries a "query"
// parameter the widget is populated from it, prefixes are injected and the
// query runs once. It reports whether the query ran.
func (b *Binder) Bootstrap(ctx context.Context, w Widget, rawQuery string) (bool, error) {
	params := urlparams.Parse(rawQuery)
	query, ok := params.Get("query")
	if !ok {
		return false, nil
	}

	w.SetValue(query)
	b.InjectPrefixes(w)
	if err := w.Run(ctx); err != nil {
		return true, fmt.Errorf("run bootstrap query: %w", err)
	}
	return true, nil
}

// Run executes the widget's current query.
func (b *Binder) Run(ctx context.Context, w Widget) error {
	return w.Run(ctx)
}

// Execute runs query against the endpoint without the bookkeeping flag.
// It is the ExecFunc for buffers bound to this binder.
func (b *Binder) Execute(ctx context.Context, query string) (Response, error) {
	resp, err := b.client.Execute(ctx, query)
	if err != nil {
		b.metrics.ObserveQuery(0)
		return Response{}, err
	}
	b.metrics.ObserveQuery(resp.StatusCode)
	return Response{
		Data:          string(resp.Body),
		Status:        resp.StatusCode,
		ExecutionTime: resp.Elapsed,
	}, nil
}

// NewBuffer creates a buffer whose Run executes against the binder's
// endpoint.
func (b *Binder) NewBuffer(query string) *Buffer {
	return NewBuffer(query, b.Execute)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
