// Package editor binds a SPARQL endpoint's prefixes, term lists and
// example queries to a query editor widget.
//
// The widget itself (highlighting, result rendering, dialogs) lives outside
// this package; Widget describes what the binder needs from it. Buffer is an
// in-memory Widget used by the HTTP service, the CLI and tests.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/c360studio/sparqled/prefix"
)

// ErrNoExecutor is returned by Buffer.Run when no executor was configured.
var ErrNoExecutor = errors.New("no query executor configured")

// Response is a query result handed to the results view.
type Response struct {
	Data          string        `json:"data"`
	Status        int           `json:"status"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Widget is the query editor and results view.
type Widget interface {
	Value() string
	SetValue(query string)

	// AddPrefixes declares prefixes in the query. Keys the query already
	// declares are left alone.
	AddPrefixes(prefixes map[string]string)

	// CollapsePrefixes folds (true) or unfolds the prefix block.
	CollapsePrefixes(collapse bool)

	// Run executes the current query and delivers the outcome to
	// SetResponse.
	Run(ctx context.Context) error

	SetResponse(resp Response)
}

// ExecFunc executes a query for a Buffer.
type ExecFunc func(ctx context.Context, query string) (Response, error)

// Buffer is an in-memory Widget.
type Buffer struct {
	mu        sync.RWMutex
	value     string
	collapsed bool
	response  *Response
	exec      ExecFunc
}

var _ Widget = (*Buffer)(nil)

// NewBuffer creates a buffer holding query. exec may be nil when the
// buffer is never run.
func NewBuffer(query string, exec ExecFunc) *Buffer {
	return &Buffer{value: query, exec: exec}
}

func (b *Buffer) Value() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *Buffer) SetValue(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = query
}

// AddPrefixes inserts "PREFIX key: <iri>" lines after the prologue in
// ascending key order. A key already declared in the prologue is skipped,
// whatever IRI it is bound to.
func (b *Buffer) AddPrefixes(prefixes map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	declared := prefix.Declared(b.value)
	for _, key := range sortedKeys(prefixes) {
		if _, ok := declared[key]; ok {
			continue
		}
		b.value = prefix.InsertDeclaration(b.value, key, prefixes[key])
		declared[key] = prefixes[key]
	}
}

func (b *Buffer) CollapsePrefixes(collapse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collapsed = collapse
}

// Collapsed reports whether the prefix block is folded.
func (b *Buffer) Collapsed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.collapsed
}

// Run executes the buffer. Execution errors are also delivered to
// SetResponse with a zero status so the results view can show them.
func (b *Buffer) Run(ctx context.Context) error {
	if b.exec == nil {
		return ErrNoExecutor
	}
	resp, err := b.exec(ctx, b.Value())
	if err != nil {
		b.SetResponse(Response{Data: err.Error()})
		return err
	}
	b.SetResponse(resp)
	return nil
}

func (b *Buffer) SetResponse(resp Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.response = &resp
}

// Response returns the last response, if any.
func (b *Buffer) Response() (Response, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.response == nil {
		return Response{}, false
	}
	return *b.response, true
}
