// Package sources holds the contract every external result source
// implements to produce canonical documents.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

// Transformer converts one raw payload into a canonical document. It must
// emit vocabulary movement names only and never include derived values
// (best lifts, totals, ranks, scores).
type Transformer interface {
	Name() string
	Convert(ctx context.Context, raw []byte) (*canonical.Document, error)
}

// Fetcher retrieves the raw payload identified by ref.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Source is a transformer that can also fetch its own input.
type Source interface {
	Transformer
	Fetcher
}

// TransformationError reports that a source could not be converted. No
// document is produced alongside it.
type TransformationError struct {
	Source string
	Err    error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("%s: transformation failed: %v", e.Source, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// Errorf builds a *TransformationError for source.
func Errorf(source, format string, args ...any) error {
	return &TransformationError{Source: source, Err: fmt.Errorf(format, args...)}
}

// Wrap wraps err as a *TransformationError unless it already is one.
func Wrap(source string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransformationError
	if errors.As(err, &te) {
		return err
	}
	return &TransformationError{Source: source, Err: err}
}

// Pull fetches ref and converts it. Any failure is a *TransformationError
// and yields a nil document.
func Pull(ctx context.Context, s Source, ref string) (*canonical.Document, error) {
	raw, err := s.Fetch(ctx, ref)
	if err != nil {
		return nil, Wrap(s.Name(), fmt.Errorf("fetching %s: %w", ref, err))
	}
	doc, err := s.Convert(ctx, raw)
	if err != nil {
		return nil, Wrap(s.Name(), err)
	}
	return doc, nil
}

// Registry maps source names to transformers.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Transformer
}

// NewRegistry registers ts; it panics on duplicate names.
func NewRegistry(ts ...Transformer) *Registry {
	r := &Registry{m: make(map[string]Transformer)}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds t under t.Name().
func (r *Registry) Register(t Transformer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[t.Name()]; ok {
		return fmt.Errorf("source %q already registered", t.Name())
	}
	r.m[t.Name()] = t
	return nil
}

// Get returns the transformer registered under name.
func (r *Registry) Get(name string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.m[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return t, nil
}

// Names lists registered sources in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.m))
	for n := range r.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
