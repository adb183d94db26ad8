package relay

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-process Registry used when no database is
// configured. Names keep insertion order.
type MemoryRegistry struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	names []string
}

func NewMemoryRegistry(seed ...string) *MemoryRegistry {
	r := &MemoryRegistry{seen: make(map[string]struct{})}
	for _, name := range seed {
		r.Add(context.Background(), name)
	}
	return r
}

func (r *MemoryRegistry) Add(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[name]; ok {
		return nil
	}
	r.seen[name] = struct{}{}
	r.names = append(r.names, name)
	return nil
}

func (r *MemoryRegistry) Names(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...), nil
}
