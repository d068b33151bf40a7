package channel

import (
	"sort"
	"sync"
)

// Registry is the explicit platformId -> adapter mapping. Channels are
// registered at process start; the pipeline only ever reads enabled state
// and capabilities. Mutation follows a single-writer discipline (the app
// wiring), reads are safe from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: map[string]Channel{}}
}

// Register adds or replaces the adapter under its own ID.
func (r *Registry) Register(ch Channel) {
	if ch == nil {
		return
	}
	r.mu.Lock()
	r.channels[ch.ID()] = ch
	r.mu.Unlock()
}

// Unregister removes the adapter; it reports whether one was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return false
	}
	delete(r.channels, id)
	return true
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all registered adapters ordered by ID for deterministic
// iteration.
func (r *Registry) List() []Channel {
	r.mu.RLock()
	out := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
