package collectors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry manages a set of named producers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	producers map[string]Producer
	statuses  map[string]*ProducerStatus
	order     []string
}

// NewRegistry returns an empty registry ready for producer registration.
func NewRegistry() *Registry {
	return &Registry{
		producers: make(map[string]Producer),
		statuses:  make(map[string]*ProducerStatus),
	}
}

// Register adds a producer to the registry. It returns an error if a
// producer with the same name is already registered.
func (r *Registry) Register(p Producer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.producers[name]; exists {
		return fmt.Errorf("producer %q already registered", name)
	}

	r.producers[name] = p
	r.statuses[name] = &ProducerStatus{
		Name:    name,
		State:   "registered",
		Healthy: true,
	}
	r.order = append(r.order, name)
	return nil
}

// Get returns the producer with the given name, or false if not found.
func (r *Registry) Get(name string) (Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.producers[name]
	return p, ok
}

// List returns a sorted slice of all registered producer names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.producers))
	for name := range r.producers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// producersInOrder returns producers in registration order.
func (r *Registry) producersInOrder() []Producer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Producer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.producers[name])
	}
	return out
}

// Status returns a copy of the runtime status for the named producer, or
// false if the producer is not registered.
func (r *Registry) Status(name string) (ProducerStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.statuses[name]
	if !ok {
		return ProducerStatus{}, false
	}
	return *s, true
}

// AllStatus returns a copy of all producer statuses, sorted by name.
func (r *Registry) AllStatus() []ProducerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProducerStatus, 0, len(r.statuses))
	for _, s := range r.statuses {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// updateStatus updates the status entry for the named producer. Caller must
// NOT hold the lock; this method acquires it.
func (r *Registry) updateStatus(name string, fn func(s *ProducerStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.statuses[name]; ok {
		fn(s)
	}
}

// reporter binds a Reporter to one registry entry.
type reporter struct {
	reg  *Registry
	name string
	now  func() time.Time
}

func (rp *reporter) Updated() {
	t := rp.now()
	rp.reg.updateStatus(rp.name, func(s *ProducerStatus) {
		s.Updates++
		s.LastUpdate = t
		s.Healthy = true
	})
}

func (rp *reporter) Failed(err error) {
	rp.reg.updateStatus(rp.name, func(s *ProducerStatus) {
		s.Failures++
		s.Healthy = false
		if err != nil {
			s.LastError = err.Error()
		}
	})
}

func (rp *reporter) SetState(state string) {
	rp.reg.updateStatus(rp.name, func(s *ProducerStatus) {
		s.State = state
	})
}

// Reporter returns a Reporter that records progress for the named producer.
func (r *Registry) Reporter(name string) Reporter {
	return &reporter{reg: r, name: name, now: time.Now}
}
