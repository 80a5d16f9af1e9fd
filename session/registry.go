package session

import "sync"

// Registry is a ServiceLocator backed by a map.
type Registry struct {
	mu       sync.RWMutex
	services map[string]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]interface{})}
}

// Register stores service under key, replacing any previous value.
func (r *Registry) Register(key string, service interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[key] = service
}

// Service implements ServiceLocator.
func (r *Registry) Service(key string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[key]
	return svc, ok
}
