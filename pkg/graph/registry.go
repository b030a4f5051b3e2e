package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kursio/weft/pkg/domain"
)

// Registry is an in-memory ports.GraphSource keyed by graph name.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]*domain.Graph
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{graphs: make(map[string]*domain.Graph)}
}

// Register stores a parsed graph under name, replacing any previous entry.
func (r *Registry) Register(name string, g *domain.Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[name] = g
}

// RegisterFile loads a graph file and registers it under name.
func (r *Registry) RegisterFile(name, path string) error {
	g, err := LoadFile(path)
	if err != nil {
		return err
	}
	r.Register(name, g)
	return nil
}

// Graph returns the graph registered under name.
func (r *Registry) Graph(name string) (*domain.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[name]
	if !ok {
		return nil, fmt.Errorf("graph not registered: %s", name)
	}
	return g, nil
}

// Names lists the registered graph names in sorted order.
func (r *Registry) Names() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.graphs))
	for name := range r.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
