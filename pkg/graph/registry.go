package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a pass from its initial properties
type Factory func(props Properties) (Pass, error)

// PassInfo describes a registered pass type
type PassInfo struct {
	Type        string
	Description string
	Create      Factory
}

// Registry maps pass type names to constructors. It is populated once at
// startup and read by every graph built afterwards.
type Registry struct {
	mu    sync.RWMutex
	infos map[string]PassInfo
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{infos: map[string]PassInfo{}}
}

// Register adds a pass type. Registering the same type twice is an error.
func (r *Registry) Register(info PassInfo) error {
	if info.Type == "" || info.Create == nil {
		return fmt.Errorf("graph: pass info needs a type and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.infos[info.Type]; exists {
		return fmt.Errorf("graph: pass type %q already registered", info.Type)
	}
	r.infos[info.Type] = info
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(info PassInfo) {
	if err := r.Register(info); err != nil {
		panic(err)
	}
}

// Create instantiates a pass of the given type
func (r *Registry) Create(passType string, props Properties) (Pass, error) {
	r.mu.RLock()
	info, ok := r.infos[passType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, passType)
	}
	if props == nil {
		props = Properties{}
	}
	pass, err := info.Create(props)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", passType, err)
	}
	return pass, nil
}

// Infos returns all registered pass types sorted by name
func (r *Registry) Infos() []PassInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]PassInfo, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}
