package ecs

// Removable is implemented by every component system so the Registry can
// bulk-remove an entity's rows on destroy.
type Removable interface {
	RemoveRecords(ids []EntityID)
}

// Registry tracks all component systems and supports bulk cleanup on entity destroy.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
	}
}

// Register adds a component system to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entities from every registered system.
func (r *Registry) RemoveAll(ids []EntityID) {
	for _, s := range r.stores {
		s.RemoveRecords(ids)
	}
}

func (r *Registry) Len() int { return len(r.stores) }
