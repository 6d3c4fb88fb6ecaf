package catalog

// Store exposes model lookups for the proxy and its HTTP handlers.
type Store interface {
	List() []Model
	FindByID(id string) (Model, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Model
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models.
// Later entries with a duplicate id are dropped.
func NewMemoryStore(items []Model) *MemoryStore {
	seen := make(map[string]struct{}, len(items))
	kept := make([]Model, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok || item.ID == "" {
			continue
		}
		seen[item.ID] = struct{}{}
		kept = append(kept, item)
	}
	return &MemoryStore{items: kept}
}

// List returns the catalog in declaration order.
func (s *MemoryStore) List() []Model {
	return append([]Model(nil), s.items...)
}

// FindByID looks up a model by identifier.
func (s *MemoryStore) FindByID(id string) (Model, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Model{}, false
}
