package catalog

import "sync"

// store holds the catalog for the lifetime of a session. Items are fixed at
// construction; only their stock can change.
type store struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int
}

// NewStore creates a catalog store over a copy of items, preserving their order.
func NewStore(items []Item) Store {
	s := &store{
		items: make([]Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	copy(s.items, items)
	for i, item := range s.items {
		s.index[item.ID] = i
	}
	return s
}

// FindByID looks up an item by its identity.
func (s *store) FindByID(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// Items returns a copy of every item in load order.
func (s *store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the number of items in the catalog.
func (s *store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// RestoreStock overlays a persisted stock snapshot. Ids missing from the
// snapshot keep their loaded stock; unknown ids and negative values are ignored.
func (s *store) RestoreStock(snapshot map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stock := range snapshot {
		i, ok := s.index[id]
		if !ok || stock < 0 {
			continue
		}
		s.items[i].Stock = stock
	}
}

// StockSnapshot returns the current id to stock mapping.
func (s *store) StockSnapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]int, len(s.items))
	for _, item := range s.items {
		snapshot[item.ID] = item.Stock
	}
	return snapshot
}
