package catalog

import (
	"strings"
	"sync"
)

// Store holds the latest merged catalog snapshot and its derived taxonomies.
type Store struct {
	mu              sync.RWMutex
	items           []Item
	byID            map[string]int
	taxonomy        []Category
	serviceTaxonomy []Category
}

// NewStore returns an empty store whose taxonomies contain only "All".
func NewStore() *Store {
	s := &Store{}
	s.Replace(nil)
	return s
}

// Replace swaps in a new snapshot and rebuilds both taxonomies from it.
func (s *Store) Replace(items []Item) {
	copied := make([]Item, len(items))
	copy(copied, items)
	byID := make(map[string]int, len(copied))
	for i, item := range copied {
		byID[item.ID] = i
	}
	taxonomy := BuildTaxonomy(copied)
	serviceTaxonomy := BuildServiceTaxonomy(copied)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = copied
	s.byID = byID
	s.taxonomy = taxonomy
	s.serviceTaxonomy = serviceTaxonomy
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get looks an item up by identifier.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// FindByCode returns the first item whose trimmed barcode equals code exactly.
func (s *Store) FindByCode(code string) (Item, bool) {
	if code == "" {
		return Item{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if barcode := strings.TrimSpace(item.Barcode); barcode != "" && barcode == code {
			return item, true
		}
	}
	return Item{}, false
}

func (s *Store) Taxonomy() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taxonomy
}

func (s *Store) ServiceTaxonomy() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serviceTaxonomy
}

// Filter narrows the visible catalog.
type Filter struct {
	Services    bool   // services view instead of products view
	Query       string // case-insensitive match on name, description or id
	Category    string // "" or "All" for no filter; services match on service type
	Subcategory string // products view only
}

// Filter returns the active items matching f, in catalog order.
func (s *Store) Filter(f Filter) []Item {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0)
	for _, item := range s.items {
		if item.IsService() != f.Services || !item.Active {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) &&
			!strings.Contains(strings.ToLower(item.ID), query) {
			continue
		}
		if f.Category != "" && f.Category != AllCategory {
			if f.Services && item.Subcategory != f.Category {
				continue
			}
			if !f.Services && item.Category != f.Category {
				continue
			}
		}
		if !f.Services && f.Subcategory != "" && item.Subcategory != f.Subcategory {
			continue
		}
		out = append(out, item)
	}
	return out
}
