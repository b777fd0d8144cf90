package storage

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/foodgrid/internal/domain"
)

// Catalog is the per-worker set of stores. All implementations must be safe
// for concurrent use; Update must run fn while no other Update or View for
// the same store is in progress.
type Catalog interface {
	// Put inserts s, replacing any store with the same name.
	// It reports whether a previous store was replaced.
	Put(s *domain.Store) bool

	// Get returns a deep copy of the named store or domain.ErrStoreNotFound.
	Get(name string) (*domain.Store, error)

	// Update runs fn against the live store under its lock.
	// Returns domain.ErrStoreNotFound if the store does not exist,
	// otherwise whatever fn returns.
	Update(name string, fn func(s *domain.Store) error) error

	// Each calls fn with a consistent copy of every store, in insertion order.
	Each(fn func(s *domain.Store))

	// Names returns store names in insertion order.
	Names() []string

	// Stats returns catalog statistics.
	Stats() CatalogStats
}

// CatalogStats contains statistics about a catalog.
type CatalogStats struct {
	Stores          int `json:"stores"`
	Products        int `json:"products"`
	VisibleProducts int `json:"visibleProducts"`
}

// entry pairs a store with the mutex that serializes its mutations.
type entry struct {
	mu    sync.Mutex
	store *domain.Store
}

// StoreCache implements Catalog in memory.
// The RWMutex guards the map and ordering; each entry has its own mutex so
// purchases on different stores do not contend.
type StoreCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// NewStoreCache creates an empty cache.
func NewStoreCache() *StoreCache {
	return &StoreCache{
		entries: make(map[string]*entry),
	}
}

// Put stores a deep copy of s so the caller keeps ownership of its value.
func (c *StoreCache) Put(s *domain.Store) bool {
	stored := s.Clone()
	stored.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[s.Name]; exists {
		e.mu.Lock()
		e.store = stored
		e.mu.Unlock()
		return true
	}
	c.entries[s.Name] = &entry{store: stored}
	c.order = append(c.order, s.Name)
	return false
}

func (c *StoreCache) lookup(name string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Get returns a copy to prevent external modification.
func (c *StoreCache) Get(name string) (*domain.Store, error) {
	e, ok := c.lookup(name)
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Clone(), nil
}

// Update runs fn under the store's own lock.
func (c *StoreCache) Update(name string, fn func(s *domain.Store) error) error {
	e, ok := c.lookup(name)
	if !ok {
		return domain.ErrStoreNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.store)
}

// Each visits copies so fn may run slow formatting without holding locks.
func (c *StoreCache) Each(fn func(s *domain.Store)) {
	for _, name := range c.Names() {
		s, err := c.Get(name)
		if err != nil {
			continue
		}
		fn(s)
	}
}

// Names returns a copy of the insertion order.
func (c *StoreCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Stats walks every store; it is meant for ops endpoints, not hot paths.
func (c *StoreCache) Stats() CatalogStats {
	var stats CatalogStats
	c.Each(func(s *domain.Store) {
		stats.Stores++
		stats.Products += len(s.Products)
		for _, p := range s.Products {
			if p.Visible {
				stats.VisibleProducts++
			}
		}
	})
	return stats
}
