package views

import (
	"sync"

	"github.com/effectus/schemadraft/draft"
	"github.com/effectus/schemadraft/resolver"
)

// Cache keeps the sorted content-type list of the last content-type
// catalog it saw. The list is rebuilt only when the catalog revision
// changes.
type Cache struct {
	routes resolver.Routes

	mu       sync.Mutex
	valid    bool
	revision uint64
	items    []NavItem
	builds   int
}

// NewCache creates an empty cache for routes
func NewCache(routes resolver.Routes) *Cache {
	return &Cache{routes: routes}
}

// SortedContentTypes returns the list for state, rebuilding it if the
// content-type catalog was replaced since the last call
func (c *Cache) SortedContentTypes(state draft.State) []NavItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.revision != state.ContentTypesRevision {
		c.items = SortedContentTypes(state.ContentTypes, c.routes)
		c.revision = state.ContentTypesRevision
		c.valid = true
		c.builds++
	}

	out := make([]NavItem, len(c.items))
	copy(out, c.items)
	return out
}

// Builds reports how many times the list has been computed
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
