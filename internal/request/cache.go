package request

import (
	"log/slog"
	"sync"
)

// Cache hands out one projection per viewer email, lazily. A projection
// holds only the viewer's request list and lives until the session manager
// drops it on teardown.
type Cache struct {
	backend Backend
	logger  *slog.Logger

	mu          sync.Mutex
	projections map[string]*Projection
}

// NewCache creates an empty projection cache.
func NewCache(b Backend, logger *slog.Logger) *Cache {
	return &Cache{
		backend:     b,
		logger:      logger,
		projections: make(map[string]*Projection),
	}
}

// For returns the projection for a viewer, creating it on first use.
func (c *Cache) For(email string) *Projection {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.projections[email]
	if !ok {
		p = NewProjection(c.backend, email, c.logger)
		c.projections[email] = p
	}
	return p
}

// Drop forgets a viewer's projection (used on session teardown).
func (c *Cache) Drop(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.projections, email)
}
