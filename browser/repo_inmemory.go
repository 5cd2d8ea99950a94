package browser

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/aural-portal/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory Repo. Clients are stored by pointer:
// they own goroutine-shared state and must not be copied.
type InMemoryRepo struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]*Client),
	}
}

// Upsert stores or replaces a client
func (r *InMemoryRepo) Upsert(c *Client) error {
	if c == nil {
		return fmt.Errorf("client cannot be nil")
	}
	if c.ID == "" {
		return fmt.Errorf("client ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	return nil
}

// Get retrieves a client by ID
func (r *InMemoryRepo) Get(id string) (*Client, error) {
	if id == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, errors.ErrClientNotFound
	}
	return c, nil
}

// Delete removes a client
func (r *InMemoryRepo) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("client ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	return nil
}

func (r *InMemoryRepo) DeleteWhere(expired func(*Client) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.clients {
		if expired(c) {
			delete(r.clients, id)
			n++
		}
	}
	return n
}
