package googleauth

import (
	"errors"
	"sync"
	"time"
)

// FlowState is what the callback needs to finish a handshake started by one browser.
type FlowState struct {
	BrowserID    string
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

// StateRepo keeps in-progress handshakes keyed by the OAuth state parameter.
type StateRepo interface {
	Upsert(state string, flow *FlowState) error
	// Take returns the flow for state and removes it, so a state is usable once.
	Take(state string) (*FlowState, error)
	// DeleteOlderThan drops flows created before cutoff.
	DeleteOlderThan(cutoff time.Time) int
}

var errStateNotFound = errors.New("state not found")

// InMemoryStateRepo is a thread-safe in-memory StateRepo
type InMemoryStateRepo struct {
	mu     sync.RWMutex
	states map[string]*FlowState
}

func NewInMemoryStateRepo() *InMemoryStateRepo {
	return &InMemoryStateRepo{
		states: make(map[string]*FlowState),
	}
}

// Upsert stores or updates a flow
func (r *InMemoryStateRepo) Upsert(state string, flow *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *flow
	r.states[state] = &cp
	return nil
}

func (r *InMemoryStateRepo) Take(state string) (*FlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.states[state]
	if !ok {
		return nil, errStateNotFound
	}
	delete(r.states, state)
	return flow, nil
}

func (r *InMemoryStateRepo) DeleteOlderThan(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for state, flow := range r.states {
		if flow.CreatedAt.Before(cutoff) {
			delete(r.states, state)
			n++
		}
	}
	return n
}
