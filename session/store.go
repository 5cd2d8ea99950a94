package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Session represents an authenticated identity as reported by the auth provider.
type Session struct {
	UserID        string
	Email         string
	Name          string
	EmailVerified bool
	Metadata      map[string]any
	ExpiresAt     time.Time
}

// IdentityKey condenses what a page rendered for: who is signed in and whether their
// email is verified. It is empty when there is no session.
func IdentityKey(s *Session) string {
	if s == nil {
		return ""
	}
	if s.EmailVerified {
		return s.UserID + ":verified"
	}
	return s.UserID + ":unverified"
}

// State is a point-in-time view of the store.
type State struct {
	Session    *Session
	Pending    bool
	ResolvedAt time.Time
}

// SignedIn reports whether the state is resolved and holds a session.
func (s State) SignedIn() bool {
	return !s.Pending && s.Session != nil
}

// Fetcher re-queries the provider for the current session. A nil session with a nil
// error means "signed out"; an error means the lookup itself failed.
type Fetcher interface {
	FetchSession(ctx context.Context) (*Session, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*Session, error)

func (f FetcherFunc) FetchSession(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// Store is the single source of truth for "current session or none" of one client.
// The refresh is its only writer; values are replaced wholesale.
type Store struct {
	fetcher Fetcher
	now     func() time.Time

	mu         sync.RWMutex
	state      State
	changed    chan struct{}
	refreshing bool
	dirty      bool
	subs       map[int]chan State
	nextSub    int
}

// New creates a store that is pending until its first refresh completes.
func New(fetcher Fetcher) *Store {
	return &Store{
		fetcher: fetcher,
		now:     time.Now,
		state:   State{Pending: true},
		changed: make(chan struct{}),
		subs:    make(map[int]chan State),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Refetch queries the provider and replaces the held value. A failed lookup keeps the
// previous value, except before the first resolution, where it resolves to "no session".
func (s *Store) Refetch(ctx context.Context) {
	sess, err := s.fetcher.FetchSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(sess, err, s.refreshing)
}

// RequestRefresh starts a refresh without waiting for it. The store is pending until the
// refresh lands; requests made while one is running are folded into one more fetch.
func (s *Store) RequestRefresh() {
	s.mu.Lock()
	if !s.state.Pending {
		next := s.state
		next.Pending = true
		s.publishLocked(next)
	}
	if s.refreshing {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go s.refreshLoop()
}

// RefreshIfStale requests a refresh when the value was resolved more than maxAge ago,
// or when the store is pending with no refresh running.
func (s *Store) RefreshIfStale(maxAge time.Duration) {
	s.mu.RLock()
	st, running := s.state, s.refreshing
	s.mu.RUnlock()

	switch {
	case running:
		return
	case st.Pending, maxAge > 0 && s.now().Sub(st.ResolvedAt) > maxAge:
		s.RequestRefresh()
	}
}

// Wait blocks until the store is resolved or ctx is done, and returns the state seen last.
func (s *Store) Wait(ctx context.Context) State {
	for {
		s.mu.RLock()
		st, ch := s.state, s.changed
		s.mu.RUnlock()

		if !st.Pending {
			return st
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st
		}
	}
}

// Subscribe returns a channel receiving every state change (latest wins when the reader
// lags) and a function that ends the subscription.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) refreshLoop() {
	for {
		sess, err := s.fetcher.FetchSession(context.Background())

		s.mu.Lock()
		again := s.dirty
		s.dirty = false
		s.applyLocked(sess, err, again)
		if !again {
			s.refreshing = false
		}
		s.mu.Unlock()

		if !again {
			return
		}
	}
}

func (s *Store) applyLocked(sess *Session, err error, stillPending bool) {
	next := s.state
	if err != nil {
		log.Warn().Err(err).Msg("[session Refetch] lookup failed, keeping previous value")
		if next.ResolvedAt.IsZero() {
			next.Session = nil
		}
	} else {
		next.Session = sess
	}
	next.Pending = stillPending
	next.ResolvedAt = s.now()
	s.publishLocked(next)
}

func (s *Store) publishLocked(next State) {
	s.state = next
	close(s.changed)
	s.changed = make(chan struct{})

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}
