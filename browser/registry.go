package browser

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultTTL          = 30 * 24 * time.Hour
	defaultAnonymousTTL = time.Hour
)

// Registry hands out the Client of a browser, creating one for browsers it has not seen.
type Registry struct {
	repo       Repo
	newGateway GatewayFactory
	ttl        time.Duration
	anonTTL    time.Duration
	resetDelay time.Duration
	now        func() time.Time
}

type RegistryOption func(*Registry)

// WithTTL sets how long an idle client is kept.
func WithTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithAnonymousTTL sets how long an idle client without a session is kept. It never
// exceeds the TTL.
func WithAnonymousTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.anonTTL = d
		}
	}
}

// WithResetRedirectDelay sets the pause after a successful password reset.
func WithResetRedirectDelay(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.resetDelay = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(repo Repo, newGateway GatewayFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		repo:       repo,
		newGateway: newGateway,
		ttl:        defaultTTL,
		anonTTL:    defaultAnonymousTTL,
		resetDelay: flows.DefaultResetRedirectDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL is how long an idle client lives.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Lookup returns the live client with id.
func (r *Registry) Lookup(id string) (*Client, error) {
	c, err := r.repo.Get(id)
	if err != nil {
		return nil, err
	}
	now := r.now()
	if r.expired(c, now) {
		_ = r.repo.Delete(id)
		return nil, errors.ErrClientExpired
	}
	c.touch(now)
	return c, nil
}

// Resolve returns the client with id, or a new client when id is unknown or expired.
// created reports whether a new client was made.
func (r *Registry) Resolve(id string) (c *Client, created bool, err error) {
	if id != "" {
		c, err = r.Lookup(id)
		if err == nil {
			return c, false, nil
		}
		if !errors.Is(err, errors.ErrClientNotFound) && !errors.Is(err, errors.ErrClientExpired) {
			return nil, false, err
		}
	}

	c, err = newClient(uuid.NewString(), r.now(), r.newGateway, r.resetDelay)
	if err != nil {
		return nil, false, err
	}
	if err := r.repo.Upsert(c); err != nil {
		return nil, false, errors.Wrapf(err, "[browser Resolve] store client")
	}
	log.Debug().Str("client_id", c.ID).Msg("browser client created")
	return c, true, nil
}

// Forget drops the client with id.
func (r *Registry) Forget(id string) error {
	return r.repo.Delete(id)
}

// expired reports whether c has been idle past its limit: the TTL for a signed-in client,
// the anonymous TTL otherwise.
func (r *Registry) expired(c *Client, now time.Time) bool {
	limit := r.ttl
	if !c.Store.Snapshot().SignedIn() {
		limit = min(limit, r.anonTTL)
	}
	return now.Sub(c.LastSeen()) > limit
}

// Sweep removes clients idle past their limit.
func (r *Registry) Sweep() int {
	now := r.now()
	return r.repo.DeleteWhere(func(c *Client) bool {
		return r.expired(c, now)
	})
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Info().Int("removed", n).Msg("swept idle browser clients")
			}
		}
	}
}
