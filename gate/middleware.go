package gate

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/aural-portal/session"
	"github.com/rs/zerolog/log"
)

const (
	defaultWait   = 3 * time.Second
	defaultMaxAge = 30 * time.Second
)

// StoreFunc finds the session store of the browser behind r.
type StoreFunc func(r *http.Request) (*session.Store, error)

// Gate is the HTTP face of Evaluate.
type Gate struct {
	storeFor  StoreFunc
	wait      time.Duration
	maxAge    time.Duration
	resolving http.HandlerFunc
}

type Option func(*Gate)

// WithWait bounds how long a request waits for a pending session before the
// resolving page is shown instead.
func WithWait(d time.Duration) Option {
	return func(g *Gate) {
		g.wait = d
	}
}

// WithMaxAge sets how old a resolved session may be before a gated request re-queries it.
// Zero turns the age check off.
func WithMaxAge(d time.Duration) Option {
	return func(g *Gate) {
		g.maxAge = d
	}
}

// WithResolvingHandler replaces the page rendered while the session is still resolving.
func WithResolvingHandler(h http.HandlerFunc) Option {
	return func(g *Gate) {
		g.resolving = h
	}
}

func New(storeFor StoreFunc, opts ...Option) *Gate {
	g := &Gate{
		storeFor:  storeFor,
		wait:      defaultWait,
		maxAge:    defaultMaxAge,
		resolving: resolvingPage,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns middleware enforcing mode. Neutral routes are passed through untouched.
func (g *Gate) Require(mode Mode) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if mode == Neutral {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			st := g.current(r)
			d := Evaluate(mode, st)

			switch d.State {
			case Resolving:
				g.resolving(w, r)
			case Redirecting:
				log.Debug().Str("path", r.URL.Path).Str("mode", mode.String()).Str("target", d.Target).Msg("gate redirect")
				Redirect(w, r, d.Target)
			default:
				next(w, r.WithContext(WithSession(r.Context(), st.Session)))
			}
		}
	}
}

func (g *Gate) current(r *http.Request) session.State {
	store, err := g.storeFor(r)
	if err != nil {
		log.Err(err).Msg("[gate current] no session store, treating as signed out")
		return session.State{}
	}

	store.RefreshIfStale(g.maxAge)
	ctx, cancel := context.WithTimeout(r.Context(), g.wait)
	defer cancel()
	return store.Wait(ctx)
}

// Redirect sends the browser to path with a 303, or via HX-Redirect for htmx requests.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func resolvingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head>` +
		`<body><p role="status">Loading...</p></body></html>`))
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session a gated handler was allowed with.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session.Session)
	return sess, ok && sess != nil
}
