package gate_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/aural-portal/gate"
	"github.com/jrsteele09/aural-portal/session"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	signedIn := &session.Session{UserID: "u1"}

	tests := []struct {
		name string
		mode gate.Mode
		st   session.State
		want gate.Decision
	}{
		{"neutral pending", gate.Neutral, session.State{Pending: true}, gate.Decision{State: gate.Allowed}},
		{"neutral signed in", gate.Neutral, session.State{Session: signedIn}, gate.Decision{State: gate.Allowed}},
		{"protected pending", gate.Protected, session.State{Pending: true}, gate.Decision{State: gate.Resolving}},
		{"protected signed out", gate.Protected, session.State{}, gate.Decision{State: gate.Redirecting, Target: "/login"}},
		{"protected signed in", gate.Protected, session.State{Session: signedIn}, gate.Decision{State: gate.Allowed}},
		{"unprotected pending", gate.Unprotected, session.State{Pending: true}, gate.Decision{State: gate.Resolving}},
		{"unprotected signed in", gate.Unprotected, session.State{Session: signedIn}, gate.Decision{State: gate.Redirecting, Target: "/dashboard"}},
		{"unprotected signed out", gate.Unprotected, session.State{}, gate.Decision{State: gate.Allowed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, gate.Evaluate(tt.mode, tt.st))
		})
	}
}

func TestMode_ZeroValueIsNeutral(t *testing.T) {
	var m gate.Mode
	require.Equal(t, gate.Neutral, m)
	require.Equal(t, "neutral", m.String())
}

func resolvedStore(t *testing.T, sess *session.Session) *session.Store {
	t.Helper()
	s := session.New(session.FetcherFunc(func(ctx context.Context) (*session.Session, error) {
		return sess, nil
	}))
	s.Refetch(context.Background())
	return s
}

func page(called *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		if sess, ok := gate.SessionFrom(r.Context()); ok {
			_, _ = w.Write([]byte("hello " + sess.UserID))
			return
		}
		_, _ = w.Write([]byte("hello"))
	}
}

func TestRequire_ProtectedSignedOutRedirects(t *testing.T) {
	store := resolvedStore(t, nil)
	g := gate.New(func(r *http.Request) (*session.Store, error) { return store, nil }, gate.WithMaxAge(0))

	var called atomic.Bool
	h := g.Require(gate.Protected)(page(&called))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	require.False(t, called.Load())
}

func TestRequire_ProtectedSignedInRendersWithSession(t *testing.T) {
	store := resolvedStore(t, &session.Session{UserID: "u1"})
	g := gate.New(func(r *http.Request) (*session.Store, error) { return store, nil }, gate.WithMaxAge(0))

	var called atomic.Bool
	rec := httptest.NewRecorder()
	g.Require(gate.Protected)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello u1", rec.Body.String())
}

func TestRequire_UnprotectedSignedInHTMXRedirect(t *testing.T) {
	store := resolvedStore(t, &session.Session{UserID: "u1"})
	g := gate.New(func(r *http.Request) (*session.Store, error) { return store, nil }, gate.WithMaxAge(0))

	var called atomic.Bool
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	g.Require(gate.Unprotected)(page(&called))(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))
	require.False(t, called.Load())
}

func TestRequire_NeutralNeverTouchesStore(t *testing.T) {
	var lookups atomic.Int32
	g := gate.New(func(r *http.Request) (*session.Store, error) {
		lookups.Add(1)
		return nil, fmt.Errorf("unused")
	})

	var called atomic.Bool
	rec := httptest.NewRecorder()
	g.Require(gate.Neutral)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/otp", nil))

	require.True(t, called.Load())
	require.Zero(t, lookups.Load())
}

func TestRequire_StillResolvingShowsSpinner(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	store := session.New(session.FetcherFunc(func(ctx context.Context) (*session.Session, error) {
		<-block
		return nil, nil
	}))
	store.RequestRefresh()

	g := gate.New(func(r *http.Request) (*session.Store, error) { return store, nil }, gate.WithWait(20*time.Millisecond))

	var called atomic.Bool
	rec := httptest.NewRecorder()
	g.Require(gate.Protected)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	require.False(t, called.Load())
}

func TestRequire_WaitsForPendingRefresh(t *testing.T) {
	release := make(chan struct{})
	store := session.New(session.FetcherFunc(func(ctx context.Context) (*session.Session, error) {
		<-release
		return &session.Session{UserID: "u1"}, nil
	}))
	store.RequestRefresh()

	g := gate.New(func(r *http.Request) (*session.Store, error) { return store, nil }, gate.WithWait(time.Second))

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	var called atomic.Bool
	rec := httptest.NewRecorder()
	g.Require(gate.Protected)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.True(t, called.Load())
	require.Equal(t, "hello u1", rec.Body.String())
}

func TestRequire_StoreLookupFailureIsSignedOut(t *testing.T) {
	g := gate.New(func(r *http.Request) (*session.Store, error) { return nil, fmt.Errorf("no client") })

	var called atomic.Bool
	rec := httptest.NewRecorder()
	g.Require(gate.Unprotected)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.True(t, called.Load())

	rec = httptest.NewRecorder()
	g.Require(gate.Protected)(page(&called))(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, "/login", rec.Header().Get("Location"))
}
