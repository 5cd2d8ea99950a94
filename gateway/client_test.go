package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

type providerStub struct {
	server *httptest.Server

	mu      sync.Mutex
	lastReq map[string]any
	path    string
}

func (p *providerStub) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

func (p *providerStub) Body() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}

func newProviderStub(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *providerStub {
	t.Helper()
	p := &providerStub{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		p.mu.Lock()
		p.path = r.URL.Path
		p.lastReq = body
		p.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_SignInWithPassword(t *testing.T) {
	var notified atomic.Int32

	t.Run("success notifies session listener", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "better-auth.session_token", Value: "abc", Path: "/"})
			writeJSON(w, http.StatusOK, `{"token":"abc","user":{"id":"u1","email":"a@example.com","emailVerified":true}}`)
		})
		c, err := gateway.New(p.server.URL, gateway.WithSessionListener(func() { notified.Add(1) }))
		require.NoError(t, err)

		res, err := c.SignInWithPassword(context.Background(), gateway.SignInInput{Email: "a@example.com", Password: "password123"})
		require.NoError(t, err)
		require.True(t, res.Ok())
		require.Equal(t, "abc", res.Data.Token)
		require.True(t, res.Data.User.EmailVerified)
		require.Equal(t, "/api/auth/sign-in/email", p.Path())
		require.Equal(t, "a@example.com", p.Body()["email"])
		require.Equal(t, int32(1), notified.Load())
	})

	t.Run("unverified email is a structured error", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"code":"EMAIL_NOT_VERIFIED","message":"Email not verified"}`)
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		res, err := c.SignInWithPassword(context.Background(), gateway.SignInInput{Email: "a@example.com", Password: "x"})
		require.NoError(t, err)
		require.False(t, res.Ok())
		require.Equal(t, gateway.StatusUnverifiedEmail, res.Err.Status)
		require.Equal(t, "EMAIL_NOT_VERIFIED", res.Err.Code)
		require.Equal(t, "Email not verified", res.Err.MessageOr("fallback"))
	})
}

func TestClient_Faults(t *testing.T) {
	t.Run("non-json error body keeps the status", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		res, err := c.ResetPassword(context.Background(), "tok", "password123")
		require.NoError(t, err)
		require.False(t, res.Ok())
		require.Equal(t, http.StatusBadGateway, res.Err.Status)
		require.Empty(t, res.Err.Message)
	})

	t.Run("bodyless forbidden is an unverified email", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		res, err := c.SignInWithPassword(context.Background(), gateway.SignInInput{Email: "a@example.com", Password: "password123"})
		require.NoError(t, err)
		require.False(t, res.Ok())
		require.Equal(t, gateway.StatusUnverifiedEmail, res.Err.Status)
	})

	t.Run("malformed success body", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"token":`)
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		_, err = c.VerifyOTP(context.Background(), "a@example.com", "123456")
		require.True(t, errors.Is(err, errors.ErrMalformedResponse))
	})

	t.Run("unreachable provider", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {})
		url := p.server.URL
		p.server.Close()

		c, err := gateway.New(url)
		require.NoError(t, err)

		_, err = c.SendOTP(context.Background(), "a@example.com", gateway.OTPEmailVerification)
		require.True(t, errors.Is(err, errors.ErrProviderUnavailable))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)
		c, err := gateway.New(p.server.URL, gateway.WithTimeout(50*time.Millisecond))
		require.NoError(t, err)

		_, err = c.GetSession(context.Background())
		require.Error(t, err)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestClient_GetSession(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `null`)
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		res, err := c.GetSession(context.Background())
		require.NoError(t, err)
		require.True(t, res.Ok())
		require.Nil(t, res.Data)
	})

	t.Run("cookie jar carries the provider session", func(t *testing.T) {
		p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/auth/email-otp/verify-email":
				http.SetCookie(w, &http.Cookie{Name: "better-auth.session_token", Value: "tok", Path: "/"})
				writeJSON(w, http.StatusOK, `{"token":"tok","user":{"id":"u1","email":"a@example.com","emailVerified":true}}`)
			case "/api/auth/get-session":
				if c, err := r.Cookie("better-auth.session_token"); err != nil || c.Value != "tok" {
					writeJSON(w, http.StatusOK, `null`)
					return
				}
				writeJSON(w, http.StatusOK, `{"session":{"id":"s1","userId":"u1","token":"tok","expiresAt":"2030-01-01T00:00:00Z"},"user":{"id":"u1","email":"a@example.com","emailVerified":true}}`)
			}
		})
		c, err := gateway.New(p.server.URL)
		require.NoError(t, err)

		_, err = c.VerifyOTP(context.Background(), "a@example.com", "123456")
		require.NoError(t, err)
		require.Equal(t, "123456", p.Body()["otp"])

		res, err := c.GetSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, res.Data)
		require.Equal(t, "u1", res.Data.User.ID)
		require.Equal(t, 2030, res.Data.Session.ExpiresAt.Year())
	})
}

func TestClient_RequestBodies(t *testing.T) {
	p := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":true}`)
	})
	c, err := gateway.New(p.server.URL+"/", gateway.WithOrigin("https://portal.example.com/"))
	require.NoError(t, err)

	_, err = c.RequestPasswordReset(context.Background(), "a@example.com", "https://portal.example.com/reset-password")
	require.NoError(t, err)
	require.Equal(t, "/api/auth/request-password-reset", p.Path())
	require.Equal(t, "https://portal.example.com/reset-password", p.Body()["redirectTo"])

	_, err = c.SendOTP(context.Background(), "a@example.com", gateway.OTPEmailVerification)
	require.NoError(t, err)
	require.Equal(t, "email-verification", p.Body()["type"])

	_, err = c.SignInWithOAuth(context.Background(), gateway.OAuthInput{Provider: "google", CallbackURL: "/dashboard"})
	require.NoError(t, err)
	require.Equal(t, "google", p.Body()["provider"])
	require.NotContains(t, p.Body(), "idToken")
}

func TestNew_RequiresProviderURL(t *testing.T) {
	_, err := gateway.New("")
	require.Error(t, err)
}
