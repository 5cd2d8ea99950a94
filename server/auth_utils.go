package server

import (
	"context"
	"crypto/sha256"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/gate"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"
)

const (
	// clientCookieName carries the signed id of the browser's Client
	clientCookieName = "aural_client"

	clientCookieIssuer  = "aural-portal"
	clientCookieKeyInfo = "aural-portal client cookie v1"
)

// clientCookies signs and reads the browser client cookie with an HMAC key derived from
// the app secret.
type clientCookies struct {
	key []byte
	ttl time.Duration
}

func newClientCookies(secret string, ttl time.Duration) (*clientCookies, error) {
	if secret == "" {
		return nil, errors.New("[server newClientCookies] empty app secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(clientCookieKeyInfo)), key); err != nil {
		return nil, errors.Wrapf(err, "[server newClientCookies] derive key")
	}
	return &clientCookies{key: key, ttl: ttl}, nil
}

func (c *clientCookies) sign(clientID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    clientCookieIssuer,
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// clientID returns the client id the cookie value was signed for.
func (c *clientCookies) clientID(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(clientCookieIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidCookie, "[server clientID] %v", err)
	}
	if claims.Subject == "" {
		return "", errors.Wrapf(errors.ErrInvalidCookie, "[server clientID] no subject")
	}
	return claims.Subject, nil
}

func (s *Server) setClientCookie(w http.ResponseWriter, r *http.Request, clientID string) error {
	value, err := s.cookies.sign(clientID, time.Now())
	if err != nil {
		return errors.Wrapf(err, "[server setClientCookie] sign")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cookies.ttl.Seconds()),
	})
	return nil
}

type clientKey struct{}

func withClient(ctx context.Context, c *browser.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func clientFrom(ctx context.Context) (*browser.Client, bool) {
	c, ok := ctx.Value(clientKey{}).(*browser.Client)
	return c, ok && c != nil
}

// BrowserClientMiddleware resolves the Client named by the cookie, creating one (and a
// fresh cookie) when the cookie is missing, forged or points at an expired client.
func (s *Server) BrowserClientMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(clientCookieName); err == nil {
			id, err = s.cookies.clientID(cookie.Value)
			if err != nil {
				log.Debug().Err(err).Msg("[server BrowserClientMiddleware] ignoring client cookie")
			}
		}

		c, created, err := s.clients.Resolve(id)
		if err != nil {
			log.Err(err).Msg("[server BrowserClientMiddleware] resolve client")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		if created {
			if err := s.setClientCookie(w, r, c.ID); err != nil {
				log.Err(err).Msg("[server BrowserClientMiddleware] set cookie")
				http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
				return
			}
		}
		next(w, r.WithContext(withClient(r.Context(), c)))
	}
}

// requireClient fetches the request's Client, writing a 500 when the middleware did not run.
func requireClient(w http.ResponseWriter, r *http.Request) (*browser.Client, bool) {
	c, ok := clientFrom(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("[server requireClient] no browser client on request")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
	}
	return c, ok
}

// navigate carries out a coordinator's navigation, external targets included. Delayed
// navigations are rendered by the page itself, so navigate reports false for them and the
// caller renders instead.
func navigate(w http.ResponseWriter, r *http.Request, nav *flows.Navigation) bool {
	if nav == nil || nav.Delay > 0 {
		return false
	}
	gate.Redirect(w, r, nav.Path)
	return true
}

// refreshSeconds rounds a navigation delay up to whole seconds for a meta refresh.
func refreshSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
