// Package browser keeps the per-browser state of the portal: one Client per signed
// cookie, each with its own provider cookie jar, session store and form coordinators.
package browser

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/jrsteele09/aural-portal/session"
)

// SessionGetter looks up the provider session of one browser.
type SessionGetter interface {
	GetSession(ctx context.Context) (gateway.Result[*gateway.SessionPayload], error)
}

// Gateway is everything a Client needs from the auth provider.
type Gateway interface {
	flows.Gateway
	SessionGetter
}

// GatewayFactory builds the gateway of a new Client. onSessionChange must be called after
// every call that changes the provider session.
type GatewayFactory func(onSessionChange func()) (Gateway, error)

// ProviderGateway returns a factory of real provider clients, each with its own cookie jar.
func ProviderGateway(providerURL, origin string, timeout time.Duration, hc *http.Client) GatewayFactory {
	return func(onSessionChange func()) (Gateway, error) {
		opts := []gateway.Option{
			gateway.WithTimeout(timeout),
			gateway.WithOrigin(origin),
			gateway.WithSessionListener(onSessionChange),
		}
		if hc != nil {
			opts = append(opts, gateway.WithHTTPClient(hc))
		}
		gw, err := gateway.New(providerURL, opts...)
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
}

// Client is the state one browser carries across requests.
type Client struct {
	ID        string
	CreatedAt time.Time
	lastSeen  atomic.Int64

	Gateway Gateway
	Store   *session.Store

	SignUp         *flows.SignUp
	Login          *flows.Login
	OTP            *flows.OTP
	ForgotPassword *flows.ForgotPassword
	ResetPassword  *flows.ResetPassword
	SignOut        *flows.SignOut
	Google         *flows.Google
}

func newClient(id string, now time.Time, newGateway GatewayFactory, resetDelay time.Duration) (*Client, error) {
	c := &Client{ID: id, CreatedAt: now}
	c.lastSeen.Store(now.UnixNano())

	gw, err := newGateway(func() {
		c.Store.RequestRefresh()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "[browser newClient] gateway")
	}
	c.Gateway = gw
	c.Store = session.New(session.FetcherFunc(func(ctx context.Context) (*session.Session, error) {
		return FetchSession(ctx, gw)
	}))

	c.SignUp = flows.NewSignUp(gw)
	c.Login = flows.NewLogin(gw)
	c.OTP = flows.NewOTP(gw, c.Store)
	c.ForgotPassword = flows.NewForgotPassword(gw)
	c.ResetPassword = flows.NewResetPassword(gw, resetDelay)
	c.SignOut = flows.NewSignOut(gw)
	c.Google = flows.NewGoogle(gw)

	c.Store.RequestRefresh()
	return c, nil
}

// LastSeen is when the client was last resolved from a request.
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Client) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

// FetchSession reads the provider session into a session.Session. Signed out is (nil, nil).
func FetchSession(ctx context.Context, gw SessionGetter) (*session.Session, error) {
	res, err := gw.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		if res.Err.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, errors.Wrapf(res.Err, "[browser FetchSession] provider refused")
	}
	return FromPayload(res.Data), nil
}

// FromPayload converts the provider's session body. A nil payload means signed out.
func FromPayload(p *gateway.SessionPayload) *session.Session {
	if p == nil || p.User.ID == "" {
		return nil
	}
	return &session.Session{
		UserID:        p.User.ID,
		Email:         p.User.Email,
		Name:          p.User.Name,
		EmailVerified: p.User.EmailVerified,
		ExpiresAt:     p.Session.ExpiresAt,
		Metadata: map[string]any{
			"sessionId": p.Session.ID,
			"image":     p.User.Image,
			"ipAddress": p.Session.IPAddress,
			"userAgent": p.Session.UserAgent,
		},
	}
}
