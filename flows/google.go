package flows

import (
	"context"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/rs/zerolog/log"
)

const (
	ProviderGoogle = "google"

	msgGoogleFailed = "Failed to sign in with Google"
)

// Google drives "Continue with Google". Start hands the browser to the provider's own
// redirect; Complete signs in with an ID token obtained by a local code exchange.
type Google struct {
	gw    Gateway
	draft Draft[struct{}]
}

func NewGoogle(gw Gateway) *Google {
	return &Google{gw: gw}
}

func (c *Google) Mount() {
	c.draft.mount(struct{}{})
}

func (c *Google) View() View[struct{}] {
	return c.draft.View()
}

// Start asks the provider where to send the browser. callbackURL is where the provider
// returns the browser afterwards.
func (c *Google) Start(ctx context.Context, callbackURL string) (*Navigation, error) {
	if _, ok := c.draft.begin(nil); !ok {
		return nil, ErrInFlight
	}

	res, err := c.gw.SignInWithOAuth(detach(ctx), gateway.OAuthInput{Provider: ProviderGoogle, CallbackURL: callbackURL})
	if err != nil {
		log.Err(err).Msg("[flows Google Start] provider call failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgGoogleFailed))
		return nil, nil
	}

	switch {
	case res.Data.URL != "":
		c.draft.succeed("")
		return &Navigation{Path: res.Data.URL, External: true}, nil
	case res.Data.Token != "":
		c.draft.succeed("")
		return Push(DashboardPath), nil
	}
	c.draft.fail(msgGoogleFailed)
	return nil, nil
}

// Complete signs in with a verified Google ID token.
func (c *Google) Complete(ctx context.Context, tok gateway.IDToken) (*Navigation, error) {
	if _, ok := c.draft.begin(nil); !ok {
		return nil, ErrInFlight
	}

	res, err := c.gw.SignInWithOAuth(detach(ctx), gateway.OAuthInput{
		Provider:    ProviderGoogle,
		CallbackURL: DashboardPath,
		IDToken:     &tok,
	})
	if err != nil {
		log.Err(err).Msg("[flows Google Complete] provider call failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgGoogleFailed))
		return nil, nil
	}

	c.draft.succeed("")
	return Push(DashboardPath), nil
}

// Fail records an error raised outside the provider call, such as a rejected callback.
func (c *Google) Fail() {
	c.draft.setMessage(msgGoogleFailed, "")
}
