package flows

import (
	"context"

	"github.com/rs/zerolog/log"
)

const (
	msgSignOutFailed     = "Failed to log out. Please try again."
	msgSignOutUnexpected = "An unexpected error occurred while logging out."
)

// SignOut ends the provider session from the dashboard.
type SignOut struct {
	gw    Gateway
	draft Draft[struct{}]
}

func NewSignOut(gw Gateway) *SignOut {
	return &SignOut{gw: gw}
}

func (c *SignOut) Mount() {
	c.draft.mount(struct{}{})
}

func (c *SignOut) View() View[struct{}] {
	return c.draft.View()
}

func (c *SignOut) Submit(ctx context.Context) (*Navigation, error) {
	if _, ok := c.draft.begin(nil); !ok {
		return nil, ErrInFlight
	}

	res, err := c.gw.SignOut(detach(ctx))
	if err != nil {
		log.Err(err).Msg("[flows SignOut] provider call failed")
		c.draft.fail(msgSignOutUnexpected)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgSignOutFailed))
		return nil, nil
	}

	c.draft.succeed("")
	return ReplaceWith(LoginPath), nil
}
