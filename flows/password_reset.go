package flows

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	msgForgotSent   = "Check your inbox for the reset link."
	msgForgotFailed = "Failed to send reset link"

	msgResetInvalidLink  = "This reset link is invalid or has expired."
	msgResetMissingToken = "Missing reset token. Request a new link."
	msgResetTooShort     = "Password must be at least 8 characters long."
	msgResetMismatch     = "Passwords do not match."
	msgResetFailed       = "Failed to reset password"
	msgResetDone         = "Password updated! Redirecting to login..."

	// DefaultResetRedirectDelay is how long the reset success message shows before going to login.
	DefaultResetRedirectDelay = 1500 * time.Millisecond
)

type ForgotPasswordForm struct {
	Email string
}

// ForgotPassword requests a reset email. Provider errors are never shown verbatim, so the
// page does not reveal whether an address is registered.
type ForgotPassword struct {
	gw    Gateway
	draft Draft[ForgotPasswordForm]
}

func NewForgotPassword(gw Gateway) *ForgotPassword {
	return &ForgotPassword{gw: gw}
}

func (c *ForgotPassword) Mount() {
	c.draft.mount(ForgotPasswordForm{})
}

func (c *ForgotPassword) View() View[ForgotPasswordForm] {
	return c.draft.View()
}

// Submit asks for a reset link pointing at origin's reset page. It never navigates.
func (c *ForgotPassword) Submit(ctx context.Context, email, origin string) error {
	if _, ok := c.draft.begin(func(f *ForgotPasswordForm) { f.Email = email }); !ok {
		return ErrInFlight
	}

	redirectTo := strings.TrimRight(origin, "/") + ResetRoute
	res, err := c.gw.RequestPasswordReset(detach(ctx), email, redirectTo)
	switch {
	case err != nil:
		log.Err(err).Msg("[flows ForgotPassword] provider call failed")
		c.draft.fail(msgUnexpected)
	case !res.Ok():
		log.Debug().Int("status", res.Err.Status).Str("code", res.Err.Code).Msg("reset link request rejected")
		c.draft.fail(msgForgotFailed)
	default:
		c.draft.succeed(msgForgotSent)
	}
	return nil
}

// ResetParams are the query parameters of the reset link.
type ResetParams struct {
	Token    string
	HasError bool
}

type ResetPasswordForm struct {
	Token    string
	Password string
	Confirm  string
}

// ResetPassword consumes the token from a reset link. The token lives only as long as the
// page view: every Mount replaces it.
type ResetPassword struct {
	gw    Gateway
	delay time.Duration
	draft Draft[ResetPasswordForm]
}

func NewResetPassword(gw Gateway, redirectDelay time.Duration) *ResetPassword {
	return &ResetPassword{gw: gw, delay: redirectDelay}
}

func (c *ResetPassword) Mount(p ResetParams) {
	c.draft.mount(ResetPasswordForm{Token: p.Token})
	if p.HasError {
		c.draft.setMessage(msgResetInvalidLink, "")
	}
}

func (c *ResetPassword) View() View[ResetPasswordForm] {
	return c.draft.View()
}

func (c *ResetPassword) Submit(ctx context.Context, password, confirm string) (*Navigation, error) {
	f, ok := c.draft.begin(func(f *ResetPasswordForm) {
		f.Password = password
		f.Confirm = confirm
	})
	if !ok {
		return nil, ErrInFlight
	}

	switch {
	case f.Token == "":
		c.draft.fail(msgResetMissingToken)
		return nil, nil
	case passwordTooShort(f.Password):
		c.draft.fail(msgResetTooShort)
		return nil, nil
	case f.Password != f.Confirm:
		c.draft.fail(msgResetMismatch)
		return nil, nil
	}

	res, err := c.gw.ResetPassword(detach(ctx), f.Token, f.Password)
	if err != nil {
		log.Err(err).Msg("[flows ResetPassword] provider call failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgResetFailed))
		return nil, nil
	}

	c.draft.succeed(msgResetDone)
	return &Navigation{Path: LoginPath, Delay: c.delay}, nil
}
