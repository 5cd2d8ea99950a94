package flows

import (
	"context"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/rs/zerolog/log"
)

const (
	msgLoginFailed   = "Failed to sign in"
	msgLoginOTPError = "Unable to send verification code"
)

type LoginForm struct {
	Email    string
	Password string
}

// Login signs in with a password. An unverified account is sent a fresh code and
// routed to the OTP page instead.
type Login struct {
	gw    Gateway
	draft Draft[LoginForm]
}

func NewLogin(gw Gateway) *Login {
	return &Login{gw: gw}
}

func (c *Login) Mount() {
	c.draft.mount(LoginForm{})
}

func (c *Login) View() View[LoginForm] {
	return c.draft.View()
}

func (c *Login) Submit(ctx context.Context, form LoginForm) (*Navigation, error) {
	if _, ok := c.draft.begin(func(f *LoginForm) { *f = form }); !ok {
		return nil, ErrInFlight
	}
	ctx = detach(ctx)

	res, err := c.gw.SignInWithPassword(ctx, gateway.SignInInput{Email: form.Email, Password: form.Password})
	if err != nil {
		log.Err(err).Msg("[flows Login] provider call failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if res.Ok() {
		c.draft.succeed("")
		return Push(DashboardPath), nil
	}
	if res.Err.Status != gateway.StatusUnverifiedEmail {
		c.draft.fail(res.Err.MessageOr(msgLoginFailed))
		return nil, nil
	}

	otp, err := c.gw.SendOTP(ctx, form.Email, gateway.OTPEmailVerification)
	if err != nil {
		log.Err(err).Msg("[flows Login] sending verification code failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if !otp.Ok() {
		c.draft.fail(otp.Err.MessageOr(msgLoginOTPError))
		return nil, nil
	}

	c.draft.succeed("")
	return Push(OTPPath(form.Email, DashboardPath)), nil
}
