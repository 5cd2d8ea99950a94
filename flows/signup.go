package flows

import (
	"context"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/rs/zerolog/log"
)

const (
	msgSignUpMismatch = "Passwords do not match"
	msgSignUpTooShort = "Password must be at least 8 characters long"
	msgSignUpFailed   = "Failed to sign up"
)

type SignUpForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// SignUp creates an account and sends the user to verify their email unless the
// provider already reports it verified.
type SignUp struct {
	gw    Gateway
	draft Draft[SignUpForm]
}

func NewSignUp(gw Gateway) *SignUp {
	return &SignUp{gw: gw}
}

func (c *SignUp) Mount() {
	c.draft.mount(SignUpForm{})
}

func (c *SignUp) View() View[SignUpForm] {
	return c.draft.View()
}

func (c *SignUp) Submit(ctx context.Context, form SignUpForm) (*Navigation, error) {
	if _, ok := c.draft.begin(func(f *SignUpForm) { *f = form }); !ok {
		return nil, ErrInFlight
	}

	if form.Password != form.Confirm {
		c.draft.fail(msgSignUpMismatch)
		return nil, nil
	}
	if passwordTooShort(form.Password) {
		c.draft.fail(msgSignUpTooShort)
		return nil, nil
	}

	res, err := c.gw.SignUpWithPassword(detach(ctx), gateway.SignUpInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		log.Err(err).Msg("[flows SignUp] provider call failed")
		c.draft.fail(msgUnexpected)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgSignUpFailed))
		return nil, nil
	}

	c.draft.succeed("")
	if u := res.Data.User; u != nil && u.EmailVerified {
		return Push(DashboardPath), nil
	}
	return Push(OTPPath(form.Email, "")), nil
}
