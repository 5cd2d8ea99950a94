package flows

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/rs/zerolog/log"
)

const (
	msgOTPMissingEmail = "Missing email information. Go back and start again."
	msgOTPBadLength    = "Enter the 6-digit code."
	msgOTPUnsupported  = "Unsupported verification flow."
	msgOTPVerifyFailed = "Unable to verify code. Please try again."
	msgOTPVerified     = "Email verified! Redirecting you now..."
	msgOTPResent       = "Sent a new code to your inbox."
	msgOTPResendFailed = "Unable to resend code. Please try again."
)

// OTPParams are the navigation parameters the OTP page was opened with.
type OTPParams struct {
	Email    string
	Intent   Intent
	Redirect string
}

type OTPFields struct {
	OTPParams
	Code string
}

// OTPView adds the resend flag to the draft view.
type OTPView struct {
	View[OTPFields]
	Resending bool
}

// OTP verifies an emailed code. Verify and Resend have separate in-flight flags and
// share the draft's messages.
type OTP struct {
	gw        Gateway
	refresher Refresher
	draft     Draft[OTPFields]
	resend    guard
}

func NewOTP(gw Gateway, refresher Refresher) *OTP {
	return &OTP{gw: gw, refresher: refresher}
}

// Mount resets the code and messages for a new page view. A missing intent means verify-email.
func (c *OTP) Mount(p OTPParams) {
	if p.Intent == "" {
		p.Intent = IntentVerifyEmail
	}
	c.draft.mount(OTPFields{OTPParams: p})
}

func (c *OTP) View() OTPView {
	return OTPView{View: c.draft.View(), Resending: c.resend.active()}
}

func (c *OTP) Verify(ctx context.Context, code string) (*Navigation, error) {
	f, ok := c.draft.begin(func(f *OTPFields) { f.Code = strings.TrimSpace(code) })
	if !ok {
		return nil, ErrInFlight
	}

	switch {
	case f.Email == "":
		c.draft.fail(msgOTPMissingEmail)
		return nil, nil
	case utf8.RuneCountInString(f.Code) != OTPLength:
		c.draft.fail(msgOTPBadLength)
		return nil, nil
	case f.Intent != IntentVerifyEmail:
		c.draft.fail(msgOTPUnsupported)
		return nil, nil
	}

	res, err := c.gw.VerifyOTP(detach(ctx), f.Email, f.Code)
	if err != nil {
		log.Err(err).Msg("[flows OTP Verify] provider call failed")
		c.draft.fail(msgOTPVerifyFailed)
		return nil, nil
	}
	if !res.Ok() {
		c.draft.fail(res.Err.MessageOr(msgOTPVerifyFailed))
		return nil, nil
	}

	c.refresher.RequestRefresh()
	c.draft.succeed(msgOTPVerified)
	return ReplaceWith(SafeRedirect(f.Redirect)), nil
}

// Resend asks the provider for a new code. It does nothing without an email.
func (c *OTP) Resend(ctx context.Context) error {
	if !c.resend.acquire() {
		return ErrInFlight
	}
	defer c.resend.release()

	email := c.draft.View().Fields.Email
	if email == "" {
		return nil
	}
	c.draft.setMessage("", "")

	res, err := c.gw.SendOTP(detach(ctx), email, gateway.OTPEmailVerification)
	switch {
	case err != nil:
		log.Err(err).Msg("[flows OTP Resend] provider call failed")
		c.draft.setMessage(msgOTPResendFailed, "")
	case !res.Ok():
		c.draft.setMessage(res.Err.MessageOr(msgOTPResendFailed), "")
	default:
		c.draft.setMessage("", msgOTPResent)
	}
	return nil
}
