// Package flows holds the form coordinators: one per auth action, each owning a Draft,
// validating locally and translating gateway outcomes into messages and navigation.
package flows

import (
	"context"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/jrsteele09/aural-portal/internal/errors"
)

// ErrInFlight is returned when a submission arrives while the previous one is still running.
// Nothing is sent and the draft's messages are left untouched.
var ErrInFlight = errors.New("submission already in flight")

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	OTPRoute      = "/otp"
	ResetRoute    = "/reset-password"

	MinPasswordLength = 8
	OTPLength         = 6
)

const msgUnexpected = "An unexpected error occurred"

// Gateway is the subset of the auth provider client the coordinators use.
type Gateway interface {
	SignUpWithPassword(ctx context.Context, in gateway.SignUpInput) (gateway.Result[gateway.AuthPayload], error)
	SignInWithPassword(ctx context.Context, in gateway.SignInInput) (gateway.Result[gateway.AuthPayload], error)
	SignInWithOAuth(ctx context.Context, in gateway.OAuthInput) (gateway.Result[gateway.OAuthPayload], error)
	SignOut(ctx context.Context) (gateway.Result[gateway.SignOutPayload], error)
	SendOTP(ctx context.Context, email string, purpose gateway.OTPPurpose) (gateway.Result[gateway.StatusPayload], error)
	VerifyOTP(ctx context.Context, email, code string) (gateway.Result[gateway.AuthPayload], error)
	RequestPasswordReset(ctx context.Context, email, redirectURL string) (gateway.Result[gateway.StatusPayload], error)
	ResetPassword(ctx context.Context, token, newPassword string) (gateway.Result[gateway.StatusPayload], error)
}

// Refresher asks the session store to re-query the provider without waiting for it.
type Refresher interface {
	RequestRefresh()
}

// Intent is why an OTP page was opened. Only IntentVerifyEmail is supported.
type Intent string

const IntentVerifyEmail Intent = "verify-email"

// OTPPath builds the OTP page URL for email verification. redirect is omitted when empty.
func OTPPath(email, redirect string) string {
	p := OTPRoute + "?intent=" + string(IntentVerifyEmail) + "&email=" + url.QueryEscape(email)
	if redirect != "" {
		p += "&redirect=" + url.QueryEscape(redirect)
	}
	return p
}

// SafeRedirect returns target when it is a same-origin relative path and DashboardPath
// otherwise. Browsers drop tabs and newlines and read backslashes as slashes, so targets
// containing either are rejected outright.
func SafeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") ||
		strings.ContainsFunc(target, unicode.IsControl) ||
		strings.ContainsRune(target, '\\') {
		return DashboardPath
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "//") {
		return DashboardPath
	}
	return target
}

func passwordTooShort(pw string) bool {
	return utf8.RuneCountInString(pw) < MinPasswordLength
}

// detach drops the caller's cancellation. The gateway timeout still bounds the call.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
