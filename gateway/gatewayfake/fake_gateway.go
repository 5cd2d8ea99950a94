package gatewayfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/aural-portal/gateway"
)

// Call records one invocation of the fake.
type Call struct {
	Op          string
	Email       string
	Password    string
	Code        string
	Token       string
	RedirectURL string
	Purpose     gateway.OTPPurpose
	OAuth       gateway.OAuthInput
}

// Gateway is a programmable in-memory stand-in for gateway.Client.
// Every operation succeeds with zero data unless its Fn field is set.
type Gateway struct {
	SignUpFn        func(context.Context, gateway.SignUpInput) (gateway.Result[gateway.AuthPayload], error)
	SignInFn        func(context.Context, gateway.SignInInput) (gateway.Result[gateway.AuthPayload], error)
	OAuthFn         func(context.Context, gateway.OAuthInput) (gateway.Result[gateway.OAuthPayload], error)
	SignOutFn       func(context.Context) (gateway.Result[gateway.SignOutPayload], error)
	SendOTPFn       func(context.Context, string, gateway.OTPPurpose) (gateway.Result[gateway.StatusPayload], error)
	VerifyOTPFn     func(context.Context, string, string) (gateway.Result[gateway.AuthPayload], error)
	RequestResetFn  func(context.Context, string, string) (gateway.Result[gateway.StatusPayload], error)
	ResetPasswordFn func(context.Context, string, string) (gateway.Result[gateway.StatusPayload], error)
	GetSessionFn    func(context.Context) (gateway.Result[*gateway.SessionPayload], error)

	// OnSessionChange mirrors gateway.WithSessionListener.
	OnSessionChange func()

	lock  sync.Mutex
	calls []Call
}

func New() *Gateway {
	return &Gateway{}
}

// Calls returns a copy of every recorded call, oldest first.
func (g *Gateway) Calls() []Call {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]Call(nil), g.calls...)
}

// Count returns how many times op was called.
func (g *Gateway) Count(op string) int {
	g.lock.Lock()
	defer g.lock.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Last returns the most recent call of op.
func (g *Gateway) Last(op string) (Call, bool) {
	g.lock.Lock()
	defer g.lock.Unlock()
	for i := len(g.calls) - 1; i >= 0; i-- {
		if g.calls[i].Op == op {
			return g.calls[i], true
		}
	}
	return Call{}, false
}

func (g *Gateway) notify() {
	if g.OnSessionChange != nil {
		g.OnSessionChange()
	}
}

func (g *Gateway) record(c Call) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.calls = append(g.calls, c)
}

func (g *Gateway) SignUpWithPassword(ctx context.Context, in gateway.SignUpInput) (gateway.Result[gateway.AuthPayload], error) {
	g.record(Call{Op: "SignUpWithPassword", Email: in.Email, Password: in.Password})
	res := gateway.Success(gateway.AuthPayload{User: &gateway.User{ID: "user-1", Email: in.Email, Name: in.Name}})
	var err error
	if g.SignUpFn != nil {
		res, err = g.SignUpFn(ctx, in)
	}
	if err == nil && res.Ok() && res.Data.Token != "" {
		g.notify()
	}
	return res, err
}

func (g *Gateway) SignInWithPassword(ctx context.Context, in gateway.SignInInput) (gateway.Result[gateway.AuthPayload], error) {
	g.record(Call{Op: "SignInWithPassword", Email: in.Email, Password: in.Password})
	res := gateway.Success(gateway.AuthPayload{Token: "session-token", User: &gateway.User{ID: "user-1", Email: in.Email, EmailVerified: true}})
	var err error
	if g.SignInFn != nil {
		res, err = g.SignInFn(ctx, in)
	}
	if err == nil && res.Ok() {
		g.notify()
	}
	return res, err
}

func (g *Gateway) SignInWithOAuth(ctx context.Context, in gateway.OAuthInput) (gateway.Result[gateway.OAuthPayload], error) {
	g.record(Call{Op: "SignInWithOAuth", OAuth: in})
	res := gateway.Success(gateway.OAuthPayload{URL: "https://accounts.example.com/authorize", Redirect: true})
	var err error
	if g.OAuthFn != nil {
		res, err = g.OAuthFn(ctx, in)
	}
	if err == nil && res.Ok() && res.Data.Token != "" {
		g.notify()
	}
	return res, err
}

func (g *Gateway) SignOut(ctx context.Context) (gateway.Result[gateway.SignOutPayload], error) {
	g.record(Call{Op: "SignOut"})
	res := gateway.Success(gateway.SignOutPayload{Success: true})
	var err error
	if g.SignOutFn != nil {
		res, err = g.SignOutFn(ctx)
	}
	if err == nil && res.Ok() {
		g.notify()
	}
	return res, err
}

func (g *Gateway) SendOTP(ctx context.Context, email string, purpose gateway.OTPPurpose) (gateway.Result[gateway.StatusPayload], error) {
	g.record(Call{Op: "SendOTP", Email: email, Purpose: purpose})
	if g.SendOTPFn != nil {
		return g.SendOTPFn(ctx, email, purpose)
	}
	return gateway.Success(gateway.StatusPayload{Success: true}), nil
}

func (g *Gateway) VerifyOTP(ctx context.Context, email, code string) (gateway.Result[gateway.AuthPayload], error) {
	g.record(Call{Op: "VerifyOTP", Email: email, Code: code})
	res := gateway.Success(gateway.AuthPayload{Token: "session-token", User: &gateway.User{ID: "user-1", Email: email, EmailVerified: true}})
	var err error
	if g.VerifyOTPFn != nil {
		res, err = g.VerifyOTPFn(ctx, email, code)
	}
	if err == nil && res.Ok() {
		g.notify()
	}
	return res, err
}

func (g *Gateway) RequestPasswordReset(ctx context.Context, email, redirectURL string) (gateway.Result[gateway.StatusPayload], error) {
	g.record(Call{Op: "RequestPasswordReset", Email: email, RedirectURL: redirectURL})
	if g.RequestResetFn != nil {
		return g.RequestResetFn(ctx, email, redirectURL)
	}
	return gateway.Success(gateway.StatusPayload{Status: true}), nil
}

func (g *Gateway) ResetPassword(ctx context.Context, token, newPassword string) (gateway.Result[gateway.StatusPayload], error) {
	g.record(Call{Op: "ResetPassword", Token: token, Password: newPassword})
	if g.ResetPasswordFn != nil {
		return g.ResetPasswordFn(ctx, token, newPassword)
	}
	return gateway.Success(gateway.StatusPayload{Status: true}), nil
}

func (g *Gateway) GetSession(ctx context.Context) (gateway.Result[*gateway.SessionPayload], error) {
	g.record(Call{Op: "GetSession"})
	if g.GetSessionFn != nil {
		return g.GetSessionFn(ctx)
	}
	return gateway.Success[*gateway.SessionPayload](nil), nil
}
