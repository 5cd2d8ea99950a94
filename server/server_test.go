package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/jrsteele09/aural-portal/gateway/gatewayfake"
	"github.com/jrsteele09/aural-portal/internal/config"
	"github.com/stretchr/testify/require"
)

const testPassword = "password1"

// fakeProvider hands every browser client a fake gateway that remembers who signed in.
type fakeProvider struct {
	mu       sync.Mutex
	gateways []*gatewayfake.Gateway
}

func (p *fakeProvider) factory(onSessionChange func()) (browser.Gateway, error) {
	gw := gatewayfake.New()
	gw.OnSessionChange = onSessionChange

	var mu sync.Mutex
	var user *gateway.User

	gw.SignInFn = func(ctx context.Context, in gateway.SignInInput) (gateway.Result[gateway.AuthPayload], error) {
		if in.Password != testPassword {
			return gateway.Failure[gateway.AuthPayload](&gateway.Error{Status: http.StatusUnauthorized, Message: "Invalid email or password"}), nil
		}
		mu.Lock()
		defer mu.Unlock()
		user = &gateway.User{ID: "u1", Email: in.Email, Name: "Ada", EmailVerified: true}
		return gateway.Success(gateway.AuthPayload{Token: "session-token", User: user}), nil
	}
	gw.SignOutFn = func(ctx context.Context) (gateway.Result[gateway.SignOutPayload], error) {
		mu.Lock()
		defer mu.Unlock()
		user = nil
		return gateway.Success(gateway.SignOutPayload{Success: true}), nil
	}
	gw.GetSessionFn = func(ctx context.Context) (gateway.Result[*gateway.SessionPayload], error) {
		mu.Lock()
		defer mu.Unlock()
		if user == nil {
			return gateway.Failure[*gateway.SessionPayload](&gateway.Error{Status: http.StatusUnauthorized}), nil
		}
		return gateway.Success(&gateway.SessionPayload{
			Session: gateway.ProviderSession{ID: "s1", UserID: user.ID},
			User:    *user,
		}), nil
	}

	p.mu.Lock()
	p.gateways = append(p.gateways, gw)
	p.mu.Unlock()
	return gw, nil
}

func (p *fakeProvider) last(t *testing.T) *gatewayfake.Gateway {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.gateways)
	return p.gateways[len(p.gateways)-1]
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.gateways)
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("APP_SECRET", "test-secret")
	t.Setenv("BASE_URL", "http://portal.test")
	t.Setenv("GATE_WAIT", "2s")

	c, err := config.New()
	require.NoError(t, err)

	p := &fakeProvider{}
	clients := browser.NewRegistry(browser.NewInMemoryRepo(), p.factory, browser.WithResetRedirectDelay(1500*time.Millisecond))
	s, err := New(c, clients, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	hc := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: ts, client: hc, provider: p}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	e.get(t, RouteLogin)
	resp, _ := e.post(t, RouteLogin, url.Values{"email": {"ada@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteDashboard, resp.Header.Get("Location"))
}

func TestLoginPage_SetsClientCookie(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, RouteLogin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sign in")
	require.Contains(t, body, "Continue with Google")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == clientCookieName {
			found = true
			require.True(t, c.HttpOnly)
		}
	}
	require.True(t, found, "client cookie not set")

	// the same browser keeps its client
	e.get(t, RouteLogin)
	require.Equal(t, 1, e.provider.count())
}

func TestLogin_WrongPasswordShowsProviderMessage(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteLogin)

	resp, body := e.post(t, RouteLogin, url.Values{"email": {"ada@example.com"}, "password": {"nope-nope"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Invalid email or password")
	require.Contains(t, body, `value="ada@example.com"`)
}

func TestLogin_ThenDashboardThenLogout(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)

	resp, body := e.get(t, RouteDashboard)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "ada@example.com")
	require.Contains(t, body, `data-session-key="u1:verified"`)

	// signed in users are bounced off the login page
	resp, _ = e.get(t, RouteLogin)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteDashboard, resp.Header.Get("Location"))

	resp, _ = e.post(t, RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteLogin, resp.Header.Get("Location"))

	resp, _ = e.get(t, RouteDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteLogin, resp.Header.Get("Location"))
}

func TestDashboard_SignedOutRedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, RouteDashboard)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteLogin, resp.Header.Get("Location"))
}

func TestLogin_HTMXGetsHXRedirect(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteLogin)

	form := url.Values{"email": {"ada@example.com"}, "password": {testPassword}}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+RouteLogin, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	resp, _ := e.do(t, req)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, RouteDashboard, resp.Header.Get("HX-Redirect"))
}

func TestSignup_UnverifiedGoesToOTPThenVerifies(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteSignup)

	resp, _ := e.post(t, RouteSignup, url.Values{
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {testPassword},
		"confirm":  {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	otpPath := resp.Header.Get("Location")
	require.Equal(t, "/otp?intent=verify-email&email=ada%40example.com", otpPath)

	resp, body := e.get(t, otpPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "ada@example.com")

	resp, body = e.post(t, otpPath, url.Values{"code": {"12"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Enter the 6-digit code.")

	resp, _ = e.post(t, otpPath, url.Values{"code": {"123456"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, RouteDashboard, resp.Header.Get("Location"))

	call, ok := e.provider.last(t).Last("VerifyOTP")
	require.True(t, ok)
	require.Equal(t, "ada@example.com", call.Email)
	require.Equal(t, "123456", call.Code)
}

func TestSignup_MismatchedPasswords(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteSignup)

	resp, body := e.post(t, RouteSignup, url.Values{
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {testPassword},
		"confirm":  {"password2"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Passwords do not match")
	require.Equal(t, 0, e.provider.last(t).Count("SignUpWithPassword"))
}

func TestOTPResend(t *testing.T) {
	e := newTestEnv(t)
	path := "/otp?intent=verify-email&email=ada%40example.com"
	e.get(t, path)

	resp, body := e.post(t, RouteOTPResend+"?intent=verify-email&email=ada%40example.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Sent a new code to your inbox.")
	require.Contains(t, body, `action="/otp?intent=verify-email&amp;email=ada%40example.com"`)

	call, ok := e.provider.last(t).Last("SendOTP")
	require.True(t, ok)
	require.Equal(t, gateway.OTPEmailVerification, call.Purpose)
}

func TestForgotPassword_UsesConfiguredOrigin(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteForgotPassword)

	resp, body := e.post(t, RouteForgotPassword, url.Values{"email": {"ada@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Check your inbox for the reset link.")

	call, ok := e.provider.last(t).Last("RequestPasswordReset")
	require.True(t, ok)
	require.Equal(t, "http://portal.test/reset-password", call.RedirectURL)
}

func TestResetPassword(t *testing.T) {
	t.Run("invalid link", func(t *testing.T) {
		e := newTestEnv(t)
		resp, body := e.get(t, RouteResetPassword+"?error=INVALID_TOKEN")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "This reset link is invalid or has expired.")
	})

	t.Run("success redirects after a delay", func(t *testing.T) {
		e := newTestEnv(t)
		path := RouteResetPassword + "?token=tok-1"
		e.get(t, path)

		resp, body := e.post(t, path, url.Values{"password": {"newpassword"}, "confirm": {"newpassword"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "Password updated! Redirecting to login...")
		require.Contains(t, body, `data-redirect-to="/login"`)
		require.Contains(t, body, `data-redirect-after="1500"`)

		call, ok := e.provider.last(t).Last("ResetPassword")
		require.True(t, ok)
		require.Equal(t, "tok-1", call.Token)
	})
}

func TestGoogleStart_ProviderRedirect(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, RouteLogin)

	resp, _ := e.post(t, RouteGoogleStart, url.Values{"from": {RouteLogin}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "https://accounts.example.com/authorize", resp.Header.Get("Location"))

	call, ok := e.provider.last(t).Last("SignInWithOAuth")
	require.True(t, ok)
	require.Equal(t, "google", call.OAuth.Provider)
	require.Equal(t, "http://portal.test/dashboard", call.OAuth.CallbackURL)
}

func TestGoogleCallback_NotConfigured(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.get(t, RouteGoogleCallback+"?state=x&code=y")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRPC(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, RouteRPCHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"result":"ok"}`, body)
	require.Empty(t, resp.Cookies())
	require.Equal(t, 0, e.provider.count())

	resp, body = e.get(t, RouteRPCMe)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"error":{"code":"UNAUTHORIZED"}}`, body)

	e.signIn(t)
	resp, body = e.get(t, RouteRPCMe)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"email":"ada@example.com"`)
	require.Contains(t, body, `"emailVerified":true`)
}

func TestHealthAndStatic(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)
	require.Equal(t, 0, e.provider.count())

	resp, _ = e.get(t, "/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	require.NotEmpty(t, resp.Header.Get("Cache-Control"))

	resp, _ = e.get(t, "/js/missing.js")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionSocket_NotifiesOnIdentityChange(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)

	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range e.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// the page was rendered signed out; the browser is now signed in
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + RouteSessionSocket + "?k="
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer conn.CloseNow()

	var ev sessionEvent
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	require.Equal(t, "session-changed", ev.Type)
}

func TestClientCookies(t *testing.T) {
	c, err := newClientCookies("secret", time.Hour)
	require.NoError(t, err)

	value, err := c.sign("client-1", time.Now())
	require.NoError(t, err)
	id, err := c.clientID(value)
	require.NoError(t, err)
	require.Equal(t, "client-1", id)

	other, err := newClientCookies("another-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.clientID(value)
	require.Error(t, err)

	expired, err := c.sign("client-1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = c.clientID(expired)
	require.Error(t, err)

	_, err = newClientCookies("", time.Hour)
	require.Error(t, err)
}

func TestForgedCookieGetsNewClient(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequest(http.MethodGet, e.server.URL+RouteLogin, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: clientCookieName, Value: "not-a-jwt"})

	resp, _ := e.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reissued bool
	for _, c := range resp.Cookies() {
		if c.Name == clientCookieName && c.Value != "not-a-jwt" {
			reissued = true
		}
	}
	require.True(t, reissued)
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{}
	h := s.RecoverMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Collect audio. Keep ownership.")
	require.Contains(t, body, `href="/signup"`)

	e.signIn(t)
	// wait for the session the gate would have waited for
	e.get(t, RouteDashboard)
	_, body = e.get(t, "/")
	require.Contains(t, body, "Go to dashboard")

	resp, _ = e.get(t, "/no-such-page")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
