package server

import (
	"net/http"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/internal/errors"
)

type otpBody struct {
	View         flows.OTPView
	ResendAction string
}

func otpParams(r *http.Request) flows.OTPParams {
	q := r.URL.Query()
	return flows.OTPParams{
		Email:    q.Get("email"),
		Intent:   flows.Intent(q.Get("intent")),
		Redirect: q.Get("redirect"),
	}
}

// mountOTPFor remounts the OTP draft when the page's query names a different email than the
// one mounted, e.g. after the client was swept between page view and submit.
func mountOTPFor(c *browser.Client, r *http.Request) {
	p := otpParams(r)
	if c.OTP.View().Fields.Email != p.Email {
		c.OTP.Mount(p)
	}
}

func (s *Server) renderOTP(w http.ResponseWriter, r *http.Request, c *browser.Client, status int) {
	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}
	p := s.newPage(r, "Verify your email", otpBody{
		View:         c.OTP.View(),
		ResendAction: RouteOTPResend + query,
	})
	p.Action = RouteOTP + query
	s.render(w, status, pageOTP, p)
}

// OTPPageHandler renders the code entry page (GET /otp)
func (s *Server) OTPPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.OTP.Mount(otpParams(r))
		s.renderOTP(w, r, c, http.StatusOK)
	}
}

// OTPVerifyHandler checks the submitted code (POST /otp)
func (s *Server) OTPVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		mountOTPFor(c, r)
		nav, err := c.OTP.Verify(r.Context(), r.PostFormValue("code"))
		submitted(w, r, nav, err, func(status int) {
			s.renderOTP(w, r, c, status)
		})
	}
}

// OTPResendHandler mails a new code (POST /otp/resend)
func (s *Server) OTPResendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}

		mountOTPFor(c, r)
		status := http.StatusOK
		if err := c.OTP.Resend(r.Context()); errors.Is(err, flows.ErrInFlight) {
			status = http.StatusConflict
		}
		s.renderOTP(w, r, c, status)
	}
}
