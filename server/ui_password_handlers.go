package server

import (
	"net/http"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/internal/errors"
)

func (s *Server) renderForgotPassword(w http.ResponseWriter, r *http.Request, c *browser.Client, status int) {
	s.render(w, status, pageForgotPassword, s.newPage(r, "Forgot password", c.ForgotPassword.View()))
}

func resetParams(r *http.Request) flows.ResetParams {
	q := r.URL.Query()
	return flows.ResetParams{Token: q.Get("token"), HasError: q.Has("error")}
}

// ForgotPasswordPageHandler renders the forgot-password page (GET /forgot-password)
func (s *Server) ForgotPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.ForgotPassword.Mount()
		s.renderForgotPassword(w, r, c, http.StatusOK)
	}
}

// ForgotPasswordSubmissionHandler asks the provider to mail a reset link (POST /forgot-password).
// The link's origin is the configured base URL, never the request's Host header.
func (s *Server) ForgotPasswordSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		status := http.StatusOK
		err := c.ForgotPassword.Submit(r.Context(), r.PostFormValue("email"), s.config.GetBaseURL())
		if errors.Is(err, flows.ErrInFlight) {
			status = http.StatusConflict
		}
		s.renderForgotPassword(w, r, c, status)
	}
}

// ResetPasswordPageHandler renders the new-password page the reset link lands on (GET /reset-password)
func (s *Server) ResetPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.ResetPassword.Mount(resetParams(r))
		s.render(w, http.StatusOK, pageResetPassword, s.newPage(r, "Reset password", c.ResetPassword.View()))
	}
}

// ResetPasswordSubmissionHandler sets the new password (POST /reset-password)
func (s *Server) ResetPasswordSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		if p := resetParams(r); c.ResetPassword.View().Fields.Token != p.Token {
			c.ResetPassword.Mount(p)
		}
		nav, err := c.ResetPassword.Submit(r.Context(), r.PostFormValue("password"), r.PostFormValue("confirm"))
		submitted(w, r, nav, err, func(status int) {
			p := s.newPage(r, "Reset password", c.ResetPassword.View())
			if nav != nil {
				p = p.withRefresh(nav.Path, nav.Delay)
			}
			s.render(w, status, pageResetPassword, p)
		})
	}
}
