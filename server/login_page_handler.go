package server

import (
	"net/http"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/internal/errors"
)

// googleButton is the "Continue with Google" form embedded in the login and signup pages.
type googleButton struct {
	View flows.View[struct{}]
	From string
}

type loginBody struct {
	Form   flows.View[flows.LoginForm]
	Google googleButton
}

type signupBody struct {
	Form   flows.View[flows.SignUpForm]
	Google googleButton
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, c *browser.Client, status int) {
	p := s.newPage(r, "Sign in", loginBody{
		Form:   c.Login.View(),
		Google: googleButton{View: c.Google.View(), From: RouteLogin},
	})
	p.Action = RouteLogin
	s.render(w, status, pageLogin, p)
}

func (s *Server) renderSignup(w http.ResponseWriter, r *http.Request, c *browser.Client, status int) {
	p := s.newPage(r, "Create account", signupBody{
		Form:   c.SignUp.View(),
		Google: googleButton{View: c.Google.View(), From: RouteSignup},
	})
	p.Action = RouteSignup
	s.render(w, status, pageSignup, p)
}

// submitted finishes a form POST: a navigation is followed, anything else re-renders the
// form with the coordinator's messages. A submission refused as in flight gets a 409.
func submitted(w http.ResponseWriter, r *http.Request, nav *flows.Navigation, err error, rerender func(status int)) {
	if errors.Is(err, flows.ErrInFlight) {
		rerender(http.StatusConflict)
		return
	}
	if navigate(w, r, nav) {
		return
	}
	rerender(http.StatusOK)
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.Login.Mount()
		c.Google.Mount()
		s.renderLogin(w, r, c, http.StatusOK)
	}
}

// LoginSubmissionHandler signs in with email and password (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		nav, err := c.Login.Submit(r.Context(), flows.LoginForm{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		})
		submitted(w, r, nav, err, func(status int) {
			s.renderLogin(w, r, c, status)
		})
	}
}

// SignupPageHandler renders the signup page (GET /signup)
func (s *Server) SignupPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.SignUp.Mount()
		c.Google.Mount()
		s.renderSignup(w, r, c, http.StatusOK)
	}
}

// SignupSubmissionHandler handles registration form submission (POST /signup)
func (s *Server) SignupSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		nav, err := c.SignUp.Submit(r.Context(), flows.SignUpForm{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Confirm:  r.PostFormValue("confirm"),
		})
		submitted(w, r, nav, err, func(status int) {
			s.renderSignup(w, r, c, status)
		})
	}
}
