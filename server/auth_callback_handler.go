package server

import (
	"net/http"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/gate"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// renderGoogleOrigin re-renders the page the Google button was pressed on.
func (s *Server) renderGoogleOrigin(w http.ResponseWriter, r *http.Request, c *browser.Client, from string, status int) {
	if from == RouteSignup {
		s.renderSignup(w, r, c, status)
		return
	}
	s.renderLogin(w, r, c, status)
}

// GoogleStartHandler begins "Continue with Google" (POST /auth/google). With Google credentials
// configured the portal runs the OIDC code exchange itself; otherwise the provider drives it.
func (s *Server) GoogleStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}
		from := r.PostFormValue("from")

		if s.google != nil {
			authURL, err := s.google.AuthCodeURL(r.Context(), c.ID, flows.DashboardPath)
			if err != nil {
				log.Err(err).Msg("[server GoogleStartHandler] auth code url")
				c.Google.Fail()
				s.renderGoogleOrigin(w, r, c, from, http.StatusOK)
				return
			}
			gate.Redirect(w, r, authURL)
			return
		}

		nav, err := c.Google.Start(r.Context(), s.config.GetBaseURL()+flows.DashboardPath)
		submitted(w, r, nav, err, func(status int) {
			s.renderGoogleOrigin(w, r, c, from, status)
		})
	}
}

// GoogleCallbackHandler completes the local OIDC exchange (GET /auth/google/callback)
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		if s.google == nil {
			http.NotFound(w, r)
			return
		}

		fail := func() {
			c.Login.Mount()
			c.Google.Fail()
			s.renderLogin(w, r, c, http.StatusOK)
		}

		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			log.Debug().Str("error", e).Str("description", q.Get("error_description")).Msg("[server GoogleCallbackHandler] google refused")
			fail()
			return
		}

		tok, returnURL, err := s.google.Exchange(r.Context(), c.ID, q.Get("state"), q.Get("code"))
		if err != nil {
			log.Err(err).Msg("[server GoogleCallbackHandler] exchange")
			fail()
			return
		}

		nav, err := c.Google.Complete(r.Context(), tok)
		if errors.Is(err, flows.ErrInFlight) {
			s.renderLogin(w, r, c, http.StatusConflict)
			return
		}
		if nav != nil {
			nav.Path = flows.SafeRedirect(returnURL)
		}
		if !navigate(w, r, nav) {
			c.Login.Mount()
			s.renderLogin(w, r, c, http.StatusOK)
		}
	}
}
