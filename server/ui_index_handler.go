package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/flows"
	"github.com/jrsteele09/aural-portal/gate"
	"github.com/jrsteele09/aural-portal/session"
)

type indexBody struct {
	SignedIn bool
}

type dashboardBody struct {
	Session *session.Session
	SignOut flows.View[struct{}]
}

// IndexHandler serves the public landing page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		body := indexBody{SignedIn: c.Store.Snapshot().SignedIn()}
		p := s.newPage(r, s.config.GetAppName(), body)
		p.Wide = true
		s.render(w, http.StatusOK, pageIndex, p)
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, c *browser.Client, status int) {
	sess, _ := gate.SessionFrom(r.Context())
	p := s.newPage(r, "Dashboard", dashboardBody{Session: sess, SignOut: c.SignOut.View()})
	p.Action = RouteLogout
	s.render(w, status, pageDashboard, p)
}

// DashboardHandler is the authenticated landing page
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		c.SignOut.Mount()
		s.renderDashboard(w, r, c, http.StatusOK)
	}
}

// LogoutHandler signs the browser out (POST /logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		nav, err := c.SignOut.Submit(r.Context())
		submitted(w, r, nav, err, func(status int) {
			s.renderDashboard(w, r, c, status)
		})
	}
}

// ResolvingHandler is shown by the gate while the session is still unknown. It reloads the
// requested page every second.
func (s *Server) ResolvingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.RequestURI()
		if r.Method != http.MethodGet {
			target = r.URL.Path
		}
		p := s.newPage(r, "Loading", nil).withRefresh(target, time.Second)
		p.Watch = false
		s.render(w, http.StatusOK, pageResolving, p)
	}
}
