package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/aural-portal/browser"
	"github.com/jrsteele09/aural-portal/gate"
	"github.com/jrsteele09/aural-portal/googleauth"
	"github.com/jrsteele09/aural-portal/internal/config"
	"github.com/jrsteele09/aural-portal/session"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	clients *browser.Registry
	google  *googleauth.Handshake // nil when Google credentials are not configured
	gate    *gate.Gate
	cookies *clientCookies
	pages   *pages
}

// New builds the portal server. google may be nil, in which case "Continue with Google"
// is handed to the auth provider's own redirect flow.
func New(config config.Config, clients *browser.Registry, google *googleauth.Handshake) (*Server, error) {
	cookies, err := newClientCookies(config.GetAppSecret(), clients.TTL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] client cookies: %w", err)
	}
	parsed, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] templates: %w", err)
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		clients: clients,
		google:  google,
		cookies: cookies,
		pages:   parsed,
	}
	s.gate = gate.New(s.storeForRequest,
		gate.WithWait(config.GetGateWait()),
		gate.WithMaxAge(config.GetSessionMaxAge()),
		gate.WithResolvingHandler(s.ResolvingHandler()),
	)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) storeForRequest(r *http.Request) (*session.Store, error) {
	c, ok := clientFrom(r.Context())
	if !ok {
		return nil, fmt.Errorf("[server storeForRequest] no browser client on request")
	}
	return c.Store, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Error().Msgf("[%-19s] %s %s", displayMethod, path, Red+error+ResetColor)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
