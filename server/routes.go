package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/aural-portal/gate"
)

func (s *Server) initRoutes() {
	neutral := s.HTMLMiddleWare(s.gate.Require(gate.Neutral))
	unprotected := s.HTMLMiddleWare(s.gate.Require(gate.Unprotected))
	protected := s.HTMLMiddleWare(s.gate.Require(gate.Protected))

	s.RegisterRouteHandler("GET "+RouteHome+"{$}", ChainMiddleware(s.IndexHandler(), neutral...))

	// LOGIN / SIGNUP
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), unprotected...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), unprotected...))
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupPageHandler(), unprotected...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupSubmissionHandler(), unprotected...))

	// EMAIL VERIFICATION
	s.RegisterRouteHandler("GET "+RouteOTP, ChainMiddleware(s.OTPPageHandler(), neutral...))
	s.RegisterRouteHandler("POST "+RouteOTP, ChainMiddleware(s.OTPVerifyHandler(), neutral...))
	s.RegisterRouteHandler("POST "+RouteOTPResend, ChainMiddleware(s.OTPResendHandler(), neutral...))

	// PASSWORD RESET
	s.RegisterRouteHandler("GET "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordPageHandler(), neutral...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordSubmissionHandler(), neutral...))
	s.RegisterRouteHandler("GET "+RouteResetPassword, ChainMiddleware(s.ResetPasswordPageHandler(), neutral...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordSubmissionHandler(), neutral...))

	// DASHBOARD
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), protected...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), protected...))

	// GOOGLE
	s.RegisterRouteHandler("POST "+RouteGoogleStart, ChainMiddleware(s.GoogleStartHandler(), unprotected...))
	s.RegisterRouteHandler("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), neutral...))

	// SESSION PUSH
	s.RegisterRouteHandler("GET "+RouteSessionSocket, ChainMiddleware(s.SessionSocketHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteRPCHealth, ChainMiddleware(s.RPCHealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRPCMe, ChainMiddleware(s.RPCMeHandler(), s.APIMiddleware(s.BrowserClientMiddleware)...))

	static := s.StaticMiddleware()
	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), static...))
	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), static...))
	s.RegisterRouteHandler("GET "+RouteStaticImages, ChainMiddleware(s.serveFileHandler(), static...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
