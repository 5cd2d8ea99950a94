package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public pages
	RouteHome = "/"

	// Auth pages
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteOTP            = "/otp"
	RouteOTPResend      = "/otp/resend"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteLogout         = "/logout"

	// Authenticated landing page
	RouteDashboard = "/dashboard"

	// Google sign-in
	RouteGoogleStart    = "/auth/google"
	RouteGoogleCallback = "/auth/google/callback"

	// Session change push
	RouteSessionSocket = "/ws/session"

	// API Routes
	RouteHealth    = "/health"
	RouteRPCHealth = "/api/rpc/health"
	RouteRPCMe     = "/api/rpc/me"

	// Static Asset Routes (patterns)
	RouteStaticCSS    = "/css/{file}"
	RouteStaticJS     = "/js/{file}"
	RouteStaticImages = "/images/{file}"
)
