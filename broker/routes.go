package broker

// Route path constants
// All broker routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex         = "/"
	RouteHealth        = "/health"
	RoutePrivacyPolicy = "/privacy-policy"
	RouteTermsOfUse    = "/tos"

	// Auth Routes
	RouteAuthStart    = "/auth/start"
	RouteAuthCallback = "/auth/callback"
	RouteAuthPoll     = "/auth/poll/{session_id}"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, s.IndexHandler())
	s.RegisterRouteFunc("GET "+RoutePrivacyPolicy, s.PrivacyPolicyHandler())
	s.RegisterRouteFunc("GET "+RouteTermsOfUse, s.TermsOfUseHandler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// The callback is driven by the user's browser and is not rate
	// limited; start and poll face programmatic clients and are.
	s.RegisterRouteHandler("GET "+RouteAuthCallback,
		ChainMiddleware(s.CallbackHandler(), s.BaseMiddleware()...))

	startLimiter := newIPRateLimiter(perMinute(s.config.GetStartRatePerMinute()), s.config.GetRateBurst())
	s.RegisterRouteHandler("POST "+RouteAuthStart,
		ChainMiddleware(s.StartHandler(), append(s.BaseMiddleware(), s.RateLimitMiddleware(startLimiter))...))

	pollLimiter := newIPRateLimiter(perMinute(s.config.GetPollRatePerMinute()), s.config.GetRateBurst())
	s.RegisterRouteHandler("GET "+RouteAuthPoll,
		ChainMiddleware(s.PollHandler(), append(s.BaseMiddleware(), s.RateLimitMiddleware(pollLimiter))...))
}
