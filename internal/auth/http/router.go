package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/gatehouse/internal/auth/domain"
	"github.com/halcyonlabs/gatehouse/internal/auth/service"
	"github.com/halcyonlabs/gatehouse/internal/auth/store"
	"github.com/halcyonlabs/gatehouse/pkg/httpx"
	"github.com/halcyonlabs/gatehouse/pkg/slogx"
)

const apiPrefix = "/api/v1"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	SessionService   *service.SessionService
	TokenService     *service.TokenService
	TwoFactorService *service.TwoFactorService
	UserService      *service.UserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerUsers()
	r.registerRoles()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /auth/register - strict rate limit by IP (account creation)
	registerHandler := &RegisterHandler{Sessions: r.SessionService}
	r.Mux.Handle("POST "+apiPrefix+"/auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login - strict rate limit by IP (password guessing)
	loginHandler := &LoginHandler{Sessions: r.SessionService}
	r.Mux.Handle("POST "+apiPrefix+"/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/refresh-token - moderate rate limit by IP
	refreshHandler := &RefreshHandler{Tokens: r.TokenService}
	r.Mux.Handle("POST "+apiPrefix+"/auth/refresh-token",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Logout is accepted on GET and POST; both are authenticated.
	logoutHandler := httpx.Chain(&LogoutHandler{Tokens: r.TokenService},
		Authn(r.TokenService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	r.Mux.Handle("GET "+apiPrefix+"/auth/logout", logoutHandler)
	r.Mux.Handle("POST "+apiPrefix+"/auth/logout", logoutHandler)
}

func (r *Router) registerTwoFactor() {
	// POST /auth/2fa/validate - serves both the anonymous step-up leg and
	// the authenticated activation leg, so authn is optional here and the
	// rate limit is strict by IP (code guessing).
	validateHandler := &TwoFactorValidateHandler{
		Sessions:  r.SessionService,
		TwoFactor: r.TwoFactorService,
	}
	r.Mux.Handle("POST "+apiPrefix+"/auth/2fa/validate",
		httpx.Chain(validateHandler,
			OptionalAuthn(r.TokenService),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /auth/2fa/generate - authenticated, moderate rate limit by user
	generateHandler := &TwoFactorGenerateHandler{TwoFactor: r.TwoFactorService}
	r.Mux.Handle("GET "+apiPrefix+"/auth/2fa/generate",
		httpx.Chain(generateHandler,
			Authn(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /auth/2fa/disable - authenticated, strict rate limit by user
	disableHandler := &TwoFactorDisableHandler{TwoFactor: r.TwoFactorService}
	r.Mux.Handle("POST "+apiPrefix+"/auth/2fa/disable",
		httpx.Chain(disableHandler,
			Authn(r.TokenService),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &CurrentUserHandler{Users: r.UserService}

	r.Mux.Handle("GET "+apiPrefix+"/users/current",
		httpx.Chain(h,
			Authn(r.TokenService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerRoles() {
	// The admin area admits admins only; the moderator area admits both
	// moderators and admins.
	r.Mux.Handle("GET "+apiPrefix+"/roles/admin",
		httpx.Chain(&RoleAreaHandler{Greeting: "Welcome Admin"},
			Authn(r.TokenService),
			RequireRole(r.UserService, domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET "+apiPrefix+"/roles/moderator",
		httpx.Chain(&RoleAreaHandler{Greeting: "Welcome Moderator"},
			Authn(r.TokenService),
			RequireRole(r.UserService, domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
