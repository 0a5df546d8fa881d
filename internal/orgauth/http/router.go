package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/service"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/httpx"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"

	_ "github.com/aussiebroadwan/orgauth/api/orgauth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	cookie       CookieConfig

	Resolver            *service.SessionResolver
	Override            *service.OrgOverride
	TokenService        *service.TokenService
	OrganizationService *service.OrganizationService

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Instrument wraps the mux directly so it can read the matched pattern.
	Instrument httpx.Middleware
}

func NewRouter(
	signer jwtx.Signer,
	buildVersion string,
	st store.Store,
	cookie CookieConfig,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cookie:       cookie,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOrganizations()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Orgauth API
//	@version		0.1.0
//	@description	Multi-tenant authentication: password login, organization selection and switching, and role based permissions per organization.
//	@description
//	@description				Session tokens are HS256 JWTs bound to one organization. They are accepted from the access_token cookie or an Authorization bearer header.
//	@description				X-Organization-Id switches the active organization for a single request.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/orgauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.Mux
	if r.Instrument != nil {
		h = r.Instrument(h)
	}
	httpx.Chain(h, r.middlewares...).ServeHTTP(w, req)
}

// session authenticates the request with the session token only.
func (r *Router) session(h http.Handler, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{
		httpx.SessionMiddleware(r.Resolver, r.cookie.Name),
	}, mws...)
	return httpx.Chain(h, chain...)
}

// scoped authenticates the request and applies X-Organization-Id.
func (r *Router) scoped(h http.Handler, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{
		httpx.SessionMiddleware(r.Resolver, r.cookie.Name),
		httpx.OrgOverrideMiddleware(r.Override),
	}, mws...)
	return httpx.Chain(h, chain...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		TokenService:        r.TokenService,
		OrganizationService: r.OrganizationService,
		Cookie:              r.cookie,
	}

	// Credential and token exchange endpoints, strict limit by IP.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/select-organization",
		httpx.Chain(http.HandlerFunc(h.HandleSelectOrganization), httpx.RateLimitByIP(httpx.StrictLimit)))

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout), httpx.RateLimitByIP(httpx.LenientLimit)))

	r.Mux.Handle("POST /v1/auth/switch-organization",
		r.session(http.HandlerFunc(h.HandleSwitchOrganization), httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/auth/me",
		r.scoped(http.HandlerFunc(h.HandleMe), httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerOrganizations() {
	h := &OrganizationsHandler{OrganizationService: r.OrganizationService}
	settings := r.OrganizationService

	r.Mux.Handle("GET /v1/organizations",
		r.session(http.HandlerFunc(h.HandleList), httpx.RateLimitByUser(httpx.LenientLimit)))

	r.Mux.Handle("GET /v1/organizations/current/settings",
		r.scoped(http.HandlerFunc(h.HandleGetSettings), httpx.RateLimitByUser(httpx.LenientLimit)))

	r.Mux.Handle("PUT /v1/organizations/current/settings",
		r.scoped(http.HandlerFunc(h.HandleUpdateSettings),
			httpx.RequirePermission(rbac.PermManageMembers, settings),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))

	r.Mux.Handle("PUT /v1/organizations/current/members/{userID}/role",
		r.scoped(http.HandlerFunc(h.HandleChangeRole),
			httpx.RequirePermission(rbac.PermManageMembers, settings),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerSystem() {
	// Monitoring systems poll these frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
