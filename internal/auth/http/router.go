package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/service"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/httpx"
	"github.com/sysdesk/sysdesk/pkg/slogx"

	_ "github.com/sysdesk/sysdesk/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	authzMode    domain.AuthzMode

	store            store.Store
	TokenService     *service.TokenService
	SessionService   *service.SessionService
	InviteService    *service.InviteService
	BootstrapService *service.BootstrapService
}

func NewRouter(
	buildVersion string,
	authzMode domain.AuthzMode,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		authzMode:    authzMode,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInvites()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
//
//	@title			SysDesk Authentication Service API
//	@version		0.1.0
//	@description	Multi-tenant helpdesk authentication: credential login with
//	@description	lockout, rotating refresh tokens, session revocation, and
//	@description	invite-gated registration. Access tokens are HS256 JWTs whose
//	@description	sessions are re-checked against the store on every request.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential and token endpoints take the strictest limits; they are the
	// ones worth brute-forcing.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(&LoginHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(&LogoutHandler{TokenService: r.TokenService},
			r.requireAuth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/logout-all",
		httpx.Chain(&LogoutAllHandler{TokenService: r.TokenService},
			r.requireAuth,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/register-by-invite",
		httpx.Chain(&RegisterHandler{InviteService: r.InviteService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /bootstrap",
		httpx.Chain(&BootstrapHandler{BootstrapService: r.BootstrapService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerInvites() {
	r.Mux.Handle("POST /invites",
		httpx.Chain(&InviteCreateHandler{InviteService: r.InviteService, Store: r.store},
			r.requireAuth,
			r.requireRole(domain.RoleOperator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /invites/validate",
		httpx.Chain(&InviteValidateHandler{InviteService: r.InviteService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /invites/{id}",
		httpx.Chain(&InviteDeleteHandler{InviteService: r.InviteService},
			r.requireAuth,
			r.requireRole(domain.RoleOperator),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
