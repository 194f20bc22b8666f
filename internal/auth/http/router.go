package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/internal/auth/store"
	"github.com/stardiary/stardiary/pkg/httpx"
	"github.com/stardiary/stardiary/pkg/jwtx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	env          string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService        *service.AuthService
	StaffService       *service.StaffAuthService
	ChildAccessService *service.ChildAccessService
}

func NewRouter(
	codec *jwtx.Codec,
	env, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		env:          env,
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
	r.registerChildren()
	r.registerStaff()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// cookies returns the refresh-cookie policy for the given path. Secure is
// only enforced outside local development.
func (r *Router) cookies(path string) cookieConfig {
	return cookieConfig{
		Path:   path,
		Secure: r.env == "prod",
		MaxAge: r.codec.RefreshTTL,
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, Cookies: r.cookies(authCookiePath)}
	child := &ChildLoginHandler{ChildAccessService: r.ChildAccessService, Cookies: r.cookies(authCookiePath)}

	// POST /register - very low limit per IP, accounts are not created in bulk
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.RegistrationLimit),
		),
	)

	// Credential-bearing endpoints get the strict per-IP limit
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/child-qr",
		httpx.Chain(http.HandlerFunc(child.HandleQR),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/child-pin",
		httpx.Chain(http.HandlerFunc(child.HandlePIN),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// PIN setup needs a live child session
	r.Mux.Handle("POST /v1/auth/child-pin/set",
		httpx.Chain(http.HandlerFunc(child.HandleSetPIN),
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireAnyRole("child"),
			httpx.RateLimitBySubject(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(&MeHandler{},
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerChildren() {
	h := &ChildAccessHandler{ChildAccessService: r.ChildAccessService}

	// Issuing a grant invalidates the previous QR and PIN, so keep it behind
	// the parent/admin roles and a per-subject limit.
	r.Mux.Handle("POST /v1/children/{id}/access",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireAnyRole("parent", "admin"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerStaff() {
	h := &StaffAuthHandler{StaffService: r.StaffService, Cookies: r.cookies(staffCookiePath)}

	r.Mux.Handle("POST /v1/staff/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/staff/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/staff/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Identity echo for staff consoles. The is_staff claim gate keeps product
	// tokens out even when a staff id and account id collide.
	r.Mux.Handle("GET /v1/staff/me",
		httpx.Chain(&MeHandler{},
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireStaff(),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient limits, monitoring may poll often
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
