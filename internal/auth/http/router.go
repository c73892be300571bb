package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/plateful/auth/api/auth" // Swagger docs
	"github.com/plateful/auth/internal/auth/service"
	"github.com/plateful/auth/internal/auth/store"
	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/jwtx"
	"github.com/plateful/auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     *jwtx.TokenVerifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *service.SessionService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier *jwtx.TokenVerifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
//
//	@title			Plateful Auth Service API
//	@version		0.1.0
//	@description	Session and token lifecycle service for the Plateful platform:
//	@description	JWT issuance with device/IP binding, refresh rotation with
//	@description	revocation, and tiered step-up authentication.
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
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{Sessions: r.Sessions, Logger: r.logger}

	// Credential endpoints carry the strictest limits. Login is keyed by
	// IP + username so one address can't lock out an unrelated user.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Step-up codes are brute-forceable; strict per-user limit.
	r.Mux.Handle("POST /v1/auth/step-up",
		httpx.Chain(http.HandlerFunc(h.HandleStepUp),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/totp/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleTOTPEnroll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(http.HandlerFunc(h.HandleUserInfo),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
