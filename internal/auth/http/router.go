package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Router puts the security pipeline in front of the service mux. The
// pipeline answers the login, oauth and refresh endpoints itself, so only
// the endpoints behind it are registered on the mux.
type Router struct {
	Mux *http.ServeMux

	pipeline     *security.Pipeline
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	handler      http.Handler

	UserService *service.UserService
	Metrics     http.Handler   // optional; served at /metrics
	Location    *time.Location // zone for timestamps in responses

	// AuthRateLimit throttles the credential endpoints per client address
	// and either the submitted username or the refresh cookie.
	AuthRateLimit httpx.RateLimitConfig
	UsernameParam string
	RefreshCookie string
	OnRateLimited func(limiter string)
}

func NewRouter(
	pipeline *security.Pipeline,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:           http.NewServeMux(),
		pipeline:      pipeline,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		logger:        logger,
		AuthRateLimit: httpx.StrictLimit,
		UsernameParam: "email",
		RefreshCookie: "refresh_token",
	}
}

// ApplyRoutes registers the endpoints and freezes the middleware chain.
func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerUsers()

	credentials := httpx.NewRateLimiter("credentials", r.AuthRateLimit, httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.FirstKeyExtractor(
			httpx.FormFieldKeyExtractor(r.UsernameParam),
			httpx.CookieKeyExtractor(r.RefreshCookie),
		),
	))
	credentials.OnReject = r.OnRateLimited

	authMatcher := r.pipeline.AuthenticationMatcher()
	r.handler = httpx.Chain(r.pipeline.Handler(r.Mux),
		slogx.HTTPMiddleware(r.logger, "/elb-health", "/livez", "/readyz"),
		httpx.When(authMatcher.Matches, credentials.Middleware),
	)
}

// ServeHTTP implements http.Handler for Router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /v1/users/me", &MeHandler{
		UserService: r.UserService,
		Location:    r.Location,
	})
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /elb-health", ELBHealthHandler())
	r.Mux.Handle("GET /version", VersionHandler(r.buildVersion))

	// Monitoring systems may poll frequently
	probes := httpx.NewRateLimiter("probes", httpx.LenientLimit, httpx.IPKeyExtractor)
	probes.OnReject = r.OnRateLimited
	r.Mux.Handle("GET /livez", probes.Middleware(LivezHandler(r.startTime, r.buildVersion)))
	r.Mux.Handle("GET /readyz", probes.Middleware(ReadyzHandler(r.startTime, r.buildVersion, r.store)))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
