package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"identity/internal/domain"
	"identity/internal/jwtsigner"
	"identity/internal/netutil"
	"identity/internal/observability/middleware"
	"identity/internal/service"
)

// Deps are the collaborators the router calls into.
type Deps struct {
	Auth           service.AuthService
	Authenticators service.AuthenticatorService
	Tokens         service.TokenService
	Claims         service.ClaimsService
	Signer         *jwtsigner.Signer

	Logger      *slog.Logger
	Gatherer    prometheus.Gatherer // nil = default registry
	CORSOrigins []string
	RateLimit   int // requests per minute per IP, 0 = off
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{IP: netutil.ClientIP(r.Header, r.RemoteAddr), UserAgent: r.UserAgent()}
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsHandler := promhttp.Handler()
	if d.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
	}

	r := chi.NewRouter()
	r.Use(middleware.WithRequestAndTrace(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithMetrics)
	if d.RateLimit > 0 {
		r.Use(httprate.LimitByIP(d.RateLimit, time.Minute))
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-Trace-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metricsHandler)
	r.Get("/v1/oauth/jwks", jwksHandler(d.Signer))

	h := &handlers{d: d}
	bearer := requireBearer(d.Tokens)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.With(bearer).Post("/logout-all", h.logoutAll)
	})

	r.Route("/v1/authenticators", func(r chi.Router) {
		r.Use(bearer)
		r.Post("/otp", h.enableOtp)
		r.Post("/otp/verify", h.verifyOtp)
		r.Post("/email", h.enableEmail)
		r.Post("/email/verify", h.verifyEmail)
		r.Delete("/", h.disableAuthenticator)
	})

	r.Route("/v1/users/me", func(r chi.Router) {
		r.Use(bearer)
		r.Get("/", h.me)
		r.Get("/claims", h.myClaims)
	})

	r.Route("/v1/admin/users/{id}", func(r chi.Router) {
		r.Use(bearer)
		r.Use(requireClaims(d.Claims, domain.NewClaimSet(domain.ClaimAdmin)))
		r.Post("/claims", h.assignClaim)
		r.Delete("/claims/{claim}", h.revokeClaim)
		r.Put("/status", h.setStatus)
		r.Delete("/", h.deleteUser)
	})

	return r
}

func jwksHandler(signer *jwtsigner.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := []map[string]any{}
		if signer != nil {
			if jwk, ok := signer.PublicJWK(); ok {
				keys = append(keys, jwk)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
	}
}
