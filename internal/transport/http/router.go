package http

import (
	"context"
	"net/http"

	"github.com/email-otp/internal/application/otp"
	"github.com/email-otp/internal/config"
	"github.com/email-otp/internal/transport/http/handler"
	appmiddleware "github.com/email-otp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	// Without a trusted proxy, forwarding headers are caller-controlled and
	// must not pick the rate-limit bucket.
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	otpRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:     deps.Store,
		Mailer:    deps.Mailer,
		Logger:    deps.Logger,
		Clock:     deps.Clock,
		TTL:       cfg.OTPTTL,
		Retention: cfg.OTPRetention,
		Subject:   cfg.MailSubject,
		HashCost:  cfg.OTPHashCost,
	})

	healthH := handler.NewHealthHandler(deps.Backend)
	otpH := handler.NewOTPHandler(otpSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(otpRL.Limit)
			r.Post("/sendOTPEmail", otpH.Send)
			r.Post("/verifyOTP", otpH.Verify)
		})
	})

	return r
}
