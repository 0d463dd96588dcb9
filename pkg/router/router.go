package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/settle-idm/pkg/audit"
	pkgconfig "github.com/tendant/settle-idm/pkg/config"
	loginapi "github.com/tendant/settle-idm/pkg/loginflow/api"
	"github.com/tendant/settle-idm/pkg/ratelimit"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/signup"
	twofaapi "github.com/tendant/settle-idm/pkg/twofa/api"
)

// Config holds all the dependencies and handlers needed to setup routes
type Config struct {
	// Prefix configuration for all routes
	PrefixConfig pkgconfig.PrefixConfig

	LoginHandle  *loginapi.Handle
	SignupHandle *signup.Handle
	TwoFaHandle  *twofaapi.Handle

	// Sessions guards the account routes
	Sessions *sessions.Manager

	// RateLimit applies to the public routes; nil disables it
	RateLimit *ratelimit.Middleware

	// Audit records account requests; nil disables it
	Audit *audit.Middleware
}

// SetupRoutes mounts all routes on the provided router
func SetupRoutes(router chi.Router, cfg Config) {
	SetupPublicRoutes(router, cfg)
	SetupAuthenticatedRoutes(router, cfg)
}

// SetupPublicRoutes mounts the login flow and registration
func SetupPublicRoutes(router chi.Router, cfg Config) {
	router.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.Handler)
		}
		if cfg.LoginHandle != nil {
			r.Route(cfg.PrefixConfig.Auth, cfg.LoginHandle.RegisterRoutes)
		}
		if cfg.SignupHandle != nil {
			r.Route(cfg.PrefixConfig.Signup, cfg.SignupHandle.RegisterRoutes)
		}
	})
}

// SetupAuthenticatedRoutes mounts the account routes behind the session check
func SetupAuthenticatedRoutes(router chi.Router, cfg Config) {
	router.Route(cfg.PrefixConfig.Account, func(r chi.Router) {
		r.Use(cfg.Sessions.RequireAuth)
		if cfg.Audit != nil {
			r.Use(cfg.Audit.AuditAuthMiddleware)
		}

		if cfg.LoginHandle != nil {
			cfg.LoginHandle.RegisterAccountRoutes(r)
		}
		if cfg.TwoFaHandle != nil {
			r.Mount("/2fa", twofaapi.TwoFaHandler(cfg.TwoFaHandle))
		}
	})
}
