// Package app assembles the login service from its configuration: the
// repositories, delivery channels, login controller, session manager and
// the HTTP routes that expose them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/settle-idm/pkg/audit"
	"github.com/tendant/settle-idm/pkg/bootstrap"
	"github.com/tendant/settle-idm/pkg/config"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/db"
	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/loginflow"
	loginapi "github.com/tendant/settle-idm/pkg/loginflow/api"
	"github.com/tendant/settle-idm/pkg/notification"
	"github.com/tendant/settle-idm/pkg/otp"
	"github.com/tendant/settle-idm/pkg/ratelimit"
	"github.com/tendant/settle-idm/pkg/router"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/signup"
	twofaapi "github.com/tendant/settle-idm/pkg/twofa/api"
)

const issueLimiterPrefix = "settle:otp:issue:"

// App holds the wired services of one running instance
type App struct {
	Config     Config
	Users      *credential.Service
	Ledger     *otp.Ledger
	Channels   *delivery.Registry
	Controller *loginflow.Controller
	Sessions   *sessions.Manager
	Signup     *signup.SignupService
	RateLimit  *ratelimit.Middleware

	pool  *pgxpool.Pool
	redis *redis.Client
}

type options struct {
	notifier    notification.Notifier
	smsChannel  delivery.Channel
	hasNotifier bool
}

// Option overrides a dependency New would otherwise build from Config
type Option func(*options)

// WithNotifier replaces the SMTP notifier, for tests and local runs
func WithNotifier(n notification.Notifier) Option {
	return func(o *options) {
		o.notifier = n
		o.hasNotifier = true
	}
}

// WithSMSChannel replaces the Twilio Verify channel
func WithSMSChannel(c delivery.Channel) Option {
	return func(o *options) {
		o.smsChannel = c
	}
}

// New builds the App. The caller owns it and must Close it.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	cfg.Prefix = cfg.Prefix.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	var (
		userRepo credential.Repository
		otpRepo  otp.Repository
	)
	switch cfg.Persistence {
	case PersistencePostgres:
		pool, err := db.NewPool(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "port", cfg.Database.Port, "user", cfg.Database.User)
			return nil, err
		}
		a.pool = pool
		userRepo = credential.NewPostgresRepository(pool)
		otpRepo = otp.NewPostgresRepository(pool)
	default:
		slog.Warn("Using in-memory persistence, data is lost on restart")
		userRepo = credential.NewMemoryRepository()
		otpRepo = otp.NewMemoryRepository()
	}

	if cfg.usesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.redis = client
	}

	users, err := credential.NewService(userRepo, credential.WithCountryCode(cfg.TwoFactor.DefaultCountryCode))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Users = users
	a.Ledger = otp.NewLedger(otpRepo, otp.WithExpiry(cfg.TwoFactor.Expiry()))

	notifier := o.notifier
	if !o.hasNotifier {
		notifier = newEmailNotifier(cfg.Email)
	}
	sms := o.smsChannel
	if sms == nil {
		sms = delivery.NewSMSChannel(cfg.Twilio.ToSMSConfig(cfg.TwoFactor.DefaultCountryCode))
	}
	a.Channels = delivery.NewRegistry(
		delivery.NewEmailChannel(a.Ledger, notifier, cfg.Email.Timeout),
		sms,
	)

	a.Controller = loginflow.NewController(users, a.Channels,
		loginflow.WithIssueLimiter(a.issueLimiter()),
		loginflow.WithMaxAttempts(cfg.TwoFactor.MaxAttempts),
		loginflow.WithPendingTTL(cfg.TwoFactor.PendingTTL),
	)

	var store sessions.Store = sessions.NewMemoryStore()
	if a.redis != nil {
		store = sessions.NewRedisStore(a.redis, sessions.DefaultRedisPrefix)
	}
	a.Sessions = sessions.NewManager(store, cfg.Session.ToCookieConfig())

	signupOpts := []signup.SignupServiceOption{
		signup.WithServerURL(cfg.BaseURL),
		signup.WithRegistrationEnabled(cfg.RegistrationEnabled),
	}
	if notifier != nil {
		signupOpts = append(signupOpts, signup.WithNotifier(notifier))
	}
	a.Signup = signup.NewSignupService(users, signupOpts...)

	a.RateLimit = ratelimit.NewMiddleware(cfg.RateLimit.ToMiddlewareConfig(cfg.Prefix.Auth, cfg.Prefix.Signup))

	slog.Info("Login service configured",
		"persistence", cfg.Persistence,
		"session_store", cfg.Session.Store,
		"email", notifier != nil,
		"sms", sms.Available(),
		"max_attempts", a.Controller.MaxAttempts(),
	)
	return a, nil
}

// newEmailNotifier returns nil when the relay is not configured so the email
// channel reports itself unavailable
func newEmailNotifier(cfg config.EmailConfig) notification.Notifier {
	n, err := notification.NewEmailNotifier(cfg.ToSMTPConfig())
	if err != nil {
		if errors.Is(err, notification.ErrNotConfigured) {
			slog.Warn("SMTP relay is not configured, email channel disabled")
		} else {
			slog.Error("Failed to create email notifier", "error", err)
		}
		return nil
	}
	return n
}

func (a *App) issueLimiter() ratelimit.Limiter {
	perMinute := a.Config.TwoFactor.RequestsPerMinute
	if perMinute <= 0 {
		return ratelimit.Unlimited{}
	}
	if a.redis != nil {
		return ratelimit.NewRedisSlidingWindow(a.redis, issueLimiterPrefix, perMinute, time.Minute)
	}
	return ratelimit.NewMemorySlidingWindow(perMinute, time.Minute, nil)
}

// RouterConfig returns the handlers to mount
func (a *App) RouterConfig() router.Config {
	return router.Config{
		PrefixConfig: a.Config.Prefix,
		LoginHandle:  loginapi.NewHandle(a.Controller, a.Sessions, a.Users),
		SignupHandle: signup.NewHandle(a.Signup),
		TwoFaHandle:  twofaapi.NewHandle(a.Users, a.Channels),
		Sessions:     a.Sessions,
		RateLimit:    a.RateLimit,
		Audit:        audit.NewMiddleware(audit.Config{}),
	}
}

// Routes mounts the service on r
func (a *App) Routes(r chi.Router) {
	router.SetupRoutes(r, a.RouterConfig())
}

// BootstrapAdmin creates the configured admin if missing and prints a
// generated password to w
func (a *App) BootstrapAdmin(ctx context.Context, w io.Writer) error {
	if a.Config.Admin.Email == "" {
		return nil
	}
	res, err := bootstrap.BootstrapAdmin(ctx, bootstrap.AdminBootstrapConfig{
		AdminName:     a.Config.Admin.Name,
		AdminEmail:    a.Config.Admin.Email,
		AdminPassword: a.Config.Admin.Password,
		AdminPhone:    a.Config.Admin.Phone,
		Users:         a.Users,
	})
	if err != nil {
		return err
	}
	bootstrap.PrintBootstrapResult(w, res)
	bootstrap.LogBootstrapSummary(res)
	return nil
}

// RunPurge deletes stale OTP rows every TwoFactor.PurgeInterval until ctx is done
func (a *App) RunPurge(ctx context.Context) {
	a.Ledger.RunPurge(ctx, a.Config.TwoFactor.PurgeInterval)
}

// Close releases the database pool, the Redis client and the limiter janitors
func (a *App) Close() {
	if a.RateLimit != nil {
		a.RateLimit.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
