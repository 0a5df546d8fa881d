package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "github.com/aussiebroadwan/orgauth/internal/orgauth/http"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/observability"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/service"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store/drivers/postgres"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/orgauth/pkg/cryptox"
	"github.com/aussiebroadwan/orgauth/pkg/httpx"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application is the orgauth service and everything it owns.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	tokens  *jwtx.HS256
	hasher  *cryptox.PasswordHasher
	redis   *redis.Client
	metrics *observability.Metrics

	resolver            *service.SessionResolver
	override            *service.OrgOverride
	tokenService        *service.TokenService
	organizationService *service.OrganizationService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and initializes every dependency. Nothing is started
// until Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "orgauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCrypto(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	replay, err := app.initReplayGuard(ctx)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMetrics()
	app.initServices(replay)
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("orgauth starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"auto_promote", app.cfg.AutoPromoteEnabled,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops the background worker and
// closes connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down orgauth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("orgauth stopped")
	return nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	tokens, err := jwtx.NewHS256([]byte(app.cfg.TokenSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.tokens = tokens
	return nil
}

// initReplayGuard uses Redis when REDIS_URL is set so several replicas share
// one view of used selection tokens. Otherwise the database table is used.
func (app *Application) initReplayGuard(ctx context.Context) (service.ReplayGuard, error) {
	if app.cfg.RedisURL == "" {
		return &service.StoreReplayGuard{Store: app.db}, nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.redis = client
	app.logger.Info("selection token replay guard using redis", "addr", opts.Addr)
	return &service.RedisReplayGuard{Client: client}, nil
}

func (app *Application) initMetrics() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = observability.NewMetrics(registry)
}

func (app *Application) initServices(replay service.ReplayGuard) {
	app.resolver = &service.SessionResolver{
		Store:              app.db,
		Verifier:           app.tokens,
		AutoPromoteEnabled: app.cfg.AutoPromoteEnabled,
		AutoPromoteEmail:   app.cfg.AutoPromoteEmail,
		LookupTimeout:      app.cfg.LookupTimeout,
		Metrics:            app.metrics,
	}
	app.override = &service.OrgOverride{
		Store:         app.db,
		LookupTimeout: app.cfg.LookupTimeout,
		Metrics:       app.metrics,
	}
	app.tokenService = &service.TokenService{
		Store:        app.db,
		Signer:       app.tokens,
		Verifier:     app.tokens,
		Hasher:       app.hasher,
		Replay:       replay,
		Issuer:       app.cfg.Issuer,
		SessionTTL:   app.cfg.SessionTTL,
		SelectionTTL: app.cfg.SelectionTTL,
		Metrics:      app.metrics,
	}
	app.organizationService = &service.OrganizationService{
		Store:         app.db,
		LookupTimeout: app.cfg.LookupTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = app.metrics
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		BuildVersion,
		app.db,
		httpapi.CookieConfig{Name: app.cfg.CookieName, Secure: app.cfg.CookieSecure},
		app.logger,
	)

	router.Resolver = app.resolver
	router.Override = app.override
	router.TokenService = app.tokenService
	router.OrganizationService = app.organizationService
	router.Metrics = app.metrics.Handler()
	router.Instrument = app.metrics.HTTPMiddleware
	router.ApplyRoutes()

	app.router = router

	var handler http.Handler = otelhttp.NewHandler(router, "orgauth")
	if len(app.cfg.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   app.cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpx.HeaderOrganizationID, slogx.HeaderRequestID},
			ExposedHeaders:   []string{slogx.HeaderRequestID, "Retry-After"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
