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

	httpapi "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/oauth"
	"github.com/aussiebroadwan/tollgate/internal/auth/oauth/kakao"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application holds the gateway and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	codec   *jwtx.Codec
	hasher  *cryptox.Hasher
	metrics *metrics.Metrics

	userService      *service.UserService
	oauthUserService *service.OAuthUserService
	bootstrapService *service.BootstrapService

	pipeline *security.Pipeline
	router   *httpapi.Router
	server   *http.Server
}

// New builds the application. The database is opened and migrated before
// anything else.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tollgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSecurity(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	if err := app.bootstrap(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the server and blocks until it fails or a shutdown signal
// arrives.
func (app *Application) Run() error {
	app.logger.Info("tollgate starting",
		"port", app.cfg.HTTP.Port,
		"version", BuildVersion,
		"pipeline", app.pipeline.String(),
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

// Shutdown drains the server and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tollgate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.HTTP.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("tollgate stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := app.cfg.Database.File
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.Database.File)
	}
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initSecurity() error {
	codecCfg, err := app.cfg.CodecConfig()
	if err != nil {
		return err
	}
	app.codec, err = jwtx.NewCodec(codecCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	app.hasher, err = app.cfg.Hasher()
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	var clients []oauth.Client
	if kc, ok := app.cfg.KakaoConfig(); ok {
		clients = append(clients, kakao.New(kc))
	}
	registry, err := oauth.NewRegistry(clients...)
	if err != nil {
		return fmt.Errorf("failed to initialize oauth providers: %w", err)
	}
	app.logger.Info("oauth providers registered", "providers", registry.Names())

	app.userService = &service.UserService{Store: app.db, Passwords: app.hasher}
	app.oauthUserService = &service.OAuthUserService{Store: app.db, Providers: registry}
	app.bootstrapService = &service.BootstrapService{Users: app.userService}
	app.metrics = metrics.New()

	pipelineCfg := app.cfg.PipelineConfig()
	if pipelineCfg.MockSubject != "" {
		app.logger.Warn("mock authorization enabled", "subject", pipelineCfg.MockSubject)
	}

	deps := security.Dependencies{
		Tokens:    app.codec,
		Users:     app.userService,
		LastLogin: app.userService,
		Passwords: app.hasher,
		Observer:  app.metrics,
	}
	if len(registry.Names()) > 0 {
		deps.OAuthUsers = app.oauthUserService
	}

	app.pipeline, err = security.NewPipeline(pipelineCfg, deps)
	if err != nil {
		return fmt.Errorf("failed to build security pipeline: %w", err)
	}
	app.logger.Info("security pipeline ready", "stages", app.pipeline.String())
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.pipeline, BuildVersion, app.db, app.logger)
	router.UserService = app.userService
	router.Metrics = app.metrics.Handler()
	router.Location = app.codec.Location()
	router.UsernameParam = app.cfg.Security.Authentication.UsernameParam
	router.RefreshCookie = app.cfg.Security.Refresh.CookieName
	router.OnRateLimited = app.metrics.RateLimited
	router.AuthRateLimit = httpx.RateLimitConfig{
		RequestsPerWindow: app.cfg.RateLimit.Requests,
		Window:            app.cfg.RateLimit.Window,
		Burst:             app.cfg.RateLimit.Burst,
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// bootstrap seeds the first admin when configured. A generated password is
// logged exactly once.
func (app *Application) bootstrap(ctx context.Context) error {
	b := app.cfg.Bootstrap
	if b.AdminEmail == "" {
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	res, err := app.bootstrapService.Bootstrap(ctx, b.AdminEmail, b.AdminName, b.AdminPassword)
	if errors.Is(err, service.ErrBootstrapAlready) {
		app.logger.Info("bootstrap skipped, users already exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	if res.Password != "" {
		app.logger.Warn("bootstrap admin created with generated password",
			"email", res.User.Email,
			"generated_password", res.Password,
		)
	} else {
		app.logger.Info("bootstrap admin created", "email", res.User.Email)
	}
	return nil
}
