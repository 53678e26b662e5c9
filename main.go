package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/migrations"
	"github.com/telefonbog/telefonbog/pkg/audit"
	"github.com/telefonbog/telefonbog/pkg/auth"
	"github.com/telefonbog/telefonbog/pkg/config"
	"github.com/telefonbog/telefonbog/pkg/database"
	"github.com/telefonbog/telefonbog/pkg/delta"
	"github.com/telefonbog/telefonbog/pkg/handlers"
	"github.com/telefonbog/telefonbog/pkg/logging"
	"github.com/telefonbog/telefonbog/pkg/metrics"
	"github.com/telefonbog/telefonbog/pkg/middleware"
	"github.com/telefonbog/telefonbog/pkg/repositories"
	"github.com/telefonbog/telefonbog/pkg/retry"
	"github.com/telefonbog/telefonbog/pkg/services"
	"github.com/telefonbog/telefonbog/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("keycloak_issuer", cfg.Keycloak.IssuerURL()),
		zap.Bool("token_verification", cfg.Keycloak.EnableVerification),
		zap.String("delta_url", cfg.Delta.URL),
		zap.String("delta_auth_mode", cfg.Delta.AuthMode))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Audit database
	dbCfg := cfg.Database
	dbCfg.Host = config.ResolveHostForDocker(dbCfg.Host)
	connStr := dbCfg.ConnectionString()
	logger.Info("Connecting to database",
		zap.String("host", dbCfg.Host),
		zap.String("database", dbCfg.Database),
		zap.String("dsn", logging.SanitizeConnectionString(connStr)))
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            connStr,
			MaxConnections: dbCfg.MaxConnections,
		})
		if err != nil {
			logger.Warn("Database not reachable yet", zap.String("error", logging.SanitizeError(err)))
		}
		return db, err
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.StdDB(), migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Delta
	deltaHTTP, err := delta.NewHTTPClient(ctx, cfg.Delta.AuthConfig())
	if err != nil {
		return fmt.Errorf("configure delta transport: %w", err)
	}
	deltaClient := delta.NewClient(cfg.Delta.URL, deltaHTTP, m, logger)

	// Services
	auditService := services.NewAuditService(repositories.NewAuditRepository(db), m, logger)
	directory := services.NewDirectoryService(
		auditService,
		deltaClient,
		audit.NewSecurityAuditor(logger),
		m,
		cfg.Keycloak.CPRRole,
		logger,
	)

	// Identity
	issuer := cfg.Keycloak.IssuerURL()
	jwksClient, err := auth.NewJWKSClient(ctx, auth.JWKSConfig{
		EnableVerification: cfg.Keycloak.EnableVerification,
		Issuer:             issuer,
	})
	if err != nil {
		return fmt.Errorf("create JWKS client: %w", err)
	}
	defer jwksClient.Close()

	login, err := auth.NewLogin(ctx, auth.OIDCConfig{
		IssuerURL:    issuer,
		ClientID:     cfg.Keycloak.ClientID,
		ClientSecret: cfg.Keycloak.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	}, jwksClient, logger)
	if err != nil {
		return err
	}

	sessions := auth.NewSessionStore(cfg.SessionSecret, auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain))
	authService := auth.NewAuthService(sessions, jwksClient, cfg.Keycloak.ClientID, logger.Named("auth"))
	authMiddleware := auth.NewMiddleware(authService, logger.Named("auth"))

	// Routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(login, sessions, cfg.BaseURL, cfg.Keycloak.CPRRole, logger.Named("auth-handler")).
		RegisterRoutes(mux, authMiddleware)
	handlers.NewSearchHandler(directory, logger.Named("search-handler")).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /", http.FileServerFS(ui.DistFS()))

	handler := middleware.RequestLogger(logger.Named("http"))(authMiddleware.WithCaller(mux))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Bulk lookups run one Delta call per CPR.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting telefonbog", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if cfg.TLSCertPath != "" {
			serveErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
