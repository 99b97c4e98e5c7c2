package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blogem/oauth-login/authenticator"
	"github.com/blogem/oauth-login/config"
	"github.com/blogem/oauth-login/controllers"
	"github.com/blogem/oauth-login/database"
	"github.com/blogem/oauth-login/logging"
	authmiddleware "github.com/blogem/oauth-login/middleware"
	"github.com/blogem/oauth-login/repositories"
	"github.com/blogem/oauth-login/services"
)

const serviceName = "oauth-login"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: serviceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if cfg.GeneratedSessionSecret {
		logger.Warn("SESSION_SECRET is not set, using a random secret; logins in progress will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	a.srvs.Housekeeping.Start()
	defer a.srvs.Housekeeping.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"port", cfg.Port,
		"redirect_uri", cfg.RedirectURI,
		"state_store", cfg.StateStore,
		"database", cfg.DatabaseFile,
		"state_ttl", cfg.StateTTL,
		"offline_access", cfg.OfflineAccess,
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		return
	}
	logger.Info("server stopped")
}

// app is the wired application
type app struct {
	db     *sql.DB
	srvs   *services.Services
	router *chi.Mux
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

// newApp builds every layer from the configuration
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	// Initialize database
	db, err := database.InitializeDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	repos := repositories.NewRepositories(db)
	if cfg.StateStore == config.StateStoreMemory {
		repos.FlowStates = repositories.NewMemoryFlowStateRepository()
	}

	// Initialize services
	srvs := services.NewServices(repos, logger, cfg.HousekeepingInterval, cfg.AuditRetention)

	flowOpts := []authenticator.Option{
		authenticator.WithStateTTL(cfg.StateTTL),
		authenticator.WithExchangeTimeout(cfg.TokenExchangeTimeout),
	}
	if cfg.OfflineAccess {
		flowOpts = append(flowOpts, authenticator.WithAuthURLParams(authenticator.OfflineAccess()...))
	}

	flow, err := authenticator.NewAuthorizationCodeFlow(cfg.ClientConfig(), repos.FlowStates, flowOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize login flow: %w", err)
	}

	verifier, err := newIdentityVerifier(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Initialize controllers
	ctrl := controllers.NewControllers(srvs, controllers.Options{
		Flow:        flow,
		Verifier:    verifier,
		StateCookie: controllers.NewStateCookie(cfg.SessionSecret, cfg.UseHTTPS),
		Debug:       !cfg.IsProduction(),
	})

	r, err := setupRouter(ctrl, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	return &app{db: db, srvs: srvs, router: r}, nil
}

// newIdentityVerifier checks ID tokens against OIDC_ISSUER, or trusts the
// TLS connection to the token endpoint when no issuer is configured
func newIdentityVerifier(ctx context.Context, cfg *config.Config) (authenticator.IdentityVerifier, error) {
	if cfg.OIDCIssuer == "" {
		return authenticator.NewTokenEndpointVerifier(cfg.ClientID), nil
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, cfg.TokenExchangeTimeout)
	defer cancel()

	verifier, err := authenticator.NewOIDCVerifier(discoveryCtx, cfg.OIDCIssuer, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ID token verifier: %w", err)
	}
	return verifier, nil
}

// setupRouter configures all routes
func setupRouter(ctrl *controllers.Controllers, cfg *config.Config, logger *slog.Logger) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.HTTPMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second)) // 60 second timeout for OAuth callbacks

	// Session middleware
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "oauth_session",
		Secure:         cfg.UseHTTPS, // Set to true when USE_HTTPS=true (production)
		SameSite:       http.SameSiteLaxMode,
		Gclifetime:     3600, // Session lifetime in seconds
		Maxlifetime:    3600,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)

	r.NotFound(ctrl.Pages.NotFound)

	// PUBLIC ROUTES (no authentication required)
	r.Get("/", ctrl.Pages.Home) // Landing page, or redirect to /welcome when signed in
	r.Get("/logout", ctrl.Auth.Logout)
	r.Get("/health", healthHandler)

	// Login endpoints are the only ones that create server side state
	r.Group(func(r chi.Router) {
		r.Use(authmiddleware.RateLimitByIP(authmiddleware.LoginLimit))
		r.Get("/login", ctrl.Auth.Login)
		r.Get(callbackPath(cfg.RedirectURI), ctrl.Auth.Callback)
	})

	// PROTECTED ROUTES (authentication required)
	r.Group(func(r chi.Router) {
		r.Use(authmiddleware.RequireAuth)
		r.Get("/welcome", ctrl.Pages.Welcome)
		r.Get("/dashboard", ctrl.Pages.Dashboard)
	})

	return r, nil
}

// callbackPath serves the callback wherever REDIRECT_URI points
func callbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}
