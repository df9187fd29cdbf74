package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"kiosk-edge/internal/audit"
	"kiosk-edge/internal/auth"
	"kiosk-edge/internal/config"
	"kiosk-edge/internal/observability"
	"kiosk-edge/internal/token"
)

type Options struct {
	LoadDotEnv bool
	// Logger overrides the stdout logger.
	Logger *observability.Logger
}

type Runtime struct {
	Config  *config.Config
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	loadOptions := config.Options{}
	if options.LoadDotEnv {
		loadOptions.DotEnvFiles = []string{".env"}
	}

	cfg, err := config.Load(loadOptions)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = observability.NewLogger()
	}
	logger = logger.With(map[string]any{"service": "kiosk-edge", "env": cfg.Env})

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	return &Runtime{
		Config:  cfg,
		Handler: NewHandler(cfg, logger),
		Close: func() error {
			observability.FlushSentry()
			return nil
		},
	}, nil
}

// NewHandler assembles the gateway's routes and middleware for cfg.
func NewHandler(cfg *config.Config, logger *observability.Logger) http.Handler {
	webhook := audit.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout)
	if !webhook.Enabled() {
		logger.Warn("audit_webhook_disabled", nil)
	}

	authService := auth.NewService(token.NewSigner(cfg.Auth.SigningSecret), webhook, logger, cfg.Auth.AdminPIN)
	authHandler := auth.NewHandler(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.Handle("POST /event", auth.Middleware(authService, http.HandlerFunc(authHandler.Event)))
	mux.HandleFunc("/", notFoundHandler)

	return observability.CORSMiddleware(cfg.AllowOrigin,
		observability.RecoverMiddleware(logger,
			observability.RequestLoggingMiddleware(logger, cleanPathsOnly(mux))))
}

// cleanPathsOnly answers 404 for paths ServeMux would otherwise redirect
// to their cleaned form.
func cleanPathsOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path.Clean(r.URL.Path) {
			notFoundHandler(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": time.Now().UnixMilli()})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	status, message := auth.StatusFor(&auth.Error{Kind: auth.ErrNotFound, Message: "Not found"})
	auth.WriteError(w, status, message)
}
