// Command server runs the bobai agentic conversation engine.
//
// Configuration can be provided via:
//   - YAML config file (--config flag, BOBAI_CONFIG env, ./config.yaml, /etc/bobai/config.yaml)
//   - Environment variables with BOBAI_ prefix (override config file values)
//
// The provider/model pair actually used for a turn is resolved per-project
// from .bobai/bobai.json and the user's global config directory
// (pkg/config.Resolver, spec.md §4.8), layered on top of the process-wide
// --config/env settings which supply the backend URL, credentials, and
// session store.
//
// See config.example.yaml for full documentation of available settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nilcaream/bobai/pkg/auth"
	"github.com/nilcaream/bobai/pkg/auth/apikey"
	"github.com/nilcaream/bobai/pkg/auth/jwt"
	"github.com/nilcaream/bobai/pkg/auth/noop"
	"github.com/nilcaream/bobai/pkg/authstore"
	"github.com/nilcaream/bobai/pkg/config"
	"github.com/nilcaream/bobai/pkg/engine"
	"github.com/nilcaream/bobai/pkg/observability"
	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/provider/openaicompat"
	"github.com/nilcaream/bobai/pkg/session"
	"github.com/nilcaream/bobai/pkg/session/postgres"
	"github.com/nilcaream/bobai/pkg/session/sqlite"
	"github.com/nilcaream/bobai/pkg/tools"
	"github.com/nilcaream/bobai/pkg/tools/builtin"
	"github.com/nilcaream/bobai/pkg/tools/sandbox"
	"github.com/nilcaream/bobai/pkg/transport"
	transporthttp "github.com/nilcaream/bobai/pkg/transport/http"
	"github.com/nilcaream/bobai/pkg/turn"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	projectRoot := flag.String("project", "", "project root directory (default: current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	root := *projectRoot
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determining project root: %w", err)
		}
	}

	resolver, err := config.NewResolver(root)
	if err != nil {
		return fmt.Errorf("creating config resolver: %w", err)
	}
	providerID, model := resolver.Resolve()
	if providerID == "" {
		providerID = cfg.Provider.Name
	}
	if model == "" {
		model = cfg.Provider.DefaultModel
	}

	prov, err := createProvider(cfg, providerID)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	store, err := createStore(cfg, root)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer store.Close()

	sb, err := sandbox.New(root)
	if err != nil {
		return fmt.Errorf("creating sandbox: %w", err)
	}
	registry := tools.NewRegistry([]tools.Tool{
		&builtin.ReadTool{},
		&builtin.WriteTool{},
		&builtin.EditTool{},
		&builtin.ListDirTool{},
		&builtin.GrepTool{},
		&builtin.BashTool{},
	})

	handler := &turn.Handler{
		Store:            store,
		Provider:         prov,
		Model:            model,
		Tools:            registry,
		ToolContext:      tools.ToolContext{Sandbox: sb},
		SystemPrompt:     defaultSystemPrompt,
		IterationCeiling: cfg.Provider.IterationCeiling,
		Loop:             engine.NewLoop(),
	}

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.Addr = fmt.Sprintf(":%d", cfg.Server.Port)
	adapter := transporthttp.NewAdapter(handler, adapterCfg,
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	)

	authChain := buildAuthChain(cfg)

	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	if cfg.Observability.Metrics.Enabled {
		metricsPath := cfg.Observability.Metrics.Path
		mux.Handle("GET "+metricsPath, promhttp.Handler())
		slog.Info("metrics endpoint enabled", "path", metricsPath)
	}

	var topHandler http.Handler = mux
	if cfg.Observability.Metrics.Enabled {
		topHandler = observability.MetricsMiddleware(topHandler)
	}
	topHandler = auth.Middleware(authChain, nil, auth.DefaultBypassEndpoints)(topHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      topHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"backend", cfg.Provider.BackendURL,
			"provider", providerID,
			"model", model,
			"project", root,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

const defaultSystemPrompt = "You are bobai, a local coding assistant. You can read, " +
	"search, and edit files in the project and run shell commands, all confined to " +
	"the project directory. Use tools to gather context before making changes."

// createProvider builds the provider.Provider for this process. The auth
// token store (spec.md §4.9) takes precedence over a statically configured
// API key, since it reflects the freshest credential for providerID.
func createProvider(cfg *config.Config, providerID string) (provider.Provider, error) {
	if cfg.Provider.BackendURL == "" {
		return nil, fmt.Errorf("provider.backend_url is required")
	}

	apiKey := cfg.Provider.APIKey
	store := authstore.New(authTokenStorePath())
	if token, _, ok := store.Load(providerID); ok && token != "" {
		apiKey = token
	}

	return openaicompat.New(providerID, cfg.Provider.BackendURL, apiKey, cfg.Server.WriteTimeout), nil
}

func authTokenStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "bobai", "auth.json")
}

// createStore builds the session.Store for this process (spec.md §4.3, §6).
func createStore(cfg *config.Config, projectRoot string) (session.Store, error) {
	switch cfg.Session.Type {
	case "postgres":
		ctx := context.Background()
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Session.Postgres.DSN,
			MaxConns:       cfg.Session.Postgres.MaxConns,
			MigrateOnStart: cfg.Session.Postgres.MigrateOnStart,
		})
	default:
		path := cfg.Session.SQLitePath
		if path == "" {
			path = ".bobai/bobai.db"
		}
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		return sqlite.Open(path)
	}
}

// buildAuthChain creates an auth chain from config. type=none (the
// default for a single-user local assistant) uses noop.Authenticator,
// which accepts every request as an anonymous identity, so the HTTP
// shell always runs through the same middleware regardless of mode.
func buildAuthChain(cfg *config.Config) *auth.AuthChain {
	switch cfg.Auth.Type {
	case "apikey":
		keys := convertAPIKeys(cfg.Auth.APIKeys)
		if len(keys) == 0 {
			slog.Warn("auth.type=apikey but no api_keys configured, falling back to open access")
			return &auth.AuthChain{Authenticators: []auth.Authenticator{&noop.Authenticator{}}}
		}
		slog.Info("auth enabled", "type", "apikey", "keys", len(keys))
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(keys)},
			DefaultDecision: auth.No,
		}

	case "jwt":
		slog.Info("auth enabled", "type", "jwt", "jwks_url", cfg.Auth.JWT.JWKSURL)
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Issuer:      cfg.Auth.JWT.Issuer,
				Audience:    cfg.Auth.JWT.Audience,
				JWKSURL:     cfg.Auth.JWT.JWKSURL,
				UserClaim:   cfg.Auth.JWT.UserClaim,
				TenantClaim: cfg.Auth.JWT.TenantClaim,
				ScopesClaim: cfg.Auth.JWT.ScopesClaim,
				CacheTTL:    cfg.Auth.JWT.CacheTTL,
			})},
			DefaultDecision: auth.No,
		}

	default:
		if cfg.Auth.Type != "none" && cfg.Auth.Type != "" {
			slog.Warn("unknown auth type, falling back to open access", "type", cfg.Auth.Type)
		}
		return &auth.AuthChain{Authenticators: []auth.Authenticator{&noop.Authenticator{}}}
	}
}

// convertAPIKeys converts config API key entries to the apikey package format.
func convertAPIKeys(keys []config.APIKeyConfig) []apikey.RawKeyEntry {
	var entries []apikey.RawKeyEntry
	for _, k := range keys {
		metadata := map[string]string{}
		if k.TenantID != "" {
			metadata["tenant_id"] = k.TenantID
		}
		entries = append(entries, apikey.RawKeyEntry{
			Key: k.Key,
			Identity: auth.Identity{
				Subject:     k.Subject,
				ServiceTier: k.ServiceTier,
				Metadata:    metadata,
			},
		})
	}
	return entries
}
