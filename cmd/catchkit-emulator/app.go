package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"

	"catchkit/adapters/jsonfile"
	mem "catchkit/adapters/memory"
	redisAdapter "catchkit/adapters/redis"
	sqlxAdapter "catchkit/adapters/sqlx"
	"catchkit/api/httpapi"
	"catchkit/config"
	"catchkit/integrations/webhook"
	"catchkit/realtime"
)

// App aggregates the assembled emulator components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Backend  httpapi.Backend
	Handler  http.Handler
	Server   *http.Server
	Webhooks *webhook.Sink
}

// provideConfig loads CATCHKIT_CONFIG when set, otherwise defaults plus
// environment.
func provideConfig(ctx context.Context) (*config.Config, error) {
	if path := os.Getenv("CATCHKIT_CONFIG"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, nil)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (httpapi.Backend, func(), error) {
	return setupBackend(ctx, cfg, logger)
}

func provideHandler(backend httpapi.Backend, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger) http.Handler {
	return httpapi.NewMux(backend, hub, httpapi.Options{
		PathPrefix:      cfg.Server.PathPrefix,
		AllowCORSOrigin: cfg.Server.CORSOrigin,
		APIKeys:         cfg.Server.APIKeys,
		JWTSecret:       []byte(cfg.Server.JWTSecret),
		TokenTTL:        cfg.Server.TokenTTL,
		RequireAuth:     cfg.Server.RequireAuth,
		Logger:          logger,
	})
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	return webhook.New(cfg.Server.Webhooks, webhook.WithLogger(logger))
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration. A nil w
// selects stdout or stderr from cfg.Logging.Output.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
		if cfg.Logging.Output == "stdout" {
			w = os.Stdout
		}
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupBackend opens the configured shared store and an account store to
// go with it. Only redis persists accounts; the other adapters keep them
// in memory for the life of the process.
func setupBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (httpapi.Backend, func(), error) {
	noop := func() {}
	switch cfg.Storage.Adapter {
	case "memory":
		return httpapi.Backend{Accounts: mem.NewAccounts(), Store: mem.New()}, noop, nil
	case "file":
		store, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return httpapi.Backend{}, nil, err
		}
		return httpapi.Backend{Accounts: mem.NewAccounts(), Store: store}, noop, nil
	case "redis":
		client, err := redisAdapter.Connect(cfg.Storage.Redis)
		if err != nil {
			return httpapi.Backend{}, nil, err
		}
		prefix := cfg.Storage.Redis.KeyPrefix
		backend := httpapi.Backend{
			Accounts: redisAdapter.NewAccounts(client, prefix, bcrypt.DefaultCost),
			Store:    redisAdapter.NewWithClient(client, prefix),
		}
		return backend, func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis", "error", err)
			}
		}, nil
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return httpapi.Backend{}, nil, err
		}
		logger.Warn("sql storage keeps accounts in memory; they are lost on restart")
		return httpapi.Backend{Accounts: mem.NewAccounts(), Store: store}, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sql store", "error", err)
			}
		}, nil
	default:
		return httpapi.Backend{}, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
