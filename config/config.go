package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"catchkit/adapters/firebase"
	"catchkit/adapters/redis"
	"catchkit/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete configuration of the client and the emulator.
type Config struct {
	Environment Environment `json:"environment" env:"CATCHKIT_ENV"`
	Profile     string      `json:"profile" env:"CATCHKIT_PROFILE"`

	// Client is the game-side engine configuration.
	Client ClientConfig `json:"client"`

	// Remote points the client at the hosted service or an emulator.
	Remote RemoteConfig `json:"remote"`

	// Server configures cmd/catchkit-emulator.
	Server ServerConfig `json:"server"`

	// Storage selects the emulator's backend.
	Storage StorageConfig `json:"storage"`

	Logging LoggingConfig `json:"logging"`
}

// ClientConfig tunes the engines.
type ClientConfig struct {
	QueueSize int `json:"queue_size" env:"CATCHKIT_CLIENT_QUEUE_SIZE"`
	// MessageTTL is how long the console keeps a transient message.
	MessageTTL time.Duration `json:"message_ttl" env:"CATCHKIT_CLIENT_MESSAGE_TTL"`
	// AtomicScores routes score submissions through conditional writes
	// when the store supports them.
	AtomicScores bool `json:"atomic_scores" env:"CATCHKIT_CLIENT_ATOMIC_SCORES"`
}

// RemoteConfig holds the REST endpoints. An empty DatabaseURL means the
// client runs against in-process memory stores.
type RemoteConfig struct {
	DatabaseURL string        `json:"database_url" env:"CATCHKIT_REMOTE_DATABASE_URL"`
	IdentityURL string        `json:"identity_url" env:"CATCHKIT_REMOTE_IDENTITY_URL"`
	APIKey      string        `json:"api_key" env:"CATCHKIT_REMOTE_API_KEY"`
	Timeout     time.Duration `json:"timeout" env:"CATCHKIT_REMOTE_TIMEOUT"`
	// EmulatorURL enables change streaming from a catchkit emulator.
	EmulatorURL string `json:"emulator_url" env:"CATCHKIT_REMOTE_EMULATOR_URL"`
}

// Firebase converts to the REST client configuration.
func (r RemoteConfig) Firebase() firebase.Config {
	return firebase.Config{
		DatabaseURL: r.DatabaseURL,
		IdentityURL: r.IdentityURL,
		APIKey:      r.APIKey,
		Timeout:     r.Timeout,
	}
}

// Enabled reports whether a remote database is configured.
func (r RemoteConfig) Enabled() bool { return strings.TrimSpace(r.DatabaseURL) != "" }

// ServerConfig holds emulator HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"CATCHKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"CATCHKIT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"CATCHKIT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"CATCHKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"CATCHKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"CATCHKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"CATCHKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"CATCHKIT_SERVER_SHUTDOWN_TIMEOUT"`

	JWTSecret   string        `json:"jwt_secret,omitempty" env:"CATCHKIT_SERVER_JWT_SECRET"`
	TokenTTL    time.Duration `json:"token_ttl" env:"CATCHKIT_SERVER_TOKEN_TTL"`
	RequireAuth bool          `json:"require_auth" env:"CATCHKIT_SERVER_REQUIRE_AUTH"`
	APIKeys     []string      `json:"api_keys,omitempty" env:"CATCHKIT_SERVER_API_KEYS"`
	// Webhooks receive every highscore change as JSON.
	Webhooks []string `json:"webhooks,omitempty" env:"CATCHKIT_SERVER_WEBHOOKS"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"CATCHKIT_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"CATCHKIT_STORAGE_FILE_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"CATCHKIT_LOG_LEVEL"`
	Format     string            `json:"format" env:"CATCHKIT_LOG_FORMAT"`
	Output     string            `json:"output" env:"CATCHKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"CATCHKIT_LOG_ATTRIBUTES"`
}

// Load reads .env (if present), then environment variables, and validates
func Load() (*Config, error) {
	return finish(DefaultConfig())
}

// LoadProfile starts from a named profile instead of the defaults.
func LoadProfile(name string) (*Config, error) {
	cfg, err := Profile(name)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads ./.env, or the file named by CATCHKIT_DOTENV. Variables
// already set in the process environment win.
func loadDotEnv() error {
	path := os.Getenv("CATCHKIT_DOTENV")
	if path == "" {
		// Don't fail if .env doesn't exist
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file; the environment
// overrides file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return finish(cfg)
}

// DefaultConfig returns a development configuration: memory stores, no
// remote, emulator on :9000.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Client: ClientConfig{
			QueueSize:  256,
			MessageTTL: 3 * time.Second,
		},
		Remote: RemoteConfig{
			IdentityURL: firebase.DefaultIdentityURL,
			Timeout:     10 * time.Second,
		},
		Server: ServerConfig{
			Address:           ":9000",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			TokenTTL:          time.Hour,
			APIKeys:           []string{},
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/catchkit.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Profile returns the preset for an environment name.
func Profile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Level = "debug"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Server.Address = "127.0.0.1:0"
		cfg.Logging.Level = "warn"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Client.AtomicScores = true
		cfg.Server.RequireAuth = true
		cfg.Storage.Adapter = "redis"
		cfg.Logging.Format = "json"
		cfg.Logging.Output = "stdout"
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Client.AtomicScores = true
		cfg.Server.RequireAuth = true
		cfg.Server.CORSOrigin = ""
		cfg.Storage.Adapter = "redis"
		cfg.Logging.Format = "json"
		cfg.Logging.Output = "stdout"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}

// Validate checks every section and reports all failures at once.
func (c *Config) Validate() error {
	var p problems
	if c.Environment == "" {
		p.addf("environment cannot be empty")
	}
	for _, sec := range []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"client", &c.Client},
		{"remote", &c.Remote},
		{"server", &c.Server},
		{"storage", &c.Storage},
		{"logging", &c.Logging},
	} {
		if err := sec.v.Validate(); err != nil {
			p.addf("%s config: %v", sec.name, err)
		}
	}
	return p.err()
}

const redacted = "[REDACTED]"

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = redacted
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = redacted
	}
	if cfg.Remote.APIKey != "" {
		cfg.Remote.APIKey = redacted
	}
	if cfg.Server.JWTSecret != "" {
		cfg.Server.JWTSecret = redacted
	}
	if len(cfg.Server.APIKeys) > 0 {
		keys := make([]string, len(cfg.Server.APIKeys))
		for i := range keys {
			keys[i] = redacted
		}
		cfg.Server.APIKeys = keys
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
