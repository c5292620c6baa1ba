package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"
)

// problems collects validation failures for one section.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) positive(name string, d time.Duration) {
	if d <= 0 {
		p.addf("%s must be positive", name)
	}
}

func (p *problems) oneOf(name, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		p.addf("%s must be one of: %s", name, strings.Join(allowed, ", "))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.New(strings.Join(p, "; "))
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate checks queue and message settings.
func (c *ClientConfig) Validate() error {
	var p problems
	if c.QueueSize <= 0 {
		p.addf("queue_size must be positive")
	}
	if c.MessageTTL < 0 {
		p.addf("message_ttl cannot be negative")
	}
	return p.err()
}

// Validate checks the remote endpoints. All URLs are optional, but a database
// without an identity endpoint cannot sign anybody in.
func (r *RemoteConfig) Validate() error {
	var p problems
	urls := map[string]string{
		"database_url": r.DatabaseURL,
		"identity_url": r.IdentityURL,
		"emulator_url": r.EmulatorURL,
	}
	for _, name := range slices.Sorted(maps.Keys(urls)) {
		if raw := urls[name]; raw != "" && !isHTTPURL(raw) {
			p.addf("%s must be an http(s) URL", name)
		}
	}
	if r.Enabled() && r.IdentityURL == "" {
		p.addf("identity_url is required when database_url is set")
	}
	if r.Timeout < 0 {
		p.addf("timeout cannot be negative")
	}
	return p.err()
}

// Validate checks the emulator server settings.
func (s *ServerConfig) Validate() error {
	var p problems
	if strings.TrimSpace(s.Address) == "" {
		p.addf("address cannot be empty")
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"read_timeout", s.ReadTimeout},
		{"write_timeout", s.WriteTimeout},
		{"idle_timeout", s.IdleTimeout},
		{"read_header_timeout", s.ReadHeaderTimeout},
		{"shutdown_timeout", s.ShutdownTimeout},
		{"token_ttl", s.TokenTTL},
	} {
		p.positive(d.name, d.val)
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			p.addf("api_keys[%d] is empty", i)
		}
	}
	for i, hook := range s.Webhooks {
		if !isHTTPURL(hook) {
			p.addf("webhooks[%d] must be an http(s) URL", i)
		}
	}
	return p.err()
}

var validAdapters = []string{"memory", "redis", "sql", "file"}

// Validate checks that the selected adapter has what it needs to connect.
func (s *StorageConfig) Validate() error {
	var p problems
	p.oneOf("adapter", s.Adapter, validAdapters)
	switch s.Adapter {
	case "file":
		if s.File.Path == "" {
			p.addf("file config: path cannot be empty")
		}
	case "redis":
		if s.Redis.Addr == "" {
			p.addf("redis config: addr cannot be empty")
		}
	case "sql":
		if s.SQL.DSN == "" {
			p.addf("sql config: dsn cannot be empty")
		}
	}
	return p.err()
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "text"}
	validOutputs = []string{"stdout", "stderr"}
)

func (l *LoggingConfig) Validate() error {
	var p problems
	p.oneOf("level", l.Level, validLevels)
	p.oneOf("format", l.Format, validFormats)
	p.oneOf("output", l.Output, validOutputs)
	return p.err()
}
