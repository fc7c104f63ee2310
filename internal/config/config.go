// Package config loads factoryflow settings.
//
// Settings come from three layers, later ones winning:
//
//  1. Defaults ([Default])
//  2. A TOML file, ~/.config/factoryflow/config.toml unless --config names
//     another one
//  3. Environment variables (FACTORYFLOW_API_URL, FACTORYFLOW_API_TOKEN,
//     FACTORYFLOW_MONGO_URI, FACTORYFLOW_REDIS_ADDR)
//
// Command-line flags are applied by the CLI on top of the loaded value.
//
// Example file:
//
//	[api]
//	url = "https://factory.example.com/api"
//	timeout = "15s"
//	rate_limit = 10
//
//	[documents]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[cache]
//	backend = "redis"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
)

// Environment variables read by [Load].
const (
	EnvAPIURL    = "FACTORYFLOW_API_URL"
	EnvAPIToken  = "FACTORYFLOW_API_TOKEN"
	EnvMongoURI  = "FACTORYFLOW_MONGO_URI"
	EnvRedisAddr = "FACTORYFLOW_REDIS_ADDR"
)

// Backend names.
const (
	BackendAPI    = "api"
	BackendMongo  = "mongo"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Duration is a time.Duration written as "1h30m" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config is the full settings tree.
type Config struct {
	API       APIConfig       `toml:"api"`
	Documents DocumentsConfig `toml:"documents"`
	Cache     CacheConfig     `toml:"cache"`
	Redis     RedisConfig     `toml:"redis"`
	Layout    LayoutConfig    `toml:"layout"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// APIConfig points at the factory backend.
type APIConfig struct {
	URL           string   `toml:"url"`
	Token         string   `toml:"token"`
	Timeout       Duration `toml:"timeout"`
	RateLimit     float64  `toml:"rate_limit"` // requests per second, 0 = unlimited
	Burst         int      `toml:"burst"`
	RetryAttempts int      `toml:"retry_attempts"`
}

// DocumentsConfig selects where canvas documents live. With "mongo" the
// document store is read and written directly; every other store still
// goes through the API.
type DocumentsConfig struct {
	Backend         string `toml:"backend"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// CacheConfig selects the layout cache.
type CacheConfig struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`
}

// RedisConfig is shared by the redis cache and the redis session store.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LayoutConfig holds layout defaults.
type LayoutConfig struct {
	Horizontal bool `toml:"horizontal"`
}

// ServerConfig configures `factoryflow serve`.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	Sessions      string   `toml:"sessions"` // memory or redis
	SessionTTL    Duration `toml:"session_ttl"`
	SweepInterval Duration `toml:"sweep_interval"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:           "http://localhost:5000",
			Timeout:       Duration{10 * time.Second},
			RetryAttempts: 1,
		},
		Documents: DocumentsConfig{
			Backend:         BackendAPI,
			MongoDatabase:   "factoryflow",
			MongoCollection: "flows",
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     Duration{24 * time.Hour},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Server: ServerConfig{
			Addr:          ":8080",
			Sessions:      BackendMemory,
			SessionTTL:    Duration{12 * time.Hour},
			SweepInterval: Duration{5 * time.Minute},
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.config/factoryflow/config.toml, honouring
// XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "factoryflow", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "factoryflow", "config.toml"), nil
}

// Load reads path over the defaults and applies the environment. An empty
// path reads the default file when it exists. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return apperr.New(apperr.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overlays the environment read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.URL = v
	}
	if v, ok := lookup(EnvAPIToken); ok {
		c.API.Token = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Documents.MongoURI = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
	}
}

// Validate checks the combination of settings.
func (c Config) Validate() error {
	var errs []error
	if err := apperr.ValidateURL(c.API.URL); err != nil {
		errs = append(errs, fmt.Errorf("api.url: %s", apperr.UserMessage(err)))
	}
	if c.API.Timeout.Duration < 0 || c.API.RateLimit < 0 || c.API.RetryAttempts < 0 {
		errs = append(errs, errors.New("api: timeout, rate_limit and retry_attempts must not be negative"))
	}

	if !slices.Contains([]string{BackendAPI, BackendMongo}, c.Documents.Backend) {
		errs = append(errs, fmt.Errorf("documents.backend: unknown backend %q", c.Documents.Backend))
	}
	if c.Documents.Backend == BackendMongo && c.Documents.MongoURI == "" {
		errs = append(errs, fmt.Errorf("documents.mongo_uri is required for the mongo backend (or set %s)", EnvMongoURI))
	}

	if !slices.Contains([]string{BackendFile, BackendMemory, BackendRedis, BackendNone}, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	if !slices.Contains([]string{BackendMemory, BackendRedis}, c.Server.Sessions) {
		errs = append(errs, fmt.Errorf("server.sessions: unknown backend %q", c.Server.Sessions))
	}
	if (c.Cache.Backend == BackendRedis || c.Server.Sessions == BackendRedis) && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is used"))
	}

	if len(errs) > 0 {
		return apperr.Wrap(apperr.ErrCodeInvalidConfig, errors.Join(errs...), "invalid configuration")
	}
	return nil
}
