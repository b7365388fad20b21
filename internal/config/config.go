// Package config loads runtime settings from .env, an optional YAML file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"

	// WinnerBackendStore keeps winner records in the configured record store
	WinnerBackendStore = "store"
	WinnerBackendRedis = "redis"
)

// Config is the complete runtime configuration
type Config struct {
	Port         string
	TickInterval time.Duration
	MinIncrement decimal.Decimal

	StoreBackend  string
	DBFile        string
	PostgresDSN   string
	WinnerBackend string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PersistWorkers   int
	PersistQueueSize int
	PersistTimeout   time.Duration

	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSPingInterval   time.Duration
	WSMaxMessageSize int64
	WSSendBuffer     int

	SeedDemo bool
	LogLevel string
}

// Load reads envFile (a missing file is fine), then the YAML file named by
// CONFIG_FILE if set, then the process environment.
func Load(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: failed to load %s: %w", envFile, err)
	}

	values := map[string]string{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileValues, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}

	cfg, err := Parse(values)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ReadFile reads a flat YAML document. Keys are matched case-insensitively
// against the environment variable names, e.g. tick_interval -> TICK_INTERVAL.
func ReadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: failed to parse config: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

type source struct {
	values map[string]string
	errs   []error
}

func (s *source) str(key, def string) string {
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return def
}

func (s *source) integer(key string, def int) int {
	v := s.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	v := s.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (s *source) boolean(key string, def bool) bool {
	v := s.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (s *source) amount(key, def string) decimal.Decimal {
	v := s.str(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return decimal.RequireFromString(def)
	}
	return d
}

// Parse builds a Config from key/value pairs, applying defaults for missing keys
func Parse(values map[string]string) (Config, error) {
	s := &source{values: values}

	cfg := Config{
		Port:         s.str("PORT", "8080"),
		TickInterval: s.duration("TICK_INTERVAL", time.Second),
		MinIncrement: s.amount("MIN_INCREMENT", "0.01"),

		StoreBackend:  strings.ToLower(s.str("STORE_BACKEND", BackendMemory)),
		DBFile:        s.str("DB_FILE", "db.json"),
		PostgresDSN:   s.str("POSTGRES_DSN", ""),
		WinnerBackend: strings.ToLower(s.str("WINNER_BACKEND", WinnerBackendStore)),
		RedisAddr:     s.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: s.str("REDIS_PASSWORD", ""),
		RedisDB:       s.integer("REDIS_DB", 0),

		PersistWorkers:   s.integer("PERSIST_WORKERS", 4),
		PersistQueueSize: s.integer("PERSIST_QUEUE_SIZE", 1024),
		PersistTimeout:   s.duration("PERSIST_TIMEOUT", 5*time.Second),

		WSWriteTimeout:   s.duration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSReadTimeout:    s.duration("WS_READ_TIMEOUT", 60*time.Second),
		WSPingInterval:   s.duration("WS_PING_INTERVAL", 30*time.Second),
		WSMaxMessageSize: int64(s.integer("WS_MAX_MESSAGE_SIZE", 4096)),
		WSSendBuffer:     s.integer("WS_SEND_BUFFER", 256),

		SeedDemo: s.boolean("SEED_DEMO", false),
		LogLevel: s.str("LOG_LEVEL", "info"),
	}

	if len(s.errs) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %w", errors.Join(s.errs...))
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error

	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	if !c.MinIncrement.IsPositive() {
		errs = append(errs, errors.New("MIN_INCREMENT must be positive"))
	}
	switch c.StoreBackend {
	case BackendMemory, BackendFile:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.WinnerBackend {
	case WinnerBackendStore, WinnerBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown WINNER_BACKEND %q", c.WinnerBackend))
	}
	if c.PersistWorkers <= 0 || c.PersistQueueSize <= 0 || c.PersistTimeout <= 0 {
		errs = append(errs, errors.New("PERSIST_WORKERS, PERSIST_QUEUE_SIZE and PERSIST_TIMEOUT must be positive"))
	}
	if c.WSWriteTimeout <= 0 || c.WSReadTimeout <= 0 || c.WSPingInterval <= 0 {
		errs = append(errs, errors.New("websocket timeouts must be positive"))
	}
	if c.WSPingInterval >= c.WSReadTimeout {
		errs = append(errs, errors.New("WS_PING_INTERVAL must be shorter than WS_READ_TIMEOUT"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
