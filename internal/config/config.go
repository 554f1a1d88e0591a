package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"
	// Check times must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the panel-sentinel service and its CLI.
type Config struct {
	// ListenAddress is the gRPC address of the operator API.
	ListenAddress string `yaml:"listen_addr"`
	// MetricsAddress is the HTTP address serving Prometheus metrics. Empty disables it.
	MetricsAddress string `yaml:"metrics_addr"`
	// PollInterval is the period of the reconciliation loop.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Timeout bounds every call to an external system.
	Timeout time.Duration `yaml:"timeout"`
	// Timezone is the IANA location used to match building check times.
	Timezone string `yaml:"timezone"`
	// Store configures the local persistent store.
	Store StoreConfig `yaml:"store"`
	// Cache configures where the arm-state cache lives.
	Cache CacheConfig `yaml:"cache"`
	// Live configures the connection to the live security system.
	Live LiveConfig `yaml:"live"`
	// Alerts configures where disarmed-building alerts are delivered.
	Alerts AlertsConfig `yaml:"alerts"`
	// Log configures log level and optional file output.
	Log LogConfig `yaml:"log"`
}

// StoreConfig configures the sqlite store.
type StoreConfig struct {
	// Path is the sqlite database file.
	Path string `yaml:"path"`
}

// CacheConfig selects the arm-state cache backend.
type CacheConfig struct {
	// Backend is either "store" (default) or "redis".
	Backend string `yaml:"backend"`
	// RedisAddress is the host:port of the redis server.
	RedisAddress string `yaml:"redis_addr"`
	// RedisPassword is optional.
	RedisPassword string `yaml:"redis_password"`
	// RedisDB is the logical database number.
	RedisDB int `yaml:"redis_db"`
	// KeyPrefix is prepended to every cache key.
	KeyPrefix string `yaml:"key_prefix"`
}

// LiveConfig configures the live system database.
type LiveConfig struct {
	// Driver is a registered database/sql driver name: "postgres" or "pgx".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// AlertsConfig lists the alert sinks. With none configured alerts are only logged.
type AlertsConfig struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// MQTTConfig configures the MQTT alert sink.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WebhookConfig configures the HTTP alert sink.
type WebhookConfig struct {
	URL        string `yaml:"url"`
	RetryCount int    `yaml:"retry_count"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File is a rotatelogs pattern, e.g. "panel-sentinel-%Y-%m-%d.log". Empty logs to stdout only.
	File string `yaml:"file"`
	// FileLevel is the minimum level written to File. Empty means the same as Level.
	FileLevel string `yaml:"file_level"`
	// MaxAge is how long rotated files are kept.
	MaxAge time.Duration `yaml:"max_age"`
	// RotationTime is how often a new file is started.
	RotationTime time.Duration `yaml:"rotation_time"`
}

const (
	// DefaultConfigFilename is the default filename for service settings.
	DefaultConfigFilename = "panel-sentinel.yaml"

	// DefaultListenAddress is the default gRPC listen address.
	DefaultListenAddress = "127.0.0.1:50071"

	// DefaultStorePath is the default sqlite file.
	DefaultStorePath = "panel-sentinel.db"

	// DefaultPollInterval is the default reconciliation period.
	DefaultPollInterval = time.Minute

	// DefaultTimeout is the default duration for external calls.
	DefaultTimeout = 10 * time.Second

	// DefaultTimezone is the location check times are expressed in.
	DefaultTimezone = "Asia/Kolkata"

	// DefaultLiveDriver is the database/sql driver used for the live system.
	DefaultLiveDriver = "postgres"

	// DefaultLogLevel is used when log.level is empty.
	DefaultLogLevel = "info"

	// DefaultLogMaxAge is how long rotated log files are kept.
	DefaultLogMaxAge = 24 * time.Hour

	// DefaultLogRotationTime is how often log files are rotated.
	DefaultLogRotationTime = time.Hour

	// DefaultWebhookRetryCount is the number of webhook retries.
	DefaultWebhookRetryCount = 3

	// CacheBackendStore keeps the arm-state cache in the persistent store.
	CacheBackendStore = "store"

	// CacheBackendRedis keeps the arm-state cache in redis.
	CacheBackendRedis = "redis"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errLiveDSNRequired is returned when the live system DSN is missing.
	errLiveDSNRequired = errors.New("live.dsn must be provided")
	// errUnknownLiveDriver is returned for unsupported database drivers.
	errUnknownLiveDriver = errors.New("live.driver must be postgres or pgx")
	// errUnknownCacheBackend is returned for unsupported cache backends.
	errUnknownCacheBackend = errors.New("cache.backend must be store or redis")
	// errRedisAddressRequired is returned when the redis backend has no address.
	errRedisAddressRequired = errors.New("cache.redis_addr must be provided for the redis backend")
	// errMQTTTopicRequired is returned when an MQTT broker has no topic.
	errMQTTTopicRequired = errors.New("alerts.mqtt.topic must be provided with a broker")
	// errInvalidQoS is returned when the MQTT QoS is out of range.
	errInvalidQoS = errors.New("alerts.mqtt.qos must be 0, 1 or 2")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// The file may hold database and broker credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults for omitted fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if err := validateLive(&cfg.Live); err != nil {
		return err
	}

	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}

	return validateAlerts(&cfg.Alerts)
}

// Location returns the configured timezone. Validate must have succeeded first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendStore
	}

	if cfg.Live.Driver == "" {
		cfg.Live.Driver = DefaultLiveDriver
	}

	if cfg.Alerts.Webhook.RetryCount <= 0 {
		cfg.Alerts.Webhook.RetryCount = DefaultWebhookRetryCount
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	if cfg.Log.MaxAge <= 0 {
		cfg.Log.MaxAge = DefaultLogMaxAge
	}

	if cfg.Log.RotationTime <= 0 {
		cfg.Log.RotationTime = DefaultLogRotationTime
	}
}

func validateLive(live *LiveConfig) error {
	switch live.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("%w: %q", errUnknownLiveDriver, live.Driver)
	}

	if live.DSN == "" {
		return errLiveDSNRequired
	}

	return nil
}

func validateCache(cache *CacheConfig) error {
	switch cache.Backend {
	case CacheBackendStore:
		return nil
	case CacheBackendRedis:
		if cache.RedisAddress == "" {
			return errRedisAddressRequired
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownCacheBackend, cache.Backend)
	}
}

func validateAlerts(alerts *AlertsConfig) error {
	if alerts.MQTT.Broker != "" {
		if alerts.MQTT.Topic == "" {
			return errMQTTTopicRequired
		}

		if alerts.MQTT.QoS > 2 { //nolint:mnd // MQTT defines QoS levels 0..2.
			return errInvalidQoS
		}
	}

	if alerts.Webhook.URL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(alerts.Webhook.URL); err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	return nil
}
