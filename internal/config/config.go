package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const envPrefix = "CONFREVIEW"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Broker       BrokerConfig       `mapstructure:"broker"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Notification NotificationConfig `mapstructure:"notification"`
	Invitation   InvitationConfig   `mapstructure:"invitation"`
	Auth         AuthConfig         `mapstructure:"auth"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HealthPort      int           `mapstructure:"health_port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// SeedFile preloads the memory driver with papers and reviewers.
	SeedFile string `mapstructure:"seed_file"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type BrokerConfig struct {
	// Kind selects the outbox transport: redis or kafka.
	Kind         string   `mapstructure:"kind"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
}

type SMTPConfig struct {
	// Enabled false wires the explicit no-op sender.
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type NotificationConfig struct {
	TemplatePath  string        `mapstructure:"template_path"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	PortalURL     string        `mapstructure:"portal_url"`
}

type InvitationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	PaperTTL        time.Duration `mapstructure:"paper_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Topic         string        `mapstructure:"topic"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Secrets are never read from the YAML file.
type Secrets struct {
	DBPassword   string `envconfig:"DB_PASSWORD"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.health_port", 8081)

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("broker.kind", "redis")
	v.SetDefault("broker.kafka_group_id", "conference-api")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Program Committee")

	v.SetDefault("notification.template_path", "templates/invitation.tmpl")
	v.SetDefault("notification.max_attempts", 3)
	v.SetDefault("notification.retry_interval", 5*time.Minute)

	v.SetDefault("invitation.default_page_size", 20)
	v.SetDefault("invitation.max_page_size", 100)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cache.paper_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("outbox.topic", "review-events")

	v.SetDefault("metrics.namespace", "conference")
}

// LoadConfig reads config.yml from the usual locations, applies
// CONFREVIEW_* environment overrides and overlays secrets.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	if file := os.Getenv(envPrefix + "_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process(envPrefix, &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s Secrets) {
	if s.DBPassword != "" {
		c.Database.Password = s.DBPassword
	}
	if s.SMTPPassword != "" {
		c.SMTP.Password = s.SMTPPassword
	}
	if s.JWTSecret != "" {
		c.Auth.JWTSecret = s.JWTSecret
	}
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Broker.Kind {
	case "redis":
	case "kafka":
		if len(c.Broker.KafkaBrokers) == 0 {
			return fmt.Errorf("broker.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("unsupported broker kind %q", c.Broker.Kind)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Invitation.DefaultPageSize <= 0 || c.Invitation.MaxPageSize < c.Invitation.DefaultPageSize {
		return fmt.Errorf("invalid invitation page sizes %d/%d", c.Invitation.DefaultPageSize, c.Invitation.MaxPageSize)
	}
	if c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("notification.max_attempts must be greater than 0")
	}
	if c.Notification.RetryInterval <= 0 {
		return fmt.Errorf("notification.retry_interval must be greater than 0")
	}
	return nil
}
