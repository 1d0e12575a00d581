package config

import (
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Events    EventsConfig    `mapstructure:"events"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustedProxies перечисляет CIDR, чьему X-Forwarded-For можно верить
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Migrations string `mapstructure:"migrations"`
}

type SheetsConfig struct {
	Records string `mapstructure:"records"`
	Logs    string `mapstructure:"logs"`
}

type DocumentsConfig struct {
	Root     string `mapstructure:"root"`
	Folder   string `mapstructure:"folder"`
	MinBytes int64  `mapstructure:"min_bytes"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

type IngestConfig struct {
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	SecretToken    string          `mapstructure:"secret_token"`
	EnforceOrigin  bool            `mapstructure:"enforce_origin"`
	LockTimeout    time.Duration   `mapstructure:"lock_timeout"`
	StageTimeout   time.Duration   `mapstructure:"stage_timeout"`
	MinInvestment  decimal.Decimal `mapstructure:"min_investment"`
	StrictFormat   bool            `mapstructure:"strict_format"`
}

type RateLimitConfig struct {
	// Driver is "memory" or "redis".
	Driver      string        `mapstructure:"driver"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	CacheSize   int           `mapstructure:"cache_size"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	// Driver is "nats", "kafka" or "none".
	Driver string `mapstructure:"driver"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// ClientConfig настройки консольного клиента формы
type ClientConfig struct {
	Endpoint      string          `mapstructure:"endpoint"`
	SecretToken   string          `mapstructure:"secret_token"`
	Origin        string          `mapstructure:"origin"`
	DraftDir      string          `mapstructure:"draft_dir"`
	MinInvestment decimal.Decimal `mapstructure:"min_investment"`
	FormEncoded   bool            `mapstructure:"form_encoded"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	NATSURL       string          `mapstructure:"nats_url"`
	Log           LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("server.max_request_bytes", int64(64<<20))
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "onboarding")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "onboarding.db")
	v.SetDefault("database.migrations", "migrations")

	v.SetDefault("sheets.records", "investors")
	v.SetDefault("sheets.logs", "logs")

	v.SetDefault("documents.root", "data/documents")
	v.SetDefault("documents.folder", "investor-documents")
	v.SetDefault("documents.min_bytes", int64(100))
	v.SetDefault("documents.max_bytes", int64(20<<20))

	v.SetDefault("ingest.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("ingest.secret_token", "")
	v.SetDefault("ingest.enforce_origin", true)
	v.SetDefault("ingest.lock_timeout", 10*time.Second)
	v.SetDefault("ingest.stage_timeout", 30*time.Second)
	v.SetDefault("ingest.min_investment", "1000")
	v.SetDefault("ingest.strict_format", false)

	v.SetDefault("rate_limit.driver", "memory")
	v.SetDefault("rate_limit.max_requests", 10)
	v.SetDefault("rate_limit.window", time.Hour)
	v.SetDefault("rate_limit.cache_size", 10000)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.driver", "nats")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "onboarding.submissions")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "http://localhost:8080/submit")
	v.SetDefault("secret_token", "")
	v.SetDefault("origin", "http://localhost:5173")
	v.SetDefault("draft_dir", ".investor-form/drafts")
	v.SetDefault("min_investment", "1000")
	v.SetDefault("form_encoded", true)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("nats_url", "")
	// Клиент печатает результат в stdout, логи только при проблемах
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
}

// Load reads the server configuration from defaults, an optional CONFIG_FILE and the environment.
// SERVER_PORT maps to server.port, RATE_LIMIT_MAX_REQUESTS to rate_limit.max_requests and so on.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := read(v, ""); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database port %d", cfg.Database.Port)
	}
	return &cfg, nil
}

// LoadClient reads the form client configuration; environment keys carry the ONBOARDING_ prefix.
func LoadClient() (*ClientConfig, error) {
	v := viper.New()
	setClientDefaults(v)

	if err := read(v, "ONBOARDING"); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to decode client config: %w", err)
	}
	return &cfg, nil
}

func read(v *viper.Viper, prefix string) error {
	if prefix != "" {
		v.SetEnvPrefix(prefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// CONFIG_FILE читаем без префикса
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Ingest.SecretToken == "" {
		return fmt.Errorf("ingest.secret_token must be set")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.RateLimit.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown rate limit driver %q", c.RateLimit.Driver)
	}
	switch c.Events.Driver {
	case "nats", "kafka", "none":
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Documents.MinBytes < 0 || c.Documents.MaxBytes <= c.Documents.MinBytes {
		return fmt.Errorf("documents.min_bytes (%d) must be below documents.max_bytes (%d)", c.Documents.MinBytes, c.Documents.MaxBytes)
	}
	if c.Ingest.LockTimeout <= 0 {
		return fmt.Errorf("ingest.lock_timeout must be positive, got %s", c.Ingest.LockTimeout)
	}
	if c.Ingest.MinInvestment.Sign() <= 0 {
		return fmt.Errorf("ingest.min_investment must be positive, got %s", c.Ingest.MinInvestment)
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("invalid server.trusted_proxies entry %q: %w", cidr, err)
		}
	}
	return nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToDecimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func stringToDecimalHook() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
		return data, nil
	}
}
