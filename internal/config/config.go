package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store driver constants
const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Version is stamped at build time with -ldflags "-X xnema-web/internal/config.Version=..."
var Version = "dev"

// File overrides the config file lookup when set (see the --config flag).
var File string

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
	Recovery  RecoveryConfig  `mapstructure:"recovery"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Routes    RoutesConfig    `mapstructure:"routes"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	Port      int    `mapstructure:"port"`
	Env       string `mapstructure:"env"`
	PublicURL string `mapstructure:"public_url"` // Origin of the web pages, used in emailed links
}

// IdentityConfig points at the hosted auth/data backend
type IdentityConfig struct {
	BaseURL         string        `mapstructure:"base_url"` // Project URL, auth lives under /auth/v1 and data under /rest/v1
	AnonKey         string        `mapstructure:"anon_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ProfileTable    string        `mapstructure:"profile_table"`
	ProfileTimeout  time.Duration `mapstructure:"profile_timeout"`
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "redis" or "memory"
}

type RecoveryConfig struct {
	LinkTTL          time.Duration `mapstructure:"link_ttl"`          // Advisory countdown shown on the reset form
	FlowTTL          time.Duration `mapstructure:"flow_ttl"`          // How long a flow record is kept
	PropagationDelay time.Duration `mapstructure:"propagation_delay"` // Wait before the automatic login
	AllowedFlowTypes []string      `mapstructure:"allowed_flow_types"`
	LenientFlowType  bool          `mapstructure:"lenient_flow_type"`
}

type MailboxConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

type RateLimitConfig struct {
	ForgotPerWindow int           `mapstructure:"forgot_per_window"`
	Window          time.Duration `mapstructure:"window"`
}

// RoutesConfig holds the web application routes the flow hands off to
type RoutesConfig struct {
	Login               string `mapstructure:"login"`
	ForgotPassword      string `mapstructure:"forgot_password"`
	ResetPassword       string `mapstructure:"reset_password"`
	SubscriberDashboard string `mapstructure:"subscriber_dashboard"`
	CreatorDashboard    string `mapstructure:"creator_dashboard"`
	AdminDashboard      string `mapstructure:"admin_dashboard"`
	Pricing             string `mapstructure:"pricing"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	ExposeAPILogs bool   `mapstructure:"expose_api_logs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "xnema-web")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.public_url", "http://localhost:3000")

	v.SetDefault("identity.base_url", "http://localhost:54321")
	v.SetDefault("identity.anon_key", "")
	v.SetDefault("identity.timeout", "10s")
	v.SetDefault("identity.profile_table", "profiles")
	v.SetDefault("identity.profile_timeout", "2s")
	v.SetDefault("identity.profile_cache_ttl", "1m")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "xnema")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "xnema:")

	v.SetDefault("store.driver", StoreDriverMemory)

	v.SetDefault("recovery.link_ttl", "1h")
	v.SetDefault("recovery.flow_ttl", "2h")
	v.SetDefault("recovery.propagation_delay", "1500ms")
	v.SetDefault("recovery.allowed_flow_types", []string{"recovery"})
	v.SetDefault("recovery.lenient_flow_type", false)

	v.SetDefault("mailbox.ttl", "10m")
	v.SetDefault("mailbox.cookie_name", "xnema_reset_email")

	v.SetDefault("rate_limit.forgot_per_window", 5)
	v.SetDefault("rate_limit.window", "15m")

	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.forgot_password", "/esqueci-senha")
	v.SetDefault("routes.reset_password", "/redefinir-senha")
	v.SetDefault("routes.subscriber_dashboard", "/dashboard")
	v.SetDefault("routes.creator_dashboard", "/criador/dashboard")
	v.SetDefault("routes.admin_dashboard", "/admin/analytics")
	v.SetDefault("routes.pricing", "/planos")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.expose_api_logs", false)
}

func NewConfig() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if File != "" {
		v.SetConfigFile(File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Identity.BaseURL = strings.TrimRight(cfg.Identity.BaseURL, "/")
	cfg.App.PublicURL = strings.TrimRight(cfg.App.PublicURL, "/")
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverMemory
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// UsesRedis reports whether flow state, mailbox and rate limits live in Redis
func (c *Config) UsesRedis() bool {
	return c.Store.Driver == StoreDriverRedis
}
