// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type IyzicoConfig struct {
	APIKey      string        `yaml:"api_key"`
	SecretKey   string        `yaml:"secret_key"`
	BaseURL     string        `yaml:"base_url"`
	CallbackURL string        `yaml:"callback_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	Iyzico       IyzicoConfig  `yaml:"iyzico"`
	CheckoutLock time.Duration `yaml:"checkout_lock"`
}

type AppleConfig struct {
	SharedSecret string        `yaml:"shared_secret"`
	ProdURL      string        `yaml:"prod_url"`
	SandboxURL   string        `yaml:"sandbox_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type IAPConfig struct {
	Apple     AppleConfig `yaml:"apple"`
	AllowMock bool        `yaml:"allow_mock"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type SchedulerConfig struct {
	SweepCron  string        `yaml:"sweep_cron"`
	StaleAfter time.Duration `yaml:"stale_after"`
	BatchSize  int           `yaml:"batch_size"`
	LeaderTTL  time.Duration `yaml:"leader_ttl"`
}

type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// RedirectConfig holds where the callback surface sends the browser.
type RedirectConfig struct {
	FrontendURL string `yaml:"frontend_url"`
	DeepLink    string `yaml:"deep_link"`
}

type WorkerConfig struct {
	Notifications int `yaml:"notifications"`
	QueueSize     int `yaml:"queue_size"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	IAP       IAPConfig       `yaml:"iap"`
	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Redirects RedirectConfig  `yaml:"redirects"`
	Workers   WorkerConfig    `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses the -config/-dev flags and loads the file they point to.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Load reads the YAML file, applies .env and environment overrides, defaults and validation.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("IYZICO_API_KEY", &cfg.Payment.Iyzico.APIKey)
	str("IYZICO_SECRET_KEY", &cfg.Payment.Iyzico.SecretKey)
	str("IYZICO_BASE_URL", &cfg.Payment.Iyzico.BaseURL)
	str("IYZICO_CALLBACK_URL", &cfg.Payment.Iyzico.CallbackURL)
	str("APPLE_SHARED_SECRET", &cfg.IAP.Apple.SharedSecret)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("ADMIN_API_KEY", &cfg.Auth.AdminAPIKey)
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.Token)
	str("FRONTEND_URL", &cfg.Redirects.FrontendURL)
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	if v, ok := os.LookupEnv("ALLOW_MOCK_IAP"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.IAP.AllowMock = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Payment.Iyzico.BaseURL == "" {
		cfg.Payment.Iyzico.BaseURL = "https://sandbox-api.iyzipay.com"
	}
	if cfg.Payment.Iyzico.Timeout <= 0 {
		cfg.Payment.Iyzico.Timeout = 15 * time.Second
	}
	if cfg.Payment.CheckoutLock <= 0 {
		cfg.Payment.CheckoutLock = 10 * time.Second
	}
	if cfg.IAP.Apple.ProdURL == "" {
		cfg.IAP.Apple.ProdURL = "https://buy.itunes.apple.com/verifyReceipt"
	}
	if cfg.IAP.Apple.SandboxURL == "" {
		cfg.IAP.Apple.SandboxURL = "https://sandbox.itunes.apple.com/verifyReceipt"
	}
	if cfg.IAP.Apple.Timeout <= 0 {
		cfg.IAP.Apple.Timeout = 15 * time.Second
	}
	if cfg.Scheduler.SweepCron == "" {
		cfg.Scheduler.SweepCron = "@every 10m"
	}
	if cfg.Scheduler.StaleAfter <= 0 {
		cfg.Scheduler.StaleAfter = 30 * time.Minute
	}
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 500
	}
	if cfg.Scheduler.LeaderTTL <= 0 {
		cfg.Scheduler.LeaderTTL = 9 * time.Minute
	}
	if cfg.Redirects.FrontendURL == "" {
		cfg.Redirects.FrontendURL = "http://localhost:3000"
	}
	if cfg.Redirects.DeepLink == "" {
		cfg.Redirects.DeepLink = "trphone://payment"
	}
	if cfg.Workers.Notifications <= 0 {
		cfg.Workers.Notifications = 4
	}
	if cfg.Workers.QueueSize <= 0 {
		cfg.Workers.QueueSize = 256
	}
}

// Validate performs the minimal checks needed to start the service.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Payment.Iyzico.CallbackURL == "" {
		return errors.New("payment.iyzico.callback_url is required")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
