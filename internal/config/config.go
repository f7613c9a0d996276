package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/maltedev/arbitrage-scanner/internal/fetch"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Amazon   AmazonConfig
	Cache    CacheConfig
	Jobs     JobsConfig
	Redis    RedisConfig
	Consumer ConsumerConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"150s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type ScraperConfig struct {
	DelayMin     time.Duration `env:"SCRAPER_DELAY_MIN" envDefault:"1s"`
	DelayMax     time.Duration `env:"SCRAPER_DELAY_MAX" envDefault:"2200ms"`
	SoldDelayMin time.Duration `env:"SCRAPER_SOLD_DELAY_MIN" envDefault:"600ms"`
	SoldDelayMax time.Duration `env:"SCRAPER_SOLD_DELAY_MAX" envDefault:"1400ms"`
	MaxRetries   int           `env:"SCRAPER_MAX_RETRIES" envDefault:"6"`
	BackoffBase  time.Duration `env:"SCRAPER_BACKOFF_BASE" envDefault:"2s"`
	Timeout      time.Duration `env:"SCRAPER_TIMEOUT" envDefault:"30s"`
	UserAgents   []string      `env:"SCRAPER_USER_AGENTS" envSeparator:"|"`
}

type BrowserConfig struct {
	Headless    bool          `env:"BROWSER_HEADLESS" envDefault:"true"`
	Timeout     time.Duration `env:"BROWSER_TIMEOUT" envDefault:"30s"`
	ProxyServer string        `env:"BROWSER_PROXY"`
}

// AmazonConfig holds the sign-in credentials. They are only checked when
// the first Amazon page is requested.
type AmazonConfig struct {
	Email       string `env:"AMAZON_EMAIL"`
	Password    string `env:"AMAZON_PASSWORD"`
	TOTPSecret  string `env:"AMAZON_TOTP_SECRET"`
	VerifyLogin bool   `env:"AMAZON_VERIFY_LOGIN" envDefault:"false"`
}

type CacheConfig struct {
	Size int `env:"CACHE_SIZE" envDefault:"512"`
}

type JobsConfig struct {
	Store     string        `env:"JOBS_STORE" envDefault:"memory"`
	ResultTTL time.Duration `env:"JOBS_RESULT_TTL" envDefault:"1h"`
	QueueSize int           `env:"JOBS_QUEUE_SIZE" envDefault:"16"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"arbitrage:"`
}

// ConsumerConfig drives the scan event consumer. Without a webhook URL
// events are only logged.
type ConsumerConfig struct {
	Group      string        `env:"CONSUMER_GROUP" envDefault:"scan-consumer-group"`
	Name       string        `env:"CONSUMER_NAME" envDefault:"consumer-1"`
	WebhookURL string        `env:"SCAN_WEBHOOK_URL"`
	Timeout    time.Duration `env:"SCAN_WEBHOOK_TIMEOUT" envDefault:"10s"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}

	if len(cfg.Scraper.UserAgents) == 0 {
		cfg.Scraper.UserAgents = fetch.DefaultUserAgents()
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.DelayMin < 0 {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be negative")
	}

	if c.Scraper.DelayMin > c.Scraper.DelayMax {
		return fmt.Errorf("SCRAPER_DELAY_MIN cannot be greater than SCRAPER_DELAY_MAX")
	}

	if c.Scraper.SoldDelayMin > c.Scraper.SoldDelayMax {
		return fmt.Errorf("SCRAPER_SOLD_DELAY_MIN cannot be greater than SCRAPER_SOLD_DELAY_MAX")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.BackoffBase < 0 {
		return fmt.Errorf("SCRAPER_BACKOFF_BASE cannot be negative")
	}

	if c.Cache.Size < 1 {
		return fmt.Errorf("CACHE_SIZE must be at least 1")
	}

	switch c.Jobs.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("JOBS_STORE must be memory or redis, got %q", c.Jobs.Store)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}
