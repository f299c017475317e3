package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a value unset.
const (
	DefaultPoolSize    = 3
	DefaultWidth       = 900
	DefaultHeight      = 900
	DefaultLoadTimeout = 30 * time.Second
	DefaultSettleDelay = 500 * time.Millisecond

	DefaultRequestTimeout = 90 * time.Second
)

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Prefork bool   `yaml:"prefork"`

	// RequestTimeout bounds the context handed to API handlers.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type BrowserConfig struct {
	PoolSize    int           `yaml:"pool_size"`
	ChromePath  string        `yaml:"chrome_path"`
	UserDataDir string        `yaml:"user_data_dir"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	// HealthCheck probes an instance with a throwaway tab when it is released.
	HealthCheck bool `yaml:"health_check"`
	// WarmUp launches the pool at startup instead of on the first render.
	WarmUp bool `yaml:"warm_up"`
}

type ImageConfig struct {
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	MaxPNGBytes int `yaml:"max_png_bytes"`
}

type CacheConfig struct {
	RedisHost         string        `yaml:"redis_host"`
	ImageCacheDB      int           `yaml:"image_cache_db"`
	RateLimitDB       int           `yaml:"rate_limit_db"`
	ImageCacheEnabled bool          `yaml:"image_cache_enabled"`
	ImageCacheTTL     time.Duration `yaml:"image_cache_ttl"`
}

type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// PostgresConfig holds connection settings. Host may also carry a full
// postgres:// URL, in which case the remaining fields are ignored.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RateLimiterConfig struct {
	Interval  time.Duration `yaml:"interval"`
	UserLimit int           `yaml:"user_limit"`
}

type JobsConfig struct {
	Stream    string        `yaml:"stream"`
	Group     string        `yaml:"group"`
	Workers   int           `yaml:"workers"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logger      LoggerConfig      `yaml:"logger"`
	Browser     BrowserConfig     `yaml:"browser"`
	Image       ImageConfig       `yaml:"image"`
	Cache       CacheConfig       `yaml:"cache"`
	Storage     StorageConfig     `yaml:"storage"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	Jobs        JobsConfig        `yaml:"jobs"`
}

// Path returns the config file location from CONFIG_PATH, defaulting to config.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads the config file named by CONFIG_PATH.
func Load() Config {
	return LoadFrom(Path())
}

// LoadFrom reads, defaults, overrides from the environment and validates the
// config at path. It panics on unreadable files or invalid values.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("failed to read config %q: %v", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse config %q: %v", path, err))
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config %q: %v", path, err))
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":3000"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Browser.PoolSize == 0 {
		cfg.Browser.PoolSize = DefaultPoolSize
	}
	if cfg.Browser.LoadTimeout == 0 {
		cfg.Browser.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.Browser.SettleDelay == 0 {
		cfg.Browser.SettleDelay = DefaultSettleDelay
	}
	if cfg.Image.Width == 0 {
		cfg.Image.Width = DefaultWidth
	}
	if cfg.Image.Height == 0 {
		cfg.Image.Height = DefaultHeight
	}
	if cfg.Image.MaxPNGBytes == 0 {
		cfg.Image.MaxPNGBytes = 20 * 1024 * 1024
	}
	if cfg.Cache.ImageCacheTTL == 0 {
		cfg.Cache.ImageCacheTTL = 24 * time.Hour
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "goal-images/"
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Jobs.Stream == "" {
		cfg.Jobs.Stream = "goal-image:jobs"
	}
	if cfg.Jobs.Group == "" {
		cfg.Jobs.Group = "goal-image-workers"
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = cfg.Browser.PoolSize
	}
	if cfg.Jobs.StatusTTL == 0 {
		cfg.Jobs.StatusTTL = 24 * time.Hour
	}
}

func applyEnv(cfg *Config) {
	envInt("BROWSER_POOL_SIZE", &cfg.Browser.PoolSize)
	envInt("IMAGE_WIDTH", &cfg.Image.Width)
	envInt("IMAGE_HEIGHT", &cfg.Image.Height)
	// Allow common container env var to override chrome_path.
	if cfg.Browser.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.Browser.ChromePath = v
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisHost = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("%s must be an integer, got %q", name, v))
	}
	*dst = n
}

// Validate reports the first invalid value in cfg.
func (cfg Config) Validate() error {
	switch {
	case cfg.Server.RequestTimeout < 0:
		return fmt.Errorf("server.request_timeout must not be negative")
	case cfg.Browser.PoolSize <= 0:
		return fmt.Errorf("browser.pool_size must be positive, got %d", cfg.Browser.PoolSize)
	case cfg.Browser.LoadTimeout <= 0:
		return fmt.Errorf("browser.load_timeout must be positive")
	case cfg.Browser.SettleDelay < 0:
		return fmt.Errorf("browser.settle_delay must not be negative")
	case cfg.Image.Width <= 0 || cfg.Image.Height <= 0:
		return fmt.Errorf("image dimensions must be positive, got %dx%d", cfg.Image.Width, cfg.Image.Height)
	case cfg.Image.MaxPNGBytes < 0:
		return fmt.Errorf("image.max_png_bytes must not be negative")
	case cfg.RateLimiter.Interval <= 0:
		return fmt.Errorf("rate_limiter.interval must be positive")
	case cfg.RateLimiter.UserLimit < 0:
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	case cfg.Jobs.Workers <= 0:
		return fmt.Errorf("jobs.workers must be positive")
	}
	return nil
}
