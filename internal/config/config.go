package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds environment-driven configuration.
type Config struct {
	Port           string        `yaml:"port"`
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDB        string        `yaml:"mongo_db"`
	RateLimitRPM   int           `yaml:"rate_limit_rpm"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheMaxItems  int           `yaml:"cache_max_items"`
	KeyCacheTTL    time.Duration `yaml:"key_cache_ttl"`
	ComputeTimeout time.Duration `yaml:"compute_timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	MaxBatch       int           `yaml:"max_batch"`
	MaxInputBytes  int64         `yaml:"max_input_bytes"`
	HistorySize    int           `yaml:"history_size"`
	AdminToken     string        `yaml:"admin_token"`
	LogLevel       string        `yaml:"log_level"`
	DisableAuth    bool          `yaml:"disable_auth"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:           "8080",
		MongoDB:        "strcalc",
		RateLimitRPM:   60,
		RateLimitBurst: 10,
		CacheTTL:       5 * time.Minute,
		CacheMaxItems:  10000,
		KeyCacheTTL:    60 * time.Second,
		ComputeTimeout: 2 * time.Second,
		MaxConcurrency: 16,
		MaxBatch:       100,
		MaxInputBytes:  64 << 10,
		HistorySize:    1000,
		LogLevel:       "info",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Load reads the YAML file named by STRCALC_CONFIG, if any, on top of the
// defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("STRCALC_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	c.MongoURI = getenv("MONGO_URI", c.MongoURI)
	c.MongoDB = getenv("MONGO_DB", c.MongoDB)
	c.RateLimitRPM = getint("RATE_LIMIT_RPM", c.RateLimitRPM)
	c.RateLimitBurst = getint("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.CacheTTL = getdur("CACHE_TTL", c.CacheTTL)
	c.CacheMaxItems = getint("CACHE_MAX_ITEMS", c.CacheMaxItems)
	c.KeyCacheTTL = getdur("KEY_CACHE_TTL", c.KeyCacheTTL)
	c.ComputeTimeout = getdur("COMPUTE_TIMEOUT", c.ComputeTimeout)
	c.MaxConcurrency = getint("MAX_CONCURRENCY", c.MaxConcurrency)
	c.MaxBatch = getint("MAX_BATCH", c.MaxBatch)
	c.MaxInputBytes = getint64("MAX_INPUT_BYTES", c.MaxInputBytes)
	c.HistorySize = getint("HISTORY_SIZE", c.HistorySize)
	c.AdminToken = getenv("ADMIN_TOKEN", c.AdminToken)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.DisableAuth = getbool("DISABLE_AUTH", c.DisableAuth)
}
