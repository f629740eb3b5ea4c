package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	UsersAPIURL    string `yaml:"users_api_url"`
	ProductsAPIURL string `yaml:"products_api_url"`
	HTTPPort       string `yaml:"http_port"`
	// TrustProxy takes client addresses from X-Forwarded-For/X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`

	// RedisAddr enables per-IP rate limiting of mutations when set.
	RedisAddr  string        `yaml:"redis_addr"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`

	// KafkaBrokers enables audit events for successful mutations when set.
	KafkaBrokers     []string `yaml:"kafka_brokers"`
	KafkaTopicPrefix string   `yaml:"kafka_topic_prefix"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaults() *Config {
	return &Config{
		UsersAPIURL:      "http://localhost:4001",
		ProductsAPIURL:   "http://localhost:4002",
		HTTPPort:         "8080",
		SessionTTL:       30 * time.Minute,
		RateLimit:        30,
		RateWindow:       time.Minute,
		KafkaTopicPrefix: "dashboard",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// NewConfig resolves the configuration from the environment on top of the
// built-in defaults.
func NewConfig() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// Load reads an optional YAML file and then applies environment overrides.
// An empty path is the same as NewConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return NewConfig(), nil
	}
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.UsersAPIURL = getEnv("USERS_API_URL", getEnv("VITE_USERS_API_URL", c.UsersAPIURL))
	c.ProductsAPIURL = getEnv("PRODUCTS_API_URL", getEnv("VITE_PRODUCTS_API_URL", c.ProductsAPIURL))
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.TrustProxy = getBool("TRUST_PROXY", c.TrustProxy)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionTTL = getDuration("SESSION_TTL", c.SessionTTL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RateLimit = getInt("RATE_LIMIT", c.RateLimit)
	c.RateWindow = getDuration("RATE_WINDOW", c.RateWindow)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.KafkaBrokers = splitList(brokers)
	}
	c.KafkaTopicPrefix = getEnv("KAFKA_TOPIC_PREFIX", c.KafkaTopicPrefix)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
