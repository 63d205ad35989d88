package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvPort         = "PORT"
	EnvAppEnv       = "APP_ENV"
	EnvAIProvider   = "AI_PROVIDER"
	EnvAIAPIKey     = "AI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvAIModel      = "AI_MODEL"
	EnvAIBaseURL    = "AI_BASE_URL"
	EnvRedisAddr    = "RATE_LIMIT_REDIS_ADDR"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// readConfigFile unmarshals the YAML config into out. A missing file is not an error.
func readConfigFile(configPath string, out any) error {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, out); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return nil
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// ErrMissingJWTSecret indicates no signing secret was configured.
var ErrMissingJWTSecret = errors.New("missing jwt secret (set `jwt.secret` or JWT_SECRET)")

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead == nil {
		result = cfg.JWT
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	if strings.TrimSpace(result.Secret) == "" {
		return result, ErrMissingJWTSecret
	}
	return result, nil
}

// ServerConfig holds listener and runtime mode settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Debug          bool     `yaml:"debug"`
	TrustedProxies []string `yaml:"trusted-proxies"`
}

const defaultPort = 3000

// LoadServerConfig loads the listener settings. A port flag greater than zero wins over file and env.
func LoadServerConfig(configPath string, flagPort int) (ServerConfig, error) {
	var cfg ServerConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return ServerConfig{}, errRead
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return ServerConfig{}, fmt.Errorf("invalid %s: %w", EnvPort, errParse)
		}
		cfg.Port = port
	}
	if flagPort > 0 {
		cfg.Port = flagPort
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvAppEnv)), "development") {
		cfg.Debug = true
	}
	return cfg, nil
}

// AI provider identifiers.
const (
	AIProviderLangChain = "langchain"
	AIProviderOpenAI    = "openai"
)

// AIConfig holds settings for the text-generation backend.
type AIConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api-key"`
	BaseURL     string        `yaml:"base-url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

const (
	defaultAIBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultAIModel       = "gemini-2.0-flash"
	defaultAITemperature = 0.4
	defaultAITimeout     = 60 * time.Second
)

// LoadAIConfig loads generation backend settings.
func LoadAIConfig(configPath string) (AIConfig, error) {
	type fileConfig struct {
		AI AIConfig `yaml:"ai"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return AIConfig{}, errRead
	}
	result := cfg.AI

	if provider := strings.TrimSpace(os.Getenv(EnvAIProvider)); provider != "" {
		result.Provider = provider
	}
	if key := strings.TrimSpace(os.Getenv(EnvAIAPIKey)); key != "" {
		result.APIKey = key
	} else if key = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" && result.APIKey == "" {
		result.APIKey = key
	}
	if model := strings.TrimSpace(os.Getenv(EnvAIModel)); model != "" {
		result.Model = model
	}
	if baseURL := strings.TrimSpace(os.Getenv(EnvAIBaseURL)); baseURL != "" {
		result.BaseURL = baseURL
	}

	result.Provider = strings.ToLower(strings.TrimSpace(result.Provider))
	switch result.Provider {
	case "":
		result.Provider = AIProviderLangChain
	case AIProviderLangChain, AIProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("unsupported ai provider: %s", result.Provider)
	}
	if strings.TrimSpace(result.BaseURL) == "" {
		result.BaseURL = defaultAIBaseURL
	}
	if strings.TrimSpace(result.Model) == "" {
		result.Model = defaultAIModel
	}
	if result.Temperature <= 0 {
		result.Temperature = defaultAITemperature
	}
	if result.Timeout <= 0 {
		result.Timeout = defaultAITimeout
	}
	return result, nil
}

// RedisConfig holds connection settings for the shared rate limit store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	General int           `yaml:"general"`
	Auth    int           `yaml:"auth"`
	Window  time.Duration `yaml:"window"`
	Redis   RedisConfig   `yaml:"redis"`
}

const (
	defaultGeneralLimit = 100
	defaultAuthLimit    = 5
	defaultLimitWindow  = 15 * time.Minute
	defaultRedisPrefix  = "duskwallet:rl"
)

// LoadRateLimitConfig loads request rate limit settings.
func LoadRateLimitConfig(configPath string) (RateLimitConfig, error) {
	type fileConfig struct {
		RateLimit RateLimitConfig `yaml:"rate-limit"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return RateLimitConfig{}, errRead
	}
	result := cfg.RateLimit

	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Redis.Addr = addr
		result.Redis.Enabled = true
	}

	if result.General <= 0 {
		result.General = defaultGeneralLimit
	}
	if result.Auth <= 0 {
		result.Auth = defaultAuthLimit
	}
	if result.Window <= 0 {
		result.Window = defaultLimitWindow
	}
	result.Redis.Addr = strings.TrimSpace(result.Redis.Addr)
	result.Redis.Prefix = strings.TrimSpace(result.Redis.Prefix)
	if result.Redis.Prefix == "" {
		result.Redis.Prefix = defaultRedisPrefix
	}
	if result.Redis.DB < 0 {
		result.Redis.DB = 0
	}
	return result, nil
}
