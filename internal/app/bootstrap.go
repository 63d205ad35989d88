package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/duskwallet/duskwallet-api/internal/config"
	"github.com/duskwallet/duskwallet-api/internal/security"
)

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "duskwallet.db"

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// BuildSQLiteDSN constructs a SQLite DSN with default pragmas.
func BuildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
	}, "&")
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Port        int          `yaml:"port"`
	Debug       bool         `yaml:"debug"`
	DatabaseDSN string       `yaml:"database-dsn"`
	JWT         jwtCfg       `yaml:"jwt"`
	AI          aiCfg        `yaml:"ai"`
	RateLimit   rateLimitCfg `yaml:"rate-limit"`
}

type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type aiCfg struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api-key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

type rateLimitCfg struct {
	General int    `yaml:"general"`
	Auth    int    `yaml:"auth"`
	Window  string `yaml:"window"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() (string, error) {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

// WriteConfigFile writes a starter config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: "720h",
		},
		AI: aiCfg{
			Provider: config.AIProviderLangChain,
			Model:    "gemini-2.0-flash",
			Timeout:  "60s",
		},
		RateLimit: rateLimitCfg{
			General: 100,
			Auth:    5,
			Window:  "15m",
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}
	return nil
}

// EnsureConfig writes a starter config next to configPath when none exists and
// DB_CONNECTION is unset. It reports whether a file was created.
func EnsureConfig(configPath string, port int) (bool, error) {
	if ConfigExists(configPath) || strings.TrimSpace(os.Getenv(config.EnvDBConnection)) != "" {
		return false, nil
	}
	dbPath := filepath.Join(filepath.Dir(configPath), defaultSQLitePath)
	if errWrite := WriteConfigFile(configPath, BuildSQLiteDSN(dbPath), port); errWrite != nil {
		return false, errWrite
	}
	log.WithFields(log.Fields{
		"config":   configPath,
		"database": dbPath,
	}).Info("config.yaml not found, wrote a starter config with a local sqlite database")
	return true, nil
}
