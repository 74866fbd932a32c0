package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
	"github.com/dvloznov/pocket-ledger/internal/infra/repository"
	"github.com/dvloznov/pocket-ledger/internal/logger"
)

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultDBName    = "pocket-ledger"
	DefaultDBVersion = 1
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Environment variable names.
const (
	EnvDataDir      = "LEDGER_DATA_DIR"
	EnvDBName       = "LEDGER_DB_NAME"
	EnvDBVersion    = "LEDGER_DB_VERSION"
	EnvPort         = "LEDGER_PORT"
	EnvBackupBucket = "LEDGER_BACKUP_BUCKET"
	EnvBackupURL    = "LEDGER_BACKUP_ENDPOINT"
	EnvLogLevel     = "LEDGER_LOG_LEVEL"
	EnvLogFormat    = "LEDGER_LOG_FORMAT"
	EnvCORSOrigins  = "LEDGER_CORS_ORIGINS"
)

// Config holds settings shared by every command.
type Config struct {
	DataDir        string
	DBName         string
	DBVersion      int
	Port           string
	BackupBucket   string
	BackupEndpoint string   // optional GCS endpoint override, e.g. an emulator
	LogLevel       string
	LogFormat      string
	CORSOrigins    []string // empty allows every origin
}

// Load reads the environment, falling back to defaults. Flags parsed later
// in each command override these values.
func Load() (Config, error) {
	cfg := Config{
		DataDir:        env(EnvDataDir, defaultDataDir()),
		DBName:         env(EnvDBName, DefaultDBName),
		DBVersion:      DefaultDBVersion,
		Port:           env(EnvPort, DefaultPort),
		BackupBucket:   os.Getenv(EnvBackupBucket),
		BackupEndpoint: os.Getenv(EnvBackupURL),
		LogLevel:       env(EnvLogLevel, DefaultLogLevel),
		LogFormat:      env(EnvLogFormat, DefaultLogFormat),
		CORSOrigins:    SplitList(os.Getenv(EnvCORSOrigins)),
	}

	if v := os.Getenv(EnvDBVersion); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDBVersion, err)
		}
		cfg.DBVersion = n
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside Open.
func (c Config) Validate() error {
	if c.DBName == "" {
		return errors.New("database name is required")
	}
	if c.DBVersion < 1 {
		return fmt.Errorf("database version must be >= 1, got %d", c.DBVersion)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// StoreConfig returns the kvstore configuration with every store the
// repositories need.
func (c Config) StoreConfig() kvstore.Config {
	return kvstore.Config{
		Dir:     c.DataDir,
		Name:    c.DBName,
		Version: c.DBVersion,
		Stores:  repository.StoreConfigs(),
	}
}

// SplitList splits a comma separated value, dropping blank entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pocket-ledger")
	}
	return "."
}
