package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database Database
	Import   Import
	Log      Log
}

// Database holds sqlite settings.
type Database struct {
	Path           string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// Import holds bulk-import pipeline settings.
type Import struct {
	ProfilesDir   string `mapstructure:"profiles_dir"`
	Workers       int
	ChunkSize     int `mapstructure:"chunk_size"`
	ProgressEvery int `mapstructure:"progress_every"`
	Currency      string
}

// Log holds logging settings.
type Log struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix FINCH_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "finch")
	v.SetDefault("database.path", filepath.Join(dataDir, "finch.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("import.profiles_dir", filepath.Join(os.Getenv("HOME"), ".config", "finch", "profiles"))
	v.SetDefault("import.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("import.chunk_size", 500)
	v.SetDefault("import.progress_every", 250)
	v.SetDefault("import.currency", "EUR")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINCH_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "finch"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Import.Workers < 1 {
		c.Import.Workers = 1
	}
	if c.Import.ChunkSize < 1 {
		c.Import.ChunkSize = 500
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("FINCH_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "finch", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations_path", cfg.Database.MigrationsPath)
	v.Set("import.profiles_dir", cfg.Import.ProfilesDir)
	v.Set("import.workers", cfg.Import.Workers)
	v.Set("import.chunk_size", cfg.Import.ChunkSize)
	v.Set("import.progress_every", cfg.Import.ProgressEvery)
	v.Set("import.currency", cfg.Import.Currency)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
