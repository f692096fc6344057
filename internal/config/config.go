package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/logging"
)

// DefaultNotesRef is the notes namespace labels are written to
const DefaultNotesRef = "refs/notes/label-pr"

// Config holds all configuration settings
type Config struct {
	// Repository to label (working tree or bare)
	Repo string `mapstructure:"repo" yaml:"repo"`

	// Notes namespace
	NotesRef string `mapstructure:"notes_ref" yaml:"notes_ref"`

	// Parallel spec resolution
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Compute the plan without writing notes
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	// Specs in refpattern:basebranches:urlprefix form, used when none are
	// given on the command line
	Specs []string `mapstructure:"specs" yaml:"specs"`

	Signature SignatureConfig `mapstructure:"signature" yaml:"signature"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Log       logging.Config  `mapstructure:"log" yaml:"log"`
}

// SignatureConfig is the identity recorded on note commits
type SignatureConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

// CacheConfig controls the persistent commit-parent cache
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // empty = <gitdir>/label-pr/parents.db
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // empty = <gitdir>/label-pr/history.db
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Repo:     ".",
		NotesRef: DefaultNotesRef,
		Workers:  runtime.NumCPU(),
		Signature: SignatureConfig{
			Name:  "PR Labeller",
			Email: "prlabel@localhost",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Log: logging.DefaultConfig(false),
	}
}

// Load loads configuration from path. With no path it looks for
// .label-pr.yaml in repoDir, then in ~/.config/label-pr.
func Load(path, repoDir string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("repo", cfg.Repo)
	v.SetDefault("notes_ref", cfg.NotesRef)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("dry_run", cfg.DryRun)
	v.SetDefault("signature.name", cfg.Signature.Name)
	v.SetDefault("signature.email", cfg.Signature.Email)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSONFormat)
	v.SetDefault("log.max_size", cfg.Log.MaxSize)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)

	v.SetEnvPrefix("LABELPR")
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile(repoDir)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to read config").
				WithContext("path", path)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to unmarshal config")
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// findConfigFile returns the first existing default config file, or ""
// when there is none and defaults apply.
func findConfigFile(repoDir string) string {
	if repoDir == "" {
		repoDir = "."
	}
	candidates := []string{
		filepath.Join(repoDir, ".label-pr.yaml"),
		filepath.Join(repoDir, ".label-pr.yml"),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "label-pr", "config.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if repo := os.Getenv("LABELPR_REPO"); repo != "" {
		cfg.Repo = expandPath(repo)
	}
	if ref := os.Getenv("LABELPR_NOTES_REF"); ref != "" {
		cfg.NotesRef = ref
	}
	if workers := os.Getenv("LABELPR_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Workers = n
		}
	}
	if dry := os.Getenv("LABELPR_DRY_RUN"); dry != "" {
		cfg.DryRun = dry == "true" || dry == "1"
	}
	if path := os.Getenv("LABELPR_CACHE_PATH"); path != "" {
		cfg.Cache.Path = expandPath(path)
	}
	if path := os.Getenv("LABELPR_HISTORY_PATH"); path != "" {
		cfg.History.Path = expandPath(path)
	}
	if level := os.Getenv("LABELPR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("repo", c.Repo)
	v.Set("notes_ref", c.NotesRef)
	v.Set("workers", c.Workers)
	v.Set("dry_run", c.DryRun)
	v.Set("specs", c.Specs)
	v.Set("signature", map[string]any{"name": c.Signature.Name, "email": c.Signature.Email})
	v.Set("cache", map[string]any{"enabled": c.Cache.Enabled, "path": c.Cache.Path})
	v.Set("history", map[string]any{"enabled": c.History.Enabled, "path": c.History.Path})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
