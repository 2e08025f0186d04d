// Package config loads rollc settings from layered JSONC files and flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"
)

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDBPathEmpty        = errors.New("db_path cannot be empty")
	ErrFlagRequiresArg    = errors.New("flag requires an argument")
	ErrInvalidValue       = errors.New("invalid config value")
)

// Levels lists the accepted log_level values.
var Levels = []string{"debug", "info", "warn", "error"}

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DBPath    string `json:"db_path"`
	PageSize  int    `json:"page_size"`
	MaxWindow int    `json:"max_window"`
	LogLevel  string `json:"log_level"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DBPathAbs    string `json:"-"` // Absolute path to the SQLite database

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DBPath:    "rollc.db",
		PageSize:  100,
		MaxWindow: 300,
		LogLevel:  "warn",
	}
}

// FileName is the default project config file name.
const FileName = ".rollc.json"

// fileConfig is one config file as written. Nil fields were not set.
type fileConfig struct {
	DBPath    *string `json:"db_path"`
	PageSize  *int    `json:"page_size"`
	MaxWindow *int    `json:"max_window"`
	LogLevel  *string `json:"log_level"`
}

// globalPath returns $XDG_CONFIG_HOME/rollc/config.json if set, otherwise
// ~/.config/rollc/config.json, or "" when neither can be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "rollc", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "rollc", "config.json")
	}

	return ""
}

// Input holds the inputs for Load. Zero overrides mean "not given".
type Input struct {
	WorkDirOverride   string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath        string            // -c/--config flag value
	DBPathOverride    string            // --db flag value
	PageSizeOverride  int               // --page-size flag value
	MaxWindowOverride int               // --max-window flag value
	LogLevelOverride  string            // --log-level flag value
	Env               map[string]string // environment variables
}

// Load builds the configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/rollc/config.json or $XDG_CONFIG_HOME/rollc/config.json)
// 3. Project config file at default location (.rollc.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
//
// DBPathAbs is resolved against the working directory.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, global)
		}
	}

	project, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, project)

	if input.DBPathOverride != "" {
		cfg.DBPath = input.DBPathOverride
	}

	if input.PageSizeOverride != 0 {
		cfg.PageSize = input.PageSizeOverride
	}

	if input.MaxWindowOverride != 0 {
		cfg.MaxWindow = input.MaxWindowOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	err = Validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DBPath) {
		cfg.DBPathAbs = cfg.DBPath
	} else {
		cfg.DBPathAbs = filepath.Join(workDir, cfg.DBPath)
	}

	return cfg, nil
}

// loadProject loads .rollc.json from workDir, or configPath when given.
// An explicit file must exist; the default one is optional.
func loadProject(workDir, configPath string) (fileConfig, string, error) {
	path := filepath.Join(workDir, FileName)
	mustExist := false

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return fileConfig{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	fc, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return fileConfig{}, "", err
	}

	return fc, path, nil
}

// loadFile reads and parses one config file. A missing optional file is not
// an error and reports loaded == false.
func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist {
			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	fc, err := parse(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	if fc.DBPath != nil && *fc.DBPath == "" {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrDBPathEmpty)
	}

	return fc, true, nil
}

func parse(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig

	err = json.Unmarshal(standardized, &fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return fc, nil
}

func merge(base Config, overlay fileConfig) Config {
	if overlay.DBPath != nil {
		base.DBPath = *overlay.DBPath
	}

	if overlay.PageSize != nil {
		base.PageSize = *overlay.PageSize
	}

	if overlay.MaxWindow != nil {
		base.MaxWindow = *overlay.MaxWindow
	}

	if overlay.LogLevel != nil {
		base.LogLevel = *overlay.LogLevel
	}

	return base
}

// Validate checks the merged settings.
func Validate(cfg Config) error {
	if cfg.DBPath == "" {
		return ErrDBPathEmpty
	}

	if cfg.PageSize < 1 {
		return fmt.Errorf("%w: page_size must be >= 1, got %d", ErrInvalidValue, cfg.PageSize)
	}

	if cfg.MaxWindow < cfg.PageSize {
		return fmt.Errorf("%w: max_window %d must be >= page_size %d", ErrInvalidValue, cfg.MaxWindow, cfg.PageSize)
	}

	if !slices.Contains(Levels, cfg.LogLevel) {
		return fmt.Errorf("%w: log_level %q must be one of %v", ErrInvalidValue, cfg.LogLevel, Levels)
	}

	return nil
}
