// Package config loads savectl configuration from layered JSONC files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/savekit/pkg/save/codec"
)

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrRootEmpty          = errors.New("root cannot be empty")
	ErrKeyEmpty           = errors.New("key cannot be empty")
	ErrFormatInvalid      = errors.New("format must be json or msgpack")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Root          string   `json:"root"`
	Key           string   `json:"key,omitempty"`
	RetiredKeys   []string `json:"retired_keys,omitempty"`
	Prefix        string   `json:"prefix,omitempty"`
	Format        string   `json:"format,omitempty"`
	SchemaVersion uint32   `json:"schema_version,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string `json:"-"`
	RootAbs      string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files and overrides were applied.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
	KeyEnv  bool   // Key came from $SAVECTL_KEY
}

// FileName is the default project config file name.
const FileName = ".savectl.json"

// KeyEnvVar overrides the key from config files.
const KeyEnvVar = "SAVECTL_KEY"

// Default returns the default configuration for env.
func Default(env map[string]string) Config {
	return Config{
		Root:   defaultRoot(env),
		Prefix: "SaveFile_",
		Format: codec.FormatJSON.String(),
	}
}

// defaultRoot returns $XDG_DATA_HOME/savekit, ~/.local/share/savekit, or a
// relative "saves" directory when neither is known.
func defaultRoot(env map[string]string) string {
	if xdg := env["XDG_DATA_HOME"]; xdg != "" {
		return filepath.Join(xdg, "savekit")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".local", "share", "savekit")
	}

	return "saves"
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/savectl/config.json if set, otherwise ~/.config/savectl/config.json.
// Returns empty string if home directory cannot be determined.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "savectl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "savectl", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	RootOverride    string            // --root flag value; empty means no override
	KeyOverride     string            // --key flag value; empty means no override
	PrefixOverride  string            // --prefix flag value; empty means no override
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/savectl/config.json or $XDG_CONFIG_HOME/savectl/config.json)
// 3. Project config file at default location (.savectl.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty, replaces 3)
// 5. $SAVECTL_KEY
// 6. CLI overrides.
//
// The key may be empty in the result: only commands that decode saves need it.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default(input.Env)

	globalCfg, path, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = path
	cfg = merge(cfg, globalCfg)

	projectCfg, path, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = path
	cfg = merge(cfg, projectCfg)

	if key := input.Env[KeyEnvVar]; key != "" {
		cfg.Key = key
		cfg.Sources.KeyEnv = true
	}

	if input.RootOverride != "" {
		cfg.Root = input.RootOverride
	}

	if input.KeyOverride != "" {
		cfg.Key = input.KeyOverride
	}

	if input.PrefixOverride != "" {
		cfg.Prefix = input.PrefixOverride
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.Root) {
		cfg.RootAbs = cfg.Root
	} else {
		cfg.RootAbs = filepath.Join(workDir, cfg.Root)
	}

	return cfg, nil
}

// Codec returns the codec described by the format and schema_version fields.
func (c Config) Codec() (*codec.Codec, error) {
	format, err := codec.ParseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrFormatInvalid, c.Format)
	}

	return codec.New(codec.Options{Version: c.SchemaVersion, Format: format})
}

// RequireKey returns [ErrKeyEmpty] if no key is configured.
func (c Config) RequireKey() error {
	if c.Key == "" {
		return fmt.Errorf("%w (set \"key\" in %s, $%s, or --key)", ErrKeyEmpty, FileName, KeyEnvVar)
	}

	return nil
}

// loadGlobal loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads the project config file (.savectl.json) or an explicit config file.
// Returns the config, the path if loaded, and any error.
func loadProject(workDir, configPath string) (Config, string, error) {
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
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads a config file. If mustExist is false, missing files return zero config.
// Returns the config, whether the file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Fields set to "" explicitly are mistakes, not requests for the default.
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	for field, sentinel := range map[string]error{"root": ErrRootEmpty, "key": ErrKeyEmpty} {
		if val, ok := raw[field].(string); ok && strings.TrimSpace(val) == "" {
			return Config{}, sentinel
		}
	}

	for i, k := range cfg.RetiredKeys {
		if k == "" {
			return Config{}, fmt.Errorf("retired_keys[%d]: %w", i, ErrKeyEmpty)
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Root != "" {
		base.Root = overlay.Root
	}

	if overlay.Key != "" {
		base.Key = overlay.Key
	}

	if overlay.RetiredKeys != nil {
		base.RetiredKeys = overlay.RetiredKeys
	}

	if overlay.Prefix != "" {
		base.Prefix = overlay.Prefix
	}

	if overlay.Format != "" {
		base.Format = overlay.Format
	}

	if overlay.SchemaVersion != 0 {
		base.SchemaVersion = overlay.SchemaVersion
	}

	return base
}

func validate(cfg Config) error {
	if cfg.Root == "" {
		return ErrRootEmpty
	}

	_, err := codec.ParseFormat(cfg.Format)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrFormatInvalid, cfg.Format)
	}

	return nil
}
