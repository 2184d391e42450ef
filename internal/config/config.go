// Package config loads the workspace configuration for the harness. The
// result is an explicit value handed to constructors; nothing in the module
// reads configuration from package-level state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tailscale/hujson"

	"github.com/sidebyside/harness/internal/repomap"
)

// ConfigFileName is the project config file discovered by walking up from
// the effective working directory.
const ConfigFileName = ".sbs.json"

// envPrefix namespaces environment overrides (SBS_ARCHIVE_DIR and friends).
const envPrefix = "sbs"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	ArchiveDir           string            `json:"archive_dir"`
	LedgerDir            string            `json:"ledger_dir"`
	PlansDir             string            `json:"plans_dir"`
	ReposDir             string            `json:"repos_dir"`
	Repos                map[string]string `json:"repos,omitempty"`
	Mapping              *MappingConfig    `json:"mapping,omitempty"`
	TestCommand          string            `json:"test_command"`
	TestTimeoutSecs      int               `json:"test_timeout_seconds"`
	ValidatorCommand     string            `json:"validator_command"`
	ValidatorTimeoutSecs int               `json:"validator_timeout_seconds"`
	LogLevel             string            `json:"log_level,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd  string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	ArchiveDirAbs string `json:"-"`
	LedgerDirAbs  string `json:"-"`
	PlansDirAbs   string `json:"-"`
	ReposDirAbs   string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// MappingConfig overrides parts of the built-in repo/page/metric mapping.
// Absent sections keep their defaults.
type MappingConfig struct {
	Repos   []string            `json:"repos,omitempty"`
	Pages   map[string][]string `json:"pages,omitempty"`
	Metrics map[string][]string `json:"metrics,omitempty"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ArchiveDir:           "archive",
		LedgerDir:            "quality",
		PlansDir:             "plans",
		ReposDir:             ".",
		TestCommand:          "pytest --tb=no -q",
		TestTimeoutSecs:      300,
		ValidatorCommand:     "blueprint-validators",
		ValidatorTimeoutSecs: 120,
		LogLevel:             "warn",
	}
}

// TestTimeout returns the test command timeout as a duration.
func (c Config) TestTimeout() time.Duration {
	return time.Duration(c.TestTimeoutSecs) * time.Second
}

// ValidatorTimeout returns the external validator timeout as a duration.
func (c Config) ValidatorTimeout() time.Duration {
	return time.Duration(c.ValidatorTimeoutSecs) * time.Second
}

// BuildMapping materializes the repo/page/metric mapping: the defaults with
// any configured overrides applied section by section.
func (c Config) BuildMapping() *repomap.Mapping {
	mapping := repomap.DefaultMapping()

	if c.Mapping == nil {
		return mapping
	}

	if len(c.Mapping.Repos) > 0 {
		mapping.Repos = c.Mapping.Repos
	}

	if len(c.Mapping.Pages) > 0 {
		mapping.PageDeps = c.Mapping.Pages
	}

	if len(c.Mapping.Metrics) > 0 {
		mapping.MetricDeps = c.Mapping.Metrics
	}

	return mapping
}

// RepoPaths returns the absolute path of every mapped repo: the explicit
// repos entry when present, otherwise <repos_dir>/<name>.
func (c Config) RepoPaths(mapping *repomap.Mapping) map[string]string {
	paths := make(map[string]string, len(mapping.Repos))

	for _, name := range mapping.Repos {
		path, ok := c.Repos[name]
		if !ok {
			paths[name] = filepath.Join(c.ReposDirAbs, name)

			continue
		}

		if !filepath.IsAbs(path) {
			path = filepath.Join(c.EffectiveCwd, path)
		}

		paths[name] = path
	}

	return paths
}

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/sbs/config.json if set, otherwise
// ~/.config/sbs/config.json. Returns empty string if home directory cannot
// be determined.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "sbs", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "sbs", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride    string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath         string            // -c/--config flag value
	ArchiveDirOverride string            // --archive-dir flag value; empty means no override
	Env                map[string]string // environment variables (HOME, XDG_CONFIG_HOME)
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/sbs/config.json or ~/.config/sbs/config.json)
// 3. Project config (.sbs.json, discovered walking up from the working directory)
// 4. Explicit config file via configPath (if non-empty)
// 5. SBS_* environment variables
// 6. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths and the
// resulting mapping is validated.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	err = applyEnvOverrides(&cfg)
	if err != nil {
		return Config{}, err
	}

	if input.ArchiveDirOverride != "" {
		cfg.ArchiveDir = input.ArchiveDirOverride
	}

	validateErr := validateConfig(cfg)
	if validateErr != nil {
		return Config{}, validateErr
	}

	cfg.EffectiveCwd = workDir
	cfg.ArchiveDirAbs = absAgainst(workDir, cfg.ArchiveDir)
	cfg.LedgerDirAbs = absAgainst(workDir, cfg.LedgerDir)
	cfg.PlansDirAbs = absAgainst(workDir, cfg.PlansDir)
	cfg.ReposDirAbs = absAgainst(workDir, cfg.ReposDir)

	return cfg, nil
}

func absAgainst(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// envOverrides mirrors the config fields that may be set through the
// environment.
type envOverrides struct {
	ArchiveDir           string `envconfig:"ARCHIVE_DIR"`
	LedgerDir            string `envconfig:"LEDGER_DIR"`
	PlansDir             string `envconfig:"PLANS_DIR"`
	ReposDir             string `envconfig:"REPOS_DIR"`
	TestCommand          string `envconfig:"TEST_COMMAND"`
	ValidatorCommand     string `envconfig:"VALIDATOR_COMMAND"`
	TestTimeoutSecs      int    `envconfig:"TEST_TIMEOUT_SECONDS"`
	ValidatorTimeoutSecs int    `envconfig:"VALIDATOR_TIMEOUT_SECONDS"`
	LogLevel             string `envconfig:"LOG_LEVEL"`
}

func applyEnvOverrides(cfg *Config) error {
	var env envOverrides

	err := envconfig.Process(envPrefix, &env)
	if err != nil {
		return fmt.Errorf("%w: environment: %w", ErrConfigInvalid, err)
	}

	if env.ArchiveDir != "" {
		cfg.ArchiveDir = env.ArchiveDir
	}

	if env.LedgerDir != "" {
		cfg.LedgerDir = env.LedgerDir
	}

	if env.PlansDir != "" {
		cfg.PlansDir = env.PlansDir
	}

	if env.ReposDir != "" {
		cfg.ReposDir = env.ReposDir
	}

	if env.TestCommand != "" {
		cfg.TestCommand = env.TestCommand
	}

	if env.ValidatorCommand != "" {
		cfg.ValidatorCommand = env.ValidatorCommand
	}

	if env.TestTimeoutSecs > 0 {
		cfg.TestTimeoutSecs = env.TestTimeoutSecs
	}

	if env.ValidatorTimeoutSecs > 0 {
		cfg.ValidatorTimeoutSecs = env.ValidatorTimeoutSecs
	}

	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}

	return nil
}

// loadGlobalConfig loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobalConfig(env map[string]string) (Config, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return Config{}, "", nil
	}

	globalCfg, explicitEmpty, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	err = rejectExplicitEmpty(globalCfgPath, explicitEmpty)
	if err != nil {
		return Config{}, "", err
	}

	return globalCfg, globalCfgPath, nil
}

// loadProjectConfig loads the discovered project config (.sbs.json) or an
// explicit config file. Returns the config, the path if loaded, and any
// error.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		// Explicit config file - must exist
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		found, ok := findProjectConfig(workDir)
		if !ok {
			return Config{}, "", nil
		}

		cfgFile = found
		mustExist = false
	}

	fileCfg, explicitEmpty, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	err = rejectExplicitEmpty(cfgFile, explicitEmpty)
	if err != nil {
		return Config{}, "", err
	}

	return fileCfg, cfgFile, nil
}

// findProjectConfig walks from workDir toward the filesystem root and
// returns the first .sbs.json it finds.
func findProjectConfig(workDir string) (string, bool) {
	dir := workDir

	for {
		candidate := filepath.Join(dir, ConfigFileName)

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}

		dir = parent
	}
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return zero config. Returns the config, a map of explicitly empty fields,
// whether the file was loaded, and any error.
func loadConfigFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parseConfig(data []byte) (Config, map[string]bool, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	// Check which directory fields were explicitly set to empty; merging
	// would otherwise silently keep the default.
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	for _, key := range []string{"archive_dir", "ledger_dir", "plans_dir"} {
		val, exists := raw[key]
		if !exists {
			continue
		}

		str, ok := val.(string)
		if ok && str == "" {
			explicitEmpty[key] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func rejectExplicitEmpty(path string, explicitEmpty map[string]bool) error {
	for _, key := range []string{"archive_dir", "ledger_dir", "plans_dir"} {
		if explicitEmpty[key] {
			return fmt.Errorf("%w %s: %s: %w", ErrConfigInvalid, path, key, ErrDirEmpty)
		}
	}

	return nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.ArchiveDir != "" {
		base.ArchiveDir = overlay.ArchiveDir
	}

	if overlay.LedgerDir != "" {
		base.LedgerDir = overlay.LedgerDir
	}

	if overlay.PlansDir != "" {
		base.PlansDir = overlay.PlansDir
	}

	if overlay.ReposDir != "" {
		base.ReposDir = overlay.ReposDir
	}

	if len(overlay.Repos) > 0 {
		base.Repos = overlay.Repos
	}

	if overlay.Mapping != nil {
		base.Mapping = overlay.Mapping
	}

	if overlay.TestCommand != "" {
		base.TestCommand = overlay.TestCommand
	}

	if overlay.TestTimeoutSecs > 0 {
		base.TestTimeoutSecs = overlay.TestTimeoutSecs
	}

	if overlay.ValidatorCommand != "" {
		base.ValidatorCommand = overlay.ValidatorCommand
	}

	if overlay.ValidatorTimeoutSecs > 0 {
		base.ValidatorTimeoutSecs = overlay.ValidatorTimeoutSecs
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.ArchiveDir == "" || cfg.LedgerDir == "" || cfg.PlansDir == "" {
		return ErrDirEmpty
	}

	err := cfg.BuildMapping().Validate()
	if err != nil {
		return fmt.Errorf("%w: mapping: %w", ErrConfigInvalid, err)
	}

	return nil
}
