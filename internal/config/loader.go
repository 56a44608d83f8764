package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v              *viper.Viper
	configFile     string
	envPrefix      string
	projectDir     string // Resolved project root directory (set by Load)
	projectDirHint string // Optional: override project root directory for path resolution
	resolvePaths   bool   // Whether to resolve relative paths to absolute on Load
	mu             sync.Mutex
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:            viper.New(),
		envPrefix:    "ATRIUM",
		resolvePaths: true,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:            v,
		envPrefix:    "ATRIUM",
		resolvePaths: true,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithProjectDir provides a project root directory hint for resolving
// relative paths, for callers whose config file isn't under the project
// root (e.g. a global config shared by many projects).
func (l *Loader) WithProjectDir(path string) *Loader {
	l.projectDirHint = path
	return l
}

// WithResolvePaths controls whether relative paths are resolved to
// absolute paths on Load().
func (l *Loader) WithResolvePaths(resolve bool) *Loader {
	l.resolvePaths = resolve
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (ATRIUM_*)
// 3. Project config (.atrium/config.yaml)
// 4. Legacy project config (.atrium.yaml - for backwards compatibility)
// 5. User config (~/.config/atrium/config.yaml)
// 6. Defaults
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		newConfigPath := filepath.Join(".atrium", "config.yaml")
		if _, err := os.Stat(newConfigPath); err == nil {
			l.v.SetConfigFile(newConfigPath)
		} else {
			l.v.SetConfigName(".atrium")
			l.v.SetConfigType("yaml")
			l.v.AddConfigPath(".")
			if home, err := os.UserHomeDir(); err == nil {
				l.v.AddConfigPath(filepath.Join(home, ".config", "atrium"))
			}
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	projectDir := ""
	if configPath := l.v.ConfigFileUsed(); configPath != "" {
		if absConfigPath, err := filepath.Abs(configPath); err == nil {
			configDir := filepath.Dir(absConfigPath)
			if filepath.Base(configDir) == ".atrium" {
				projectDir = filepath.Dir(configDir)
			} else {
				projectDir = configDir
			}
		}
	}
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	if strings.TrimSpace(l.projectDirHint) != "" {
		projectDir = l.projectDirHint
	}
	l.projectDir = projectDir
	if l.resolvePaths {
		l.resolveAbsolutePaths(&cfg, projectDir)
	}

	return &cfg, nil
}

// ProjectDir returns the resolved project root directory. Available after
// Load() has been called.
func (l *Loader) ProjectDir() string {
	return l.projectDir
}

// resolveAbsolutePaths converts relative paths in cfg to absolute paths
// rooted at baseDir, so atrium behaves the same regardless of the working
// directory it's invoked from.
func (l *Loader) resolveAbsolutePaths(cfg *Config, baseDir string) {
	if cfg.State.Path != "" {
		cfg.State.Path = resolvePathRelativeTo(cfg.State.Path, baseDir)
	}
	if cfg.Git.WorktreeDir != "" {
		cfg.Git.WorktreeDir = resolvePathRelativeTo(cfg.Git.WorktreeDir, baseDir)
	}
	if cfg.Run.SpecsRoot != "" {
		cfg.Run.SpecsRoot = resolvePathRelativeTo(cfg.Run.SpecsRoot, baseDir)
	}
}

// resolvePathRelativeTo converts a relative path to an absolute path using
// baseDir as the base. Already-absolute paths are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 0 && (path[0] == '/' || path[0] == '\\') {
		return path
	}
	return filepath.Join(baseDir, path)
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("run.specs_root", "specs")
	l.v.SetDefault("run.mode", "parallel")
	l.v.SetDefault("run.max_parallel", 3)
	l.v.SetDefault("run.timeout", "10m")
	l.v.SetDefault("run.max_retries", 2)
	l.v.SetDefault("run.fast", false)
	l.v.SetDefault("run.commit_trailer", "")

	l.v.SetDefault("engine.name", "claude")
	l.v.SetDefault("engine.path", "claude")
	l.v.SetDefault("engine.model", "")
	l.v.SetDefault("engine.completion_token", "<promise>COMPLETE</promise>")
	l.v.SetDefault("engine.dangerously_skip_permissions", false)

	l.v.SetDefault("state.backend", "sqlite")
	l.v.SetDefault("state.path", ".atrium/state/session.db")

	l.v.SetDefault("git.worktree_dir", ".worktrees")
	l.v.SetDefault("git.base_branch", "main")
	l.v.SetDefault("git.auto_clean", true)

	l.v.SetDefault("github.remote", "origin")
	l.v.SetDefault("github.draft", false)

	l.v.SetDefault("hooks.before_phase", "")
	l.v.SetDefault("hooks.before_task", "")
	l.v.SetDefault("hooks.after_task", "")
	l.v.SetDefault("hooks.on_success", "")
	l.v.SetDefault("hooks.on_error", "")

	l.v.SetDefault("validate.lint", "")
	l.v.SetDefault("validate.test", "")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	if l.configFile != "" {
		return l.configFile
	}
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
