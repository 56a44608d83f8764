package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateRun(&cfg.Run)
	v.validateEngine(&cfg.Engine)
	v.validateState(&cfg.State)
	v.validateGit(&cfg.Git)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	validFormats := map[string]bool{"auto": true, "text": true, "json": true}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateRun(cfg *RunConfig) {
	if cfg.Mode != "sequential" && cfg.Mode != "parallel" {
		v.addError("run.mode", cfg.Mode, "must be one of sequential, parallel")
	}
	if cfg.MaxParallel < 1 {
		v.addError("run.max_parallel", cfg.MaxParallel, "must be at least 1")
	}
	if cfg.MaxRetries < 0 {
		v.addError("run.max_retries", cfg.MaxRetries, "must not be negative")
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			v.addError("run.timeout", cfg.Timeout, "must be a valid duration (e.g. 10m, 1h)")
		}
	}
}

func (v *Validator) validateEngine(cfg *EngineConfig) {
	if cfg.Name == "" {
		v.addError("engine.name", cfg.Name, "is required")
	}
	if cfg.CompletionToken == "" {
		v.addError("engine.completion_token", cfg.CompletionToken, "is required")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	if cfg.Backend != "sqlite" && cfg.Backend != "json" {
		v.addError("state.backend", cfg.Backend, "must be one of sqlite, json")
	}
	if cfg.Path == "" {
		v.addError("state.path", cfg.Path, "is required")
	}
}

func (v *Validator) validateGit(cfg *GitConfig) {
	if cfg.WorktreeDir == "" {
		v.addError("git.worktree_dir", cfg.WorktreeDir, "is required")
	}
	if cfg.BaseBranch == "" {
		v.addError("git.base_branch", cfg.BaseBranch, "is required")
	}
}

// ValidateConfig is a convenience function that creates a validator and
// validates cfg.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

// Validate is the package-level entry point used by callers that only need
// a pass/fail result.
func Validate(cfg *Config) error {
	return ValidateConfig(cfg)
}
