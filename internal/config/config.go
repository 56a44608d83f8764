package config

// Config holds the orchestrator's full application configuration, loaded
// from .atrium/config.yaml (or the legacy .atrium.yaml), environment
// variables (ATRIUM_*), and CLI flags, in that increasing precedence order.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Run      RunConfig      `mapstructure:"run"`
	Engine   EngineConfig   `mapstructure:"engine"`
	State    StateConfig    `mapstructure:"state"`
	Git      GitConfig      `mapstructure:"git"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Hooks    HooksConfig    `mapstructure:"hooks"`
	Validate ValidateConfig `mapstructure:"validate"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// RunConfig configures wave execution: scheduling mode, concurrency bound,
// and the per-task agent retry/timeout envelope.
type RunConfig struct {
	SpecsRoot     string `mapstructure:"specs_root"` // root dir the Task Loader walks for P<PP>-* phase dirs
	Mode          string `mapstructure:"mode"`       // "sequential" | "parallel"
	MaxParallel   int    `mapstructure:"max_parallel"`
	Timeout       string `mapstructure:"timeout"`
	MaxRetries    int    `mapstructure:"max_retries"`
	Fast          bool   `mapstructure:"fast"` // skip the validate step
	CommitTrailer string `mapstructure:"commit_trailer"`
}

// EngineConfig selects and configures the agent engine variant.
type EngineConfig struct {
	Name                       string `mapstructure:"name"` // registered Engine.Name(), e.g. "claude", "codex"
	Path                       string `mapstructure:"path"`
	Model                      string `mapstructure:"model"`
	CompletionToken            string `mapstructure:"completion_token"`
	DangerouslySkipPermissions bool   `mapstructure:"dangerously_skip_permissions"`
}

// StateConfig configures session-store persistence.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" (default) | "json"
	Path    string `mapstructure:"path"`
}

// GitConfig configures worktree and branch management.
type GitConfig struct {
	WorktreeDir string `mapstructure:"worktree_dir"`
	BaseBranch  string `mapstructure:"base_branch"`
	AutoClean   bool   `mapstructure:"auto_clean"`
}

// GitHubConfig configures the fire-and-forget `gh pr create` integration.
type GitHubConfig struct {
	Remote string `mapstructure:"remote"`
	Draft  bool   `mapstructure:"draft"`
}

// HooksConfig configures the lifecycle hook shell commands; any field left
// empty means "no hook" for that lifecycle point.
type HooksConfig struct {
	BeforePhase string `mapstructure:"before_phase"`
	BeforeTask  string `mapstructure:"before_task"`
	AfterTask   string `mapstructure:"after_task"`
	OnSuccess   string `mapstructure:"on_success"`
	OnError     string `mapstructure:"on_error"`
}

// ValidateConfig configures the lint/test commands run against a task's
// worktree before it is committed (skipped entirely when Run.Fast is set).
type ValidateConfig struct {
	Lint string `mapstructure:"lint"`
	Test string `mapstructure:"test"`
}
