package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/atrium-run/atrium/internal/agent"
	"github.com/atrium-run/atrium/internal/config"
	"github.com/atrium-run/atrium/internal/control"
	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/events"
	"github.com/atrium-run/atrium/internal/gitops"
	"github.com/atrium-run/atrium/internal/hooks"
	"github.com/atrium-run/atrium/internal/logging"
	"github.com/atrium-run/atrium/internal/orchestrate"
	"github.com/atrium-run/atrium/internal/store"
	"github.com/atrium-run/atrium/internal/task"
)

// deps bundles everything a command needs to drive the orchestrator,
// assembled once per invocation from the resolved config.
type deps struct {
	cfg      *config.Config
	logger   *logging.Logger
	loader   *task.Loader
	store    core.SessionStore
	executor *orchestrate.Executor
	control  *control.ControlPlane
	events   *events.EventBus
}

func loadConfig() (*config.Config, error) {
	l := config.NewLoader()
	if cfgFile != "" {
		l.WithConfigFile(cfgFile)
	}
	if projectDir != "" {
		l.WithProjectDir(projectDir)
	}
	if logLevel != "" {
		l.Set("log.level", logLevel)
	}
	if logFormat != "" {
		l.Set("log.format", logFormat)
	}
	cfg, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	v := config.NewValidator()
	if err := v.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	out := os.Stdout
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
}

// buildDeps assembles the full port set (store, worktree manager, agent
// registry, hook runner, PR creator) into an Executor for project, rooted
// at the current working directory.
func buildDeps(cfg *config.Config) (*deps, error) {
	logger := newLogger(cfg)

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	project := projectName(wd)

	sessStore, err := store.OpenBackend(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	worktrees, err := gitops.New(wd, cfg.Git.WorktreeDir, project, logger)
	if err != nil {
		_ = sessStore.Close()
		return nil, fmt.Errorf("initializing worktree manager: %w", err)
	}

	registry := agent.NewRegistry(logger)
	registry.RegisterSubprocess(agent.VariantConfig{
		Name:    cfg.Engine.Name,
		Path:    cfg.Engine.Path,
		Args:    nil,
		Timeout: parseDurationOr(cfg.Run.Timeout, 10*time.Minute),
	})
	// A PTY-backed variant of the same binary, for agent CLIs that refuse
	// to run (or behave worse) without a TTY on stdout. Selected by setting
	// engine.name to "<name>-pty" in config; not the default.
	registry.RegisterPTYSubprocess(agent.VariantConfig{
		Name:    cfg.Engine.Name + "-pty",
		Path:    cfg.Engine.Path,
		Args:    nil,
		Timeout: parseDurationOr(cfg.Run.Timeout, 10*time.Minute),
	})
	engine, err := registry.Get(cfg.Engine.Name)
	if err != nil {
		_ = sessStore.Close()
		return nil, fmt.Errorf("resolving engine %q: %w", cfg.Engine.Name, err)
	}

	prCreator := gitops.NewGHPullRequestCreator(wd)
	hookRunner := hooks.NewShellRunner()
	cp := control.New()
	bus := events.New(100)
	cp.SetEvents(bus, "", project)

	execOpts := core.DefaultExecuteOptions()
	execOpts.Timeout = parseDurationOr(cfg.Run.Timeout, execOpts.Timeout)
	execOpts.MaxRetries = cfg.Run.MaxRetries
	execOpts.Model = cfg.Engine.Model
	execOpts.DangerouslySkipPermissions = cfg.Engine.DangerouslySkipPermissions
	if cfg.Engine.CompletionToken != "" {
		execOpts.CompletionToken = cfg.Engine.CompletionToken
	}

	executor := orchestrate.New(sessStore, worktrees, engine, hookRunner, prCreator, logger, orchestrate.Options{
		Project:       project,
		BaseBranch:    cfg.Git.BaseBranch,
		MaxParallel:   cfg.Run.MaxParallel,
		Fast:          cfg.Run.Fast,
		Validate:      orchestrate.ValidateCommands{Lint: cfg.Validate.Lint, Test: cfg.Validate.Test, Timeout: parseDurationOr(cfg.Run.Timeout, 10*time.Minute)},
		CommitTrailer: cfg.Run.CommitTrailer,
		Hooks:         hooks.Config{BeforePhase: cfg.Hooks.BeforePhase, BeforeTask: cfg.Hooks.BeforeTask, AfterTask: cfg.Hooks.AfterTask, OnSuccess: cfg.Hooks.OnSuccess, OnError: cfg.Hooks.OnError},
		ExecuteOpts:   execOpts,
		Control:       cp,
		Events:        bus,
	})

	loader := task.New(cfg.Run.SpecsRoot, logger)

	return &deps{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		store:    sessStore,
		executor: executor,
		control:  cp,
		events:   bus,
	}, nil
}

func (d *deps) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.events != nil {
		d.events.Close()
	}
}

func projectName(wd string) string {
	base := wd
	for i := len(wd) - 1; i >= 0; i-- {
		if wd[i] == '/' {
			base = wd[i+1:]
			break
		}
	}
	if base == "" {
		return "atrium"
	}
	return base
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// newTaskLoader builds a task.Loader without the rest of buildDeps' port
// set, for read-only commands (plan, status) that never touch the store,
// worktrees, or agent engine.
func newTaskLoader(cfg *config.Config, logger *logging.Logger) *task.Loader {
	return task.New(cfg.Run.SpecsRoot, logger)
}

func runMode(mode string) orchestrate.RunMode {
	if mode == "sequential" {
		return orchestrate.Sequential
	}
	return orchestrate.Parallel
}
