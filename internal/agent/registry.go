package agent

import (
	"sync"
	"time"

	"github.com/atrium-run/atrium/internal/core"
	"github.com/atrium-run/atrium/internal/logging"
)

// VariantConfig describes how to invoke one named engine variant.
type VariantConfig struct {
	Name    string
	Path    string
	Args    []string
	Timeout time.Duration
}

// Registry holds named core.Engine variants, resolved by explicit
// registration rather than reflection over a struct.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]core.Engine
	logger  *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{engines: make(map[string]core.Engine), logger: logger}
}

// RegisterSubprocess wires up the default subprocess variant under cfg.Name.
func (r *Registry) RegisterSubprocess(cfg VariantConfig) {
	runner := NewSubprocess(cfg.Name, cfg.Path, cfg.Args, r.logger)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[cfg.Name] = New(runner, r.logger)
}

// RegisterPTYSubprocess wires up a PTY-backed variant under cfg.Name, for
// agent CLIs that detect a non-TTY stdout and refuse to run, or behave
// differently (extra prompts, disabled color/progress output) without one.
func (r *Registry) RegisterPTYSubprocess(cfg VariantConfig) {
	runner := NewPTYSubprocess(cfg.Name, cfg.Path, cfg.Args, r.logger)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[cfg.Name] = New(runner, r.logger)
}

// Register adds a fully-constructed engine under its own Name().
func (r *Registry) Register(e core.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns the named engine.
func (r *Registry) Get(name string) (core.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, core.ErrNotFound("engine", name)
	}
	return e, nil
}

// Names lists all registered engine names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	return names
}
