package config

// DefaultConfigYAML contains the default configuration YAML content,
// written out by `atrium init` and used as the global-config bootstrap.
const DefaultConfigYAML = `# Atrium configuration
# Documentation: https://github.com/atrium-run/atrium/blob/main/docs/CONFIGURATION.md
#
# Values not specified here use sensible defaults. See docs for all options.

log:
  level: info
  format: auto

run:
  specs_root: specs
  mode: parallel
  max_parallel: 3
  timeout: 10m
  max_retries: 2
  fast: false
  commit_trailer: ""

engine:
  name: claude
  path: claude
  model: ""
  completion_token: "<promise>COMPLETE</promise>"
  dangerously_skip_permissions: false

state:
  backend: sqlite
  path: .atrium/state/session.db

git:
  worktree_dir: .worktrees
  base_branch: main
  auto_clean: true

github:
  remote: origin
  draft: false

hooks:
  before_phase: ""
  before_task: ""
  after_task: ""
  on_success: ""
  on_error: ""

validate:
  lint: ""
  test: ""
`
