package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atrium-run/atrium/internal/core"
)

// Open chooses a SessionStore backend by name and opens it at path.
// "sqlite" (the default) backs onto modernc.org/sqlite at path (a .db
// file); "json" backs onto a directory of per-session JSON files at path,
// intended for --state-format json debugging rather than day-to-day use.
func OpenBackend(backend, path string) (core.SessionStore, error) {
	switch normalizeBackend(backend) {
	case "json":
		return OpenJSON(path)
	case "sqlite":
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return Open(path)
	default:
		return nil, fmt.Errorf("unsupported session store backend: %q (supported: sqlite, json)", backend)
	}
}

func normalizeBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return "sqlite"
	}
	return backend
}
