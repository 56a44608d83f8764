//go:build windows

package agent

import (
	"os/exec"
	"time"
)

// configureProcAttr is a no-op on Windows (Setpgid not supported).
func configureProcAttr(_ *exec.Cmd) {}

// gracefulKill on Windows falls back to Process.Kill(); there is no process
// group to signal.
func (s *Subprocess) gracefulKill(_ time.Duration) error {
	s.mu.Lock()
	cmd := s.activeCmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
