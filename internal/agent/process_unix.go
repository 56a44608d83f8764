//go:build !windows

package agent

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// configureProcAttr sets up process group isolation so the spawned agent
// and any children it forks can be signaled together.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// gracefulKill sends SIGTERM to the process group, waits up to grace, then
// escalates to SIGKILL. It does not call cmd.Wait(); the caller already has
// a goroutine blocked in Wait().
func (s *Subprocess) gracefulKill(grace time.Duration) error {
	s.mu.Lock()
	cmd := s.activeCmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return fmt.Errorf("getpgid(%d): %w", pid, err)
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("sigterm pgid %d: %w", pgid, err)
	}

	deadline := time.After(grace)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
			return nil
		case <-ticker.C:
			if err := syscall.Kill(pid, 0); err != nil {
				return nil
			}
		}
	}
}
