//go:build !windows

package resilience

import "syscall"

// isProcessAlive probes pid with signal 0. EPERM means it exists under
// another user.
func isProcessAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
