package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vanpelt/monorail/internal/fsutil"
)

// ErrNotRunning is returned by Stop when no daemon is alive.
var ErrNotRunning = errors.New("daemon is not running")

// stopTimeout is how long Stop waits for the process to exit.
const stopTimeout = 10 * time.Second

// ReadPID returns the pid recorded in pidFile and whether that process is
// still alive. A stale file is removed.
func ReadPID(pidFile string) (int, bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(pidFile)
		return 0, false
	}
	if !IsProcessRunning(pid) {
		_ = os.Remove(pidFile)
		return pid, false
	}
	return pid, true
}

// WritePID records the current process.
func WritePID(pidFile string) error {
	return fsutil.WriteFileAtomic(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

// RemovePID deletes pidFile if it still names the current process.
func RemovePID(pidFile string) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) == strconv.Itoa(os.Getpid()) {
		_ = os.Remove(pidFile)
	}
}

// IsProcessRunning reports whether pid names a live process.
func IsProcessRunning(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Spawn starts the executable detached from the terminal with args, sending
// its output to logFile. It returns the child pid.
func Spawn(executable string, args []string, logFile string) (int, error) {
	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer out.Close()

	cmd := exec.Command(executable, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	// The child outlives us; only release the handle.
	_ = cmd.Process.Release()
	return pid, nil
}

// Stop sends SIGTERM to the daemon recorded in pidFile and waits for it to exit.
func Stop(pidFile string) (int, error) {
	pid, running := ReadPID(pidFile)
	if !running {
		return 0, ErrNotRunning
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return pid, fmt.Errorf("failed to signal daemon %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !IsProcessRunning(pid) {
			_ = os.Remove(pidFile)
			return pid, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon %d did not exit within %s", pid, stopTimeout)
}
