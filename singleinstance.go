package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned when another bridge holds the lock
var ErrAlreadyRunning = errors.New("another cec-input instance is already running")

// SingleInstance keeps two bridges from sharing one CEC adapter and input device
type SingleInstance struct {
	lockFile *os.File
	lockPath string
}

// NewSingleInstance creates a lock in dir (the temp directory when empty)
func NewSingleInstance(dir string, appName string) *SingleInstance {
	if dir == "" {
		dir = os.TempDir()
	}
	return &SingleInstance{
		lockPath: filepath.Join(dir, fmt.Sprintf("%s.lock", appName)),
	}
}

// Lock acquires the lock, replacing it when the recorded process is gone
func (si *SingleInstance) Lock() error {
	file, err := os.OpenFile(si.lockPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		running, pid, readErr := si.RunningInstance()
		if readErr == nil && running {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		// Stale lock
		if err := os.Remove(si.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
		file, err = os.OpenFile(si.lockPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(si.lockPath)
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	si.lockFile = file
	return nil
}

// RunningInstance reports whether the process recorded in the lock file is alive
func (si *SingleInstance) RunningInstance() (bool, int, error) {
	data, err := os.ReadFile(si.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return false, 0, fmt.Errorf("invalid PID in lock file: %s", pidStr)
	}

	return isProcessRunning(pid), pid, nil
}

// Release releases the lock when the bridge is shutting down
func (si *SingleInstance) Release() {
	if si.lockFile == nil {
		return
	}
	si.lockFile.Close()
	si.lockFile = nil
	os.Remove(si.lockPath)
}

// isProcessRunning sends signal 0 to test whether pid exists
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
