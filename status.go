package main

import (
	"fmt"
	"sync"
)

// BridgeStatus represents the current state of a bridge run
type BridgeStatus struct {
	State       string `json:"state"`
	Pid         int    `json:"pid"`
	LastButton  string `json:"last_button"`
	LastKey     string `json:"last_key"`
	Presses     int    `json:"presses"`
	Releases    int    `json:"releases"`
	ErrorLines  int    `json:"error_lines"`
	LastError   string `json:"last_error"`
	LogFilePath string `json:"log_file_path"`
}

// StatusManager tracks the bridge status. Readers of both subprocess
// streams update it concurrently.
type StatusManager struct {
	mu         sync.Mutex
	status     BridgeStatus
	logManager *LogManager
}

// NewStatusManager creates a new status manager
func NewStatusManager(logManager *LogManager) *StatusManager {
	return &StatusManager{
		status: BridgeStatus{
			State:       "Initializing",
			LogFilePath: logManager.GetLogFilePath(),
		},
		logManager: logManager,
	}
}

// UpdateState updates the current bridge state
func (sm *StatusManager) UpdateState(state string) {
	sm.mu.Lock()
	sm.status.State = state
	sm.mu.Unlock()
	sm.logManager.LogDebug("Bridge state updated", "state", state)
}

// SetProcess records the pid of the running cec-client
func (sm *StatusManager) SetProcess(pid int) {
	sm.mu.Lock()
	sm.status.Pid = pid
	sm.status.State = "Running"
	sm.mu.Unlock()
	sm.logManager.LogDebug("Bridge process started", "pid", pid)
}

// RecordKey records a key transition sent to the input device
func (sm *StatusManager) RecordKey(result TranslationResult) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.status.LastButton = result.Button
	sm.status.LastKey = result.Target
	if result.Transition == Press {
		sm.status.Presses++
	} else {
		sm.status.Releases++
	}
}

// RecordErrorLine counts a line received on the error stream
func (sm *StatusManager) RecordErrorLine(line string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.status.ErrorLines++
	sm.status.LastError = line
}

// SetLastError sets the last error message
func (sm *StatusManager) SetLastError(message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.status.LastError = message
}

// GetStatus returns a copy of the current status
func (sm *StatusManager) GetStatus() BridgeStatus {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.status
}

// LogSummary logs the counters of the run
func (sm *StatusManager) LogSummary() {
	status := sm.GetStatus()
	sm.logManager.LogInfo("Bridge summary",
		"state", status.State,
		"presses", fmt.Sprintf("%d", status.Presses),
		"releases", fmt.Sprintf("%d", status.Releases),
		"error_lines", fmt.Sprintf("%d", status.ErrorLines),
		"last_button", status.LastButton,
	)
}
