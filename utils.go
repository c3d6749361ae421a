package main

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
)

// NotificationManager handles desktop notifications
type NotificationManager struct {
	enabled    bool
	showErrors bool
	log        *LogManager
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(config *Config, log *LogManager) *NotificationManager {
	return &NotificationManager{
		enabled:    config.Notifications.Enabled,
		showErrors: config.Notifications.ShowErrors,
		log:        log,
	}
}

// NotifyError sends an error notification
func (nm *NotificationManager) NotifyError(message string) {
	if nm == nil || !nm.enabled || !nm.showErrors {
		return
	}

	if err := beeep.Alert("CEC Input Error", message, ""); err != nil {
		nm.log.LogWarning("Failed to send error notification", "error", err)
	}
}

// NotifyInfo sends an informational notification
func (nm *NotificationManager) NotifyInfo(title, message string) {
	if nm == nil || !nm.enabled {
		return
	}

	if err := beeep.Notify(title, message, ""); err != nil {
		nm.log.LogWarning("Failed to send info notification", "error", err)
	}
}

// RetryManager handles retry logic with linear backoff
type RetryManager struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

// NewRetryManager creates a new retry manager
func NewRetryManager(maxAttempts int, baseDelay time.Duration) *RetryManager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryManager{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       time.Sleep,
	}
}

// Retry executes the given function with retry logic
func (rm *RetryManager) Retry(operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= rm.maxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < rm.maxAttempts {
			rm.sleep(time.Duration(attempt) * rm.baseDelay)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", rm.maxAttempts, lastErr)
}
