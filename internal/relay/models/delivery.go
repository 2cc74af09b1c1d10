package models

import "time"

// Receipt records what a single delivery produced in a recipient's chat.
type Receipt struct {
	ChatID  int64
	BatchID string
	// MessageIDs are in send order: warning, caption (if any), then files.
	MessageIDs []int
	// Failures holds the archive handles that could not be replayed.
	Failures []FileFailure
}

// FileFailure describes one file that failed to replay.
type FileFailure struct {
	File FileRef
	Err  error
}

// CleanupTask is a one-shot bulk deletion armed after a delivery.
type CleanupTask struct {
	ID         string
	ChatID     int64
	MessageIDs []int
	FireAt     time.Time
}
