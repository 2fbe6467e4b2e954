package ui

import (
	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// Message types for TUI updates

// SnapshotMsg is sent when the wallet store publishes a new snapshot.
type SnapshotMsg struct {
	Snapshot domain.ConnectionSnapshot
}

// ActionMsg reports the outcome of a user-triggered wallet action.
type ActionMsg struct {
	Action string // "connect", "disconnect", "switch"
	Err    error
}

// ErrorMsg is sent when an error occurs outside a user action.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}
