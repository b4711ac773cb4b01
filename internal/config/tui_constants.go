package config

import "time"

// Watch view constants.
const (
	// HeartbeatEvery is how often the watch view reports liveness.
	HeartbeatEvery = 30 * time.Second

	// ProgressWidth is the default width of the phase and grace bars.
	ProgressWidth = 30

	// MinViewWidth triggers compact rendering below this width.
	MinViewWidth = 40

	// TruncationSuffix appended to truncated strings.
	TruncationSuffix = "..."
)
