package config

import "time"

// Interrupt bounds.
const (
	DefaultInterruptInterval = 30 * time.Minute
	MinInterruptInterval     = 10 * time.Second
	MaxInterruptInterval     = 24 * time.Hour

	DefaultGracePeriod = 60 * time.Second
	MinGracePeriod     = 5 * time.Second
	MaxGracePeriod     = 300 * time.Second
)

// Pomodoro bounds, in minutes.
const (
	DefaultPomodoroWorkMinutes  = 25
	DefaultPomodoroBreakMinutes = 5
	MinPomodoroWorkMinutes      = 1
	MaxPomodoroWorkMinutes      = 180
	MinPomodoroBreakMinutes     = 1
	MaxPomodoroBreakMinutes     = 60
)

// Liveness.
const (
	// DefaultStaleThreshold is how long a timer may go without a heartbeat
	// before a reconnecting client finalizes it as an overrun.
	DefaultStaleThreshold = 15 * time.Minute
	MinStaleThreshold     = time.Minute
)

// Scheduler delivery.
const (
	DefaultJobMaxAttempts = 5
	DefaultJobRetryDelay  = 5 * time.Second
)

// Application settings.
const (
	AppName         = "timekeep"
	DBFileName      = "timekeep.db"
	JobsFileName    = "jobs.db"
	ConfigEnvVar    = "TIMEKEEP_CONFIG"
	DefaultLogLevel = "info"
)
