package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/akyairhashvil/timekeep/internal/models"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database" yaml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Engine    EngineConfig    `toml:"engine" yaml:"engine"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Defaults  DefaultsConfig  `toml:"defaults" yaml:"defaults"`
}

type DatabaseConfig struct {
	Path string `toml:"path" yaml:"path"`
}

type SchedulerConfig struct {
	Path        string `toml:"path" yaml:"path"`
	MaxAttempts int    `toml:"max_attempts" yaml:"max_attempts"`
	RetryDelay  string `toml:"retry_delay" yaml:"retry_delay"`
}

type EngineConfig struct {
	StaleThreshold string `toml:"stale_threshold" yaml:"stale_threshold"`
}

type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// DefaultsConfig supplies UserSettings for owners that have no stored row.
type DefaultsConfig struct {
	InterruptEnabled             bool     `toml:"interrupt_enabled" yaml:"interrupt_enabled"`
	InterruptIntervalMinutes     float64  `toml:"interrupt_interval_minutes" yaml:"interrupt_interval_minutes"`
	GracePeriodSeconds           int      `toml:"grace_period_seconds" yaml:"grace_period_seconds"`
	PomodoroWorkMinutes          int      `toml:"pomodoro_work_minutes" yaml:"pomodoro_work_minutes"`
	PomodoroBreakMinutes         int      `toml:"pomodoro_break_minutes" yaml:"pomodoro_break_minutes"`
	BudgetWarningThresholdHours  *float64 `toml:"budget_warning_threshold_hours" yaml:"budget_warning_threshold_hours"`
	BudgetWarningThresholdAmount *float64 `toml:"budget_warning_threshold_amount" yaml:"budget_warning_threshold_amount"`
}

func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{
			MaxAttempts: DefaultJobMaxAttempts,
			RetryDelay:  DefaultJobRetryDelay.String(),
		},
		Engine: EngineConfig{
			StaleThreshold: DefaultStaleThreshold.String(),
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
		Defaults: DefaultsConfig{
			InterruptEnabled:         true,
			InterruptIntervalMinutes: DefaultInterruptInterval.Minutes(),
			GracePeriodSeconds:       int(DefaultGracePeriod / time.Second),
			PomodoroWorkMinutes:      DefaultPomodoroWorkMinutes,
			PomodoroBreakMinutes:     DefaultPomodoroBreakMinutes,
		},
	}
}

// Load reads path over the defaults. The file extension picks the decoder;
// a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config toml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks durations and the default settings against their bounds.
func (c Config) Validate() error {
	if _, err := parseDuration("scheduler.retry_delay", c.Scheduler.RetryDelay, DefaultJobRetryDelay); err != nil {
		return err
	}
	stale, err := parseDuration("engine.stale_threshold", c.Engine.StaleThreshold, DefaultStaleThreshold)
	if err != nil {
		return err
	}
	if stale < MinStaleThreshold {
		return &ValidationError{Field: "engine.stale_threshold", Reason: fmt.Sprintf("must be at least %s", MinStaleThreshold)}
	}
	if c.Scheduler.MaxAttempts < 0 {
		return &ValidationError{Field: "scheduler.max_attempts", Reason: "must not be negative"}
	}
	return ValidateSettings(c.DefaultSettings(""))
}

func (c Config) StaleThreshold() time.Duration {
	d, err := parseDuration("engine.stale_threshold", c.Engine.StaleThreshold, DefaultStaleThreshold)
	if err != nil {
		return DefaultStaleThreshold
	}
	return d
}

func (c Config) RetryDelay() time.Duration {
	d, err := parseDuration("scheduler.retry_delay", c.Scheduler.RetryDelay, DefaultJobRetryDelay)
	if err != nil {
		return DefaultJobRetryDelay
	}
	return d
}

func (c Config) MaxAttempts() int {
	if c.Scheduler.MaxAttempts <= 0 {
		return DefaultJobMaxAttempts
	}
	return c.Scheduler.MaxAttempts
}

func (c Config) LogLevel() string {
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		return DefaultLogLevel
	}
	return level
}

// DatabasePath resolves the sqlite file, defaulting into dataDir.
func (c Config) DatabasePath(dataDir string) string {
	if p := strings.TrimSpace(c.Database.Path); p != "" {
		return p
	}
	return filepath.Join(dataDir, DBFileName)
}

// JobsPath resolves the scheduler's bbolt file, defaulting into dataDir.
func (c Config) JobsPath(dataDir string) string {
	if p := strings.TrimSpace(c.Scheduler.Path); p != "" {
		return p
	}
	return filepath.Join(dataDir, JobsFileName)
}

// DefaultSettings returns the configured defaults for ownerID.
func (c Config) DefaultSettings(ownerID string) models.UserSettings {
	d := c.Defaults
	return models.UserSettings{
		OwnerID:                      ownerID,
		InterruptEnabled:             d.InterruptEnabled,
		InterruptInterval:            time.Duration(d.InterruptIntervalMinutes * float64(time.Minute)),
		GracePeriod:                  time.Duration(d.GracePeriodSeconds) * time.Second,
		PomodoroWorkMinutes:          d.PomodoroWorkMinutes,
		PomodoroBreakMinutes:         d.PomodoroBreakMinutes,
		BudgetWarningThresholdHours:  d.BudgetWarningThresholdHours,
		BudgetWarningThresholdAmount: d.BudgetWarningThresholdAmount,
	}
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: err.Error()}
	}
	return d, nil
}
