package config

import (
	"time"

	"github.com/roasbeef/greenroom/internal/scheduler"
	"github.com/roasbeef/greenroom/internal/stream"
)

// TierConfig mirrors scheduler.TierConfig so this package's zero-value
// struct can be safely decoded by viper before being converted, without
// importing reflection tricks into the scheduler package itself.
type TierConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Sleep    time.Duration `mapstructure:"sleep"`
}

// SchedulerConfig is the scheduler's slice of the on-disk/CLI configuration
// contract (spec.md §6).
type SchedulerConfig struct {
	Workers           int           `mapstructure:"workers"`
	Aggressive        TierConfig    `mapstructure:"aggressive"`
	Moderate          TierConfig    `mapstructure:"moderate"`
	Relaxed           TierConfig    `mapstructure:"relaxed"`
	MaxThroughput     int           `mapstructure:"max_throughput"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// ToScheduler converts to the scheduler package's own Config type.
func (c SchedulerConfig) ToScheduler() scheduler.Config {
	return scheduler.Config{
		Workers: c.Workers,
		Aggressive: scheduler.TierConfig{
			Attempts: c.Aggressive.Attempts, Sleep: c.Aggressive.Sleep,
		},
		Moderate: scheduler.TierConfig{
			Attempts: c.Moderate.Attempts, Sleep: c.Moderate.Sleep,
		},
		Relaxed: scheduler.TierConfig{
			Attempts: c.Relaxed.Attempts, Sleep: c.Relaxed.Sleep,
		},
		MaxThroughput:     c.MaxThroughput,
		HeartbeatInterval: c.HeartbeatInterval,
	}
}

// StreamConfig configures internal/stream's Manager.
type StreamConfig struct {
	MaxConcurrentHandshakes int64 `mapstructure:"max_concurrent_handshakes"`
	DefaultWindow           int   `mapstructure:"default_window"`
}

// LogConfig configures the rotating file writer in internal/build.
type LogConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxFiles      int    `mapstructure:"max_files"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb"`
	Level         string `mapstructure:"level"`
}

// SystemConfig is the full layered configuration contract (spec.md §6):
// the scheduler's worker/backoff tuning, the stream manager's concurrency
// caps, and log destination settings.
type SystemConfig struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`
}

// Default returns greenroom's out-of-the-box configuration, matching
// scheduler.DefaultConfig and stream.DefaultWindow, with a handshake cap
// of 8.
func Default() SystemConfig {
	sched := scheduler.DefaultConfig()
	return SystemConfig{
		Scheduler: SchedulerConfig{
			Workers: sched.Workers,
			Aggressive: TierConfig{
				Attempts: sched.Aggressive.Attempts, Sleep: sched.Aggressive.Sleep,
			},
			Moderate: TierConfig{
				Attempts: sched.Moderate.Attempts, Sleep: sched.Moderate.Sleep,
			},
			Relaxed: TierConfig{
				Attempts: sched.Relaxed.Attempts, Sleep: sched.Relaxed.Sleep,
			},
			MaxThroughput:     sched.MaxThroughput,
			HeartbeatInterval: sched.HeartbeatInterval,
		},
		Stream: StreamConfig{
			MaxConcurrentHandshakes: 8,
			DefaultWindow:           stream.DefaultWindow,
		},
		Log: LogConfig{
			MaxFiles:      10,
			MaxFileSizeMB: 20,
			Level:         "info",
		},
	}
}
