package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader implements spec.md §6's layered configuration contract: defaults,
// then an optional config file, then command-line flags, with the file
// layer kept live via fsnotify so a running system can pick up new
// scheduler tuning without a restart.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a Loader with greenroom's defaults pre-seeded. Call
// BindFlags before Load to let bound command-line flags take precedence
// over both the defaults and any config file, and SetConfigFile/AddPath
// (via the returned *viper.Viper from Raw) to point at an on-disk file.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("greenroom")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.greenroom")

	seedDefaults(v, Default())

	return &Loader{v: v}
}

// Raw exposes the underlying *viper.Viper for callers that need
// viper-specific setup (SetConfigFile, AddConfigPath) beyond what Loader
// wraps directly.
func (l *Loader) Raw() *viper.Viper { return l.v }

// BindFlags binds fs's flags into the viper layer above file and
// defaults, so an explicitly-set flag always wins (spec.md §6's
// "defaults < file < command-line" precedence).
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	return l.v.BindPFlags(fs)
}

// Load reads the config file (if present; a missing file is not an error,
// since defaults and flags may be sufficient on their own) and decodes the
// layered result into a SystemConfig.
func (l *Loader) Load() (SystemConfig, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return SystemConfig{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg SystemConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return SystemConfig{}, fmt.Errorf("config: decoding: %w", err)
	}
	return cfg, nil
}

// Watch arms fsnotify-backed hot-reload: onChange is invoked with the
// freshly decoded SystemConfig every time the config file changes on
// disk. Flags bound via BindFlags still take precedence over the
// reloaded file values. Decode errors during a reload are dropped rather
// than propagated, since there is no synchronous caller left to hand
// them to once watching has started; a malformed reload simply leaves
// the previous configuration in effect.
func (l *Loader) Watch(onChange func(SystemConfig)) {
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg SystemConfig
		if err := l.v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func seedDefaults(v *viper.Viper, cfg SystemConfig) {
	v.SetDefault("scheduler.workers", cfg.Scheduler.Workers)
	v.SetDefault("scheduler.aggressive.attempts", cfg.Scheduler.Aggressive.Attempts)
	v.SetDefault("scheduler.aggressive.sleep", cfg.Scheduler.Aggressive.Sleep)
	v.SetDefault("scheduler.moderate.attempts", cfg.Scheduler.Moderate.Attempts)
	v.SetDefault("scheduler.moderate.sleep", cfg.Scheduler.Moderate.Sleep)
	v.SetDefault("scheduler.relaxed.attempts", cfg.Scheduler.Relaxed.Attempts)
	v.SetDefault("scheduler.relaxed.sleep", cfg.Scheduler.Relaxed.Sleep)
	v.SetDefault("scheduler.max_throughput", cfg.Scheduler.MaxThroughput)
	v.SetDefault("scheduler.heartbeat_interval", cfg.Scheduler.HeartbeatInterval)

	v.SetDefault("stream.max_concurrent_handshakes", cfg.Stream.MaxConcurrentHandshakes)
	v.SetDefault("stream.default_window", cfg.Stream.DefaultWindow)

	v.SetDefault("log.dir", cfg.Log.Dir)
	v.SetDefault("log.max_files", cfg.Log.MaxFiles)
	v.SetDefault("log.max_file_size_mb", cfg.Log.MaxFileSizeMB)
	v.SetDefault("log.level", cfg.Log.Level)
}
