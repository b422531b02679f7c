package log

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LogCfg is the root logger configuration. Appender instances are configured
// separately (FileCfg, BufferCfg) and attached through the plugin registry or
// AddAppender; LogCfg only carries what the front-end itself needs.
type LogCfg struct {
	// Level is the minimum severity the logger emits. Parsed with
	// ParseLevel; empty means info.
	Level string `mapstructure:"level"`

	// EnabledCallerInfo turns on call-site capture. Resolving callers costs
	// a stack walk per new site, amortized by the caller cache.
	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`

	// CallerSkip adds stack frames to skip on top of the logger's own.
	// Useful when the logger is wrapped by another logging facade.
	CallerSkip int `mapstructure:"callerSkip"`

	// LevelChange maps source locations to level overrides, letting a
	// single call site log below the global threshold.
	LevelChange []LevelChangeEntry `mapstructure:"levelChange"`

	// LevelOverrides maps named sub-logger prefixes to levels, e.g.
	// "net.client": "debug". Dot-separated names inherit the nearest
	// ancestor's override.
	LevelOverrides map[string]string `mapstructure:"levelOverrides"`
}

// Validate checks the configuration and fills defaults in place.
func (cfg *LogCfg) Validate() error {
	if cfg.Level == "" {
		cfg.Level = InfoLevel.String()
	}
	if cfg.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be non-negative, got %d", cfg.CallerSkip)
	}
	return nil
}

// FileCfg configures a FileAppender or RollingFileAppender instance.
//
// Booleans whose default is true are pointers so an absent key and an
// explicit false stay distinguishable through a mapstructure decode.
type FileCfg struct {
	// Name identifies the appender in diagnostics and metrics. Defaults to
	// "file".
	Name string `mapstructure:"name"`

	// Path is the output file. Parent directories are created as needed.
	Path string `mapstructure:"path"`

	// AppendToFile selects appending to an existing file over truncating
	// it at activation. Default true.
	AppendToFile *bool `mapstructure:"appendToFile"`

	// LockingModel names the file-access strategy: exclusive, minimal,
	// interprocess or none. Empty means exclusive.
	LockingModel string `mapstructure:"lockingModel"`

	// RollingStyle selects when the rolling appender rolls: once, size,
	// date or composite. Empty means composite. Ignored by the plain
	// FileAppender.
	RollingStyle string `mapstructure:"rollingStyle"`

	// MaxFileSize is the size rollover threshold, accepting KB/MB/GB
	// suffixes ("10MB"). Empty means 10MB.
	MaxFileSize string `mapstructure:"maxFileSize"`

	// MaxSizeRollBackups bounds the numbered backup window. Zero keeps no
	// backups (the live file is truncated in place); negative keeps every
	// backup.
	MaxSizeRollBackups int `mapstructure:"maxSizeRollBackups"`

	// CountDirection selects backup numbering. Negative (the default)
	// keeps the newest backup at .1 and shifts older files up; zero or
	// positive counts upward so the newest backup has the highest index.
	CountDirection *int `mapstructure:"countDirection"`

	// DatePattern is a Go reference-time layout appended to rolled file
	// names, e.g. ".2006-01-02". Its finest component also decides the
	// rollover period. Empty means ".2006-01-02".
	DatePattern string `mapstructure:"datePattern"`

	// StaticLogFileName keeps the live file at the configured path,
	// renaming on roll. When false the live file itself carries the date
	// stamp. Default true.
	StaticLogFileName *bool `mapstructure:"staticLogFileName"`

	// PreserveLogFileNameExtension inserts rollover suffixes before the
	// file extension, producing app.1.log instead of app.log.1.
	PreserveLogFileNameExtension bool `mapstructure:"preserveLogFileNameExtension"`
}

// Default values applied by FileCfg.Validate.
const (
	_defaultFileName    = "file"
	_defaultMaxFileSize = 10 << 20
	_defaultDatePattern = ".2006-01-02"
)

// Validate checks the configuration and fills defaults in place. The parsed
// size threshold is available through MaxFileSizeBytes afterwards.
func (cfg *FileCfg) Validate() error {
	if cfg.Name == "" {
		cfg.Name = _defaultFileName
	}
	if cfg.Path == "" {
		return fmt.Errorf("file appender %q: path is required", cfg.Name)
	}
	if cfg.AppendToFile == nil {
		v := true
		cfg.AppendToFile = &v
	}
	if cfg.StaticLogFileName == nil {
		v := true
		cfg.StaticLogFileName = &v
	}
	if cfg.CountDirection == nil {
		v := -1
		cfg.CountDirection = &v
	}
	if _, err := NewLockingModel(cfg.LockingModel); err != nil {
		return err
	}
	if _, err := ParseRollingStyle(cfg.RollingStyle); err != nil {
		return err
	}
	if cfg.MaxFileSize != "" {
		if _, err := ParseFileSize(cfg.MaxFileSize); err != nil {
			return fmt.Errorf("file appender %q: %w", cfg.Name, err)
		}
	}
	if cfg.DatePattern == "" {
		cfg.DatePattern = _defaultDatePattern
	}
	return nil
}

// MaxFileSizeBytes returns the parsed size threshold in bytes. Call after
// Validate; an unset threshold yields the 10MB default.
func (cfg *FileCfg) MaxFileSizeBytes() int64 {
	if cfg.MaxFileSize == "" {
		return _defaultMaxFileSize
	}
	n, err := ParseFileSize(cfg.MaxFileSize)
	if err != nil {
		return _defaultMaxFileSize
	}
	return n
}

// BufferCfg configures the buffering layer wrapped around a sink, used by
// the buffering and forwarding appender factories.
type BufferCfg struct {
	// Name identifies the appender. Defaults differ per appender kind.
	Name string `mapstructure:"name"`

	// BufferSize is the event window. Values above one buffer; one or less
	// passes events straight through.
	BufferSize int `mapstructure:"bufferSize"`

	// Lossy switches the buffer to a sliding window that only drains on
	// triggering events.
	Lossy bool `mapstructure:"lossy"`

	// Fix names the volatile-field snapshot taken before buffering:
	// comma-separated flags out of none, timestamp, caller, message,
	// detach, all. Empty means all.
	Fix string `mapstructure:"fix"`

	// Evaluator configures the delivery trigger.
	Evaluator EvaluatorCfg `mapstructure:"evaluator"`

	// LossyEvaluator configures the retention filter for lossy mode.
	LossyEvaluator EvaluatorCfg `mapstructure:"lossyEvaluator"`
}

// EvaluatorCfg names a triggering-event evaluator. Type selects the
// implementation; the remaining fields apply to whichever type uses them.
type EvaluatorCfg struct {
	// Type is "level", "interval" or empty for no evaluator.
	Type string `mapstructure:"type"`

	// Threshold is the level evaluator's minimum severity, parsed with
	// ParseLevel. Empty means error.
	Threshold string `mapstructure:"threshold"`

	// IntervalSec is the interval evaluator's minimum spacing in seconds.
	IntervalSec int `mapstructure:"intervalSec"`
}

// Build constructs the configured evaluator, nil for an empty config.
func (cfg *EvaluatorCfg) Build() (TriggeringEventEvaluator, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "level":
		threshold := ErrorLevel
		if cfg.Threshold != "" {
			threshold = ParseLevel(cfg.Threshold)
		}
		return NewLevelEvaluator(threshold), nil
	case "interval":
		return NewIntervalEvaluator(time.Duration(cfg.IntervalSec) * time.Second), nil
	}
	return nil, fmt.Errorf("log: unknown evaluator type %q", cfg.Type)
}

// ParseFileSize converts a human size string to bytes. A bare number is
// bytes; KB, MB and GB suffixes (case-insensitive) scale by powers of 1024.
func ParseFileSize(s string) (int64, error) {
	t := strings.TrimSpace(s)
	shift := 0
	upper := strings.ToUpper(t)
	switch {
	case strings.HasSuffix(upper, "KB"):
		shift, t = 10, t[:len(t)-2]
	case strings.HasSuffix(upper, "MB"):
		shift, t = 20, t[:len(t)-2]
	case strings.HasSuffix(upper, "GB"):
		shift, t = 30, t[:len(t)-2]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid file size %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("file size %q must be positive", s)
	}
	if shift > 0 && n > (1<<62)>>shift {
		return 0, fmt.Errorf("file size %q overflows", s)
	}
	return n << shift, nil
}

// ParseFixFlags converts a comma-separated flag list ("timestamp,message")
// to a FixFlags mask. Empty input means FixAll, matching the buffering
// appender default.
func ParseFixFlags(s string) (FixFlags, error) {
	if strings.TrimSpace(s) == "" {
		return FixAll, nil
	}
	var flags FixFlags
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "none":
		case "timestamp":
			flags |= FixTimestamp
		case "caller":
			flags |= FixCaller
		case "message":
			flags |= FixMessage
		case "detach":
			flags |= FixDetachOnly
		case "all":
			flags |= FixAll
		default:
			return 0, fmt.Errorf("unknown fix flag %q", part)
		}
	}
	return flags, nil
}
