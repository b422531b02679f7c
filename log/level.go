package log

import "strings"

// Level defines the severity of a log event. Levels are ordered: a logger
// configured at a given level emits events at that level and above.
// The numeric values allow cheap atomic comparison on the hot path.
type Level int8

const (
	// TraceLevel provides extremely detailed diagnostic output, suitable for
	// following request flows and internal state transitions.
	TraceLevel Level = iota + 1

	// DebugLevel contains debugging information useful during development.
	DebugLevel

	// InfoLevel records normal application operation: lifecycle events,
	// configuration changes, significant business events.
	InfoLevel

	// WarnLevel indicates potentially harmful situations that do not prevent
	// operation: deprecated usage, recoverable errors, odd configuration.
	WarnLevel

	// ErrorLevel indicates serious problems that require attention: failed
	// operations, inconsistencies, unrecoverable errors in a subsystem.
	ErrorLevel

	// FatalLevel represents critical errors that force termination.
	FatalLevel
)

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to its Level value, case-insensitively.
// Unrecognized input yields InfoLevel so a misspelled configuration value
// degrades to a safe default instead of silencing the logger.
func ParseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	}
	return InfoLevel
}
