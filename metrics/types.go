// Package metrics defines the types and constants used for metric collection and reporting.
package metrics

// Policy defines the aggregation policy for metric values.
// It determines how multiple values for the same metric should be combined over a time window.
type Policy int

const (
	Policy_None      Policy = iota // Policy_None indicates no specific aggregation policy. The reporting system may use a default.
	Policy_Set                     // Policy_Set represents an instantaneous value; the last reported value wins.
	Policy_Sum                     // Policy_Sum represents a cumulative value, summing all reported values.
	Policy_Avg                     // Policy_Avg represents the average of all reported values.
	Policy_Max                     // Policy_Max represents the maximum value among all reported values.
	Policy_Min                     // Policy_Min represents the minimum value among all reported values.
	Policy_Stopwatch               // Policy_Stopwatch is for timing metrics, measuring event durations.
)

// Value represents a metric value as a float64.
type Value float64

// Dimension represents metric dimensions as key-value pairs.
// Dimensions provide contextual information for metrics, such as appender name or rollover kind.
type Dimension map[string]string

const (
	// KB represents a kilobyte (1024 bytes).
	KB = 1024.0
	// MB represents a megabyte (1024 * 1024 bytes).
	MB = 1024.0 * 1024.0
)

// compdim: Metric Comparison Rules
// The `compdim` comment tag defines rules for comparing metric data between different dimensions for automated analysis and alerting.
//
// Format:
//   compdim:dimension1:rule1[&|]rule2,dimension2:rule1[&|]rule2
//
// Pre-defined Rules:
//
//   - Wave: Fluctuation Rule
//     - Config: `Wave15%` (percentage is dynamic)
//     - Description: Compares the fluctuation of data between two dimensions.
//     - Calculation: `actual_fluctuation = difference / smaller_value`
//     - Trigger: Activates if `actual_fluctuation >= configured_fluctuation`.
//
//   - Base: Threshold Rule
//     - Config: `Base15` (threshold is dynamic)
//     - Description: Activates if the data from either of the two dimensions is greater than or equal to the threshold.

// Group related constants, prefixed with Group.
const (
	// GroupTyto is the group name for tyto-related metrics.
	GroupTyto = "tyto"
)

// Metric related constants
const (
	// NamePoolCreateTotal: Total number of objects created by a pool because the pool was empty.
	// group:tyto dimension:poolname owner:jugglewang compdim:poolname:Wave20%
	NamePoolCreateTotal = "pool_create_total"

	// NameAppenderAppendTotal: Total number of events accepted by an appender.
	// group:tyto dimension:appender dashboard:Events accepted per appender. alarm:Downward fluctuation >50%. owner:jugglewang compdim:appender:Wave20%
	NameAppenderAppendTotal = "appender_append_total"

	// NameAppenderDropTotal: Total number of events discarded without reaching a sink.
	// group:tyto dimension:appender,reason dashboard:Events dropped per appender, split by reason (lossy overflow, closed, disabled, queue full). alarm:Alert on any sustained growth. owner:jugglewang compdim:appender:Wave20%
	NameAppenderDropTotal = "appender_drop_total"

	// NameAppenderFlushTotal: Total number of buffer deliveries performed by buffering appenders.
	// group:tyto dimension:appender dashboard:Buffer deliveries per appender. owner:jugglewang compdim:appender:Wave20%
	NameAppenderFlushTotal = "appender_flush_total"

	// NameAppenderFlushSizeAvg: Average batch size of buffer deliveries.
	// group:tyto dimension:appender dashboard:Average events per delivered batch. owner:jugglewang compdim:appender:Wave20%&Base1
	NameAppenderFlushSizeAvg = "appender_flush_size_avg"

	// NameAppenderWriteErrorTotal: Total number of sink write failures reported by appenders.
	// group:tyto dimension:appender dashboard:Write failures per appender. alarm:Alert on any value. owner:jugglewang compdim:appender:Base1
	NameAppenderWriteErrorTotal = "appender_write_error_total"

	// NameAppenderOpenRetryTotal: Total number of retried output file opens.
	// group:tyto dimension:appender dashboard:Retried file opens. alarm:Upward fluctuation >100%. owner:jugglewang compdim:appender:Wave50%
	NameAppenderOpenRetryTotal = "appender_open_retry_total"

	// NameAppenderRolloverTotal: Total number of completed file rollovers.
	// group:tyto dimension:appender,kind dashboard:Rollovers per appender, split by size/date. owner:jugglewang compdim:kind:Wave50%
	NameAppenderRolloverTotal = "appender_rollover_total"

	// NameAppenderRolloverDurationMS: Time spent performing a rollover in milliseconds.
	// group:tyto dimension:appender dashboard:Rollover duration. alarm:Exceeds 1000ms. owner:jugglewang compdim:appender:Base100
	NameAppenderRolloverDurationMS = "appender_rollover_duration_ms"

	// NameAsyncQueueLenGauge: Current depth of an async appender's event queue.
	// group:tyto dimension:appender dashboard:Async queue depth. alarm:Exceeds 80% of capacity. owner:jugglewang compdim:appender:Base1000
	NameAsyncQueueLenGauge = "appender_async_queue_len"
)

// Dimension related definitions, must be prefixed with Dim. The comment should include the group.
const (
	// DimAppender is the dimension for the appender instance name.
	// group:tyto
	DimAppender = "appender"
	// DimReason is the dimension for a drop reason.
	// group:tyto
	DimReason = "reason"
	// DimKind is the dimension for a rollover kind (size or date).
	// group:tyto
	DimKind = "kind"
	// DimPoolName is the dimension for pool name.
	// group:tyto
	DimPoolName = "poolname"
)
