package log

import (
	"fmt"
	"time"
)

// RollingStyle selects what triggers a rollover.
type RollingStyle int

const (
	// RollOnce rolls any existing non-empty file out of the way at
	// activation and never rolls again.
	RollOnce RollingStyle = iota

	// RollBySize rolls when the live file reaches the size threshold.
	RollBySize

	// RollByDate rolls when the date pattern ticks over.
	RollByDate

	// RollComposite rolls on both size and date. The default.
	RollComposite
)

// ParseRollingStyle converts a configuration string to a RollingStyle.
// Empty selects composite.
func ParseRollingStyle(name string) (RollingStyle, error) {
	switch name {
	case "", "composite":
		return RollComposite, nil
	case "once":
		return RollOnce, nil
	case "size":
		return RollBySize, nil
	case "date":
		return RollByDate, nil
	}
	return 0, fmt.Errorf("log: unknown rolling style %q", name)
}

// RollPeriod is the granularity of date-based rollover. Values are ordered
// finest first; ComputeCheckPeriod relies on the ordering.
type RollPeriod int

const (
	// RollPeriodInvalid means no period could be inferred from the pattern.
	RollPeriodInvalid RollPeriod = iota
	// RollPeriodMinute rolls at the top of every minute.
	RollPeriodMinute
	// RollPeriodHour rolls at the top of every hour.
	RollPeriodHour
	// RollPeriodHalfDay rolls at noon and midnight.
	RollPeriodHalfDay
	// RollPeriodDay rolls at midnight.
	RollPeriodDay
	// RollPeriodWeek rolls at midnight entering Sunday.
	RollPeriodWeek
	// RollPeriodMonth rolls at midnight entering the first of the month.
	RollPeriodMonth
)

// String returns the period name for diagnostics.
func (p RollPeriod) String() string {
	switch p {
	case RollPeriodMinute:
		return "minute"
	case RollPeriodHour:
		return "hour"
	case RollPeriodHalfDay:
		return "halfday"
	case RollPeriodDay:
		return "day"
	case RollPeriodWeek:
		return "week"
	case RollPeriodMonth:
		return "month"
	}
	return "invalid"
}

// NextCheckDate returns the first instant strictly after t at which a file
// rolling on the given period must roll: finer fields are zeroed and the
// period advances by one unit. Half-day snaps to the next noon or midnight.
func NextCheckDate(t time.Time, period RollPeriod) time.Time {
	switch period {
	case RollPeriodMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()).Add(time.Minute)
	case RollPeriodHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
	case RollPeriodHalfDay:
		if t.Hour() < 12 {
			return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	case RollPeriodDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	case RollPeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return day.AddDate(0, 0, 7-int(t.Weekday()))
	case RollPeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	}
	return time.Time{}
}

// ComputeCheckPeriod infers the rollover period from a reference-time date
// pattern by probing: a fixed instant and its next boundary for each period
// are both formatted with the pattern, finest period first, and the first
// period that changes the formatted output wins. A pattern with no date
// component yields RollPeriodInvalid.
func ComputeCheckPeriod(datePattern string) RollPeriod {
	epoch := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	base := epoch.Format(datePattern)
	for p := RollPeriodMinute; p <= RollPeriodMonth; p++ {
		if NextCheckDate(epoch, p).Format(datePattern) != base {
			return p
		}
	}
	return RollPeriodInvalid
}
