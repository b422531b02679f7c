package log

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestParseRollingStyle(t *testing.T) {
	cases := []struct {
		name string
		want RollingStyle
	}{
		{"", RollComposite},
		{"composite", RollComposite},
		{"once", RollOnce},
		{"size", RollBySize},
		{"date", RollByDate},
	}
	for _, c := range cases {
		got, err := ParseRollingStyle(c.name)
		if err != nil {
			t.Fatalf("ParseRollingStyle(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("ParseRollingStyle(%q) = %v, want %v", c.name, got, c.want)
		}
	}
	if _, err := ParseRollingStyle("hourly"); err == nil {
		t.Fatal("expected an error for an unknown style")
	}
}

func TestNextCheckDate(t *testing.T) {
	cases := []struct {
		name   string
		t      time.Time
		period RollPeriod
		want   time.Time
	}{
		{"minute", date(2026, time.August, 23, 14, 35, 47), RollPeriodMinute, date(2026, time.August, 23, 14, 36, 0)},
		{"hour", date(2026, time.August, 23, 14, 35, 47), RollPeriodHour, date(2026, time.August, 23, 15, 0, 0)},
		{"halfday morning", date(2026, time.August, 23, 9, 30, 0), RollPeriodHalfDay, date(2026, time.August, 23, 12, 0, 0)},
		{"halfday noon", date(2026, time.August, 23, 12, 0, 0), RollPeriodHalfDay, date(2026, time.August, 24, 0, 0, 0)},
		{"halfday evening", date(2026, time.August, 23, 23, 59, 59), RollPeriodHalfDay, date(2026, time.August, 24, 0, 0, 0)},
		{"day", date(2026, time.August, 23, 18, 0, 0), RollPeriodDay, date(2026, time.August, 24, 0, 0, 0)},
		{"day at midnight", date(2026, time.August, 23, 0, 0, 0), RollPeriodDay, date(2026, time.August, 24, 0, 0, 0)},
		// 2026-08-23 is a Sunday, 2026-08-26 a Wednesday; both land on
		// the following Sunday.
		{"week from sunday", date(2026, time.August, 23, 10, 0, 0), RollPeriodWeek, date(2026, time.August, 30, 0, 0, 0)},
		{"week midweek", date(2026, time.August, 26, 10, 0, 0), RollPeriodWeek, date(2026, time.August, 30, 0, 0, 0)},
		{"month", date(2026, time.August, 31, 12, 0, 0), RollPeriodMonth, date(2026, time.September, 1, 0, 0, 0)},
		{"month december", date(2026, time.December, 15, 0, 0, 0), RollPeriodMonth, date(2027, time.January, 1, 0, 0, 0)},
	}
	for _, c := range cases {
		if got := NextCheckDate(c.t, c.period); !got.Equal(c.want) {
			t.Errorf("%s: NextCheckDate = %v, want %v", c.name, got, c.want)
		}
	}
	if got := NextCheckDate(date(2026, time.August, 23, 0, 0, 0), RollPeriodInvalid); !got.IsZero() {
		t.Errorf("invalid period: NextCheckDate = %v, want zero", got)
	}
}

func TestNextCheckDateIsStrictlyAfter(t *testing.T) {
	at := date(2026, time.August, 23, 12, 0, 0)
	for p := RollPeriodMinute; p <= RollPeriodMonth; p++ {
		if next := NextCheckDate(at, p); !next.After(at) {
			t.Errorf("%v: next check %v is not after %v", p, next, at)
		}
	}
}

func TestComputeCheckPeriod(t *testing.T) {
	cases := []struct {
		pattern string
		want    RollPeriod
	}{
		{".2006-01-02-15-04", RollPeriodMinute},
		{".2006-01-02-15", RollPeriodHour},
		{"-Jan-2-PM", RollPeriodHalfDay},
		{".2006-01-02", RollPeriodDay},
		{".2006-01", RollPeriodMonth},
		{".2006", RollPeriodInvalid},
		{"app-static", RollPeriodInvalid},
	}
	for _, c := range cases {
		if got := ComputeCheckPeriod(c.pattern); got != c.want {
			t.Errorf("ComputeCheckPeriod(%q) = %v, want %v", c.pattern, got, c.want)
		}
	}
}
