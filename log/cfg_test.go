package log

import (
	"testing"
)

func TestLogCfgValidate(t *testing.T) {
	cfg := &LogCfg{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("default level = %q", cfg.Level)
	}

	bad := &LogCfg{CallerSkip: -1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected an error for a negative caller skip")
	}
}

func TestFileCfgValidateDefaults(t *testing.T) {
	cfg := &FileCfg{Path: "/tmp/app.log"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Name != "file" {
		t.Fatalf("default name = %q", cfg.Name)
	}
	if cfg.AppendToFile == nil || !*cfg.AppendToFile {
		t.Fatal("appendToFile should default to true")
	}
	if cfg.StaticLogFileName == nil || !*cfg.StaticLogFileName {
		t.Fatal("staticLogFileName should default to true")
	}
	if cfg.CountDirection == nil || *cfg.CountDirection != -1 {
		t.Fatal("countDirection should default to -1")
	}
	if cfg.DatePattern != ".2006-01-02" {
		t.Fatalf("default date pattern = %q", cfg.DatePattern)
	}
	if got := cfg.MaxFileSizeBytes(); got != 10<<20 {
		t.Fatalf("default max size = %d", got)
	}
}

func TestFileCfgValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  FileCfg
	}{
		{"missing path", FileCfg{}},
		{"unknown locking model", FileCfg{Path: "/tmp/a.log", LockingModel: "spin"}},
		{"unknown rolling style", FileCfg{Path: "/tmp/a.log", RollingStyle: "hourly"}},
		{"bad size", FileCfg{Path: "/tmp/a.log", MaxFileSize: "lots"}},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestParseFileSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"123", 123},
		{"4KB", 4 << 10},
		{"10MB", 10 << 20},
		{"2GB", 2 << 30},
		{"10mb", 10 << 20},
		{" 8 KB ", 8 << 10},
	}
	for _, c := range cases {
		got, err := ParseFileSize(c.in)
		if err != nil {
			t.Fatalf("ParseFileSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseFileSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	for _, in := range []string{"", "zero", "-1", "0", "10TB", "9999999999999GB"} {
		if _, err := ParseFileSize(in); err == nil {
			t.Errorf("ParseFileSize(%q): expected an error", in)
		}
	}
}

func TestParseFixFlags(t *testing.T) {
	cases := []struct {
		in   string
		want FixFlags
	}{
		{"", FixAll},
		{"all", FixAll},
		{"none", FixNone},
		{"timestamp", FixTimestamp},
		{"timestamp,caller", FixTimestamp | FixCaller},
		{" Message , Detach ", FixMessage | FixDetachOnly},
	}
	for _, c := range cases {
		got, err := ParseFixFlags(c.in)
		if err != nil {
			t.Fatalf("ParseFixFlags(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseFixFlags(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := ParseFixFlags("timestamp,bogus"); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestEvaluatorCfgBuild(t *testing.T) {
	if ev, err := (&EvaluatorCfg{}).Build(); err != nil || ev != nil {
		t.Fatalf("empty config: ev=%v err=%v", ev, err)
	}

	ev, err := (&EvaluatorCfg{Type: "level", Threshold: "warn"}).Build()
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	if !ev.IsTriggeringEvent(rawEvent(WarnLevel, "w")) {
		t.Fatal("warn threshold did not trigger on warn")
	}
	if ev.IsTriggeringEvent(rawEvent(InfoLevel, "i")) {
		t.Fatal("warn threshold triggered on info")
	}

	// Threshold defaults to error.
	ev, err = (&EvaluatorCfg{Type: "level"}).Build()
	if err != nil {
		t.Fatalf("level default: %v", err)
	}
	if ev.IsTriggeringEvent(rawEvent(WarnLevel, "w")) {
		t.Fatal("default threshold should be error")
	}

	iv, err := (&EvaluatorCfg{Type: "interval", IntervalSec: 60}).Build()
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	if _, ok := iv.(*IntervalEvaluator); !ok {
		t.Fatalf("interval built %T", iv)
	}

	if _, err := (&EvaluatorCfg{Type: "sometimes"}).Build(); err == nil {
		t.Fatal("expected an error for an unknown evaluator type")
	}
}
