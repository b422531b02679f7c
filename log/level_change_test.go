package log

import "testing"

func TestLevelChangeLookup(t *testing.T) {
	lc := newLevelChange([]LevelChangeEntry{
		{FileName: "log/worker.go", LineNum: 42, LogLevel: int(TraceLevel)},
		{FileName: "log/worker.go", LineNum: 0, LogLevel: int(WarnLevel)},
		{FileName: "log/server.go", LineNum: 7, LogLevel: int(DebugLevel)},
	})

	if lc.Empty() {
		t.Fatal("populated rule set reports empty")
	}

	// Exact line beats the file-wide rule.
	if got := lc.GetLevel("log/worker.go", 42, InfoLevel); got != TraceLevel {
		t.Fatalf("exact line rule = %v", got)
	}

	// Other lines of the same file fall back to the file-wide rule.
	if got := lc.GetLevel("log/worker.go", 100, InfoLevel); got != WarnLevel {
		t.Fatalf("file-wide rule = %v", got)
	}

	// A file with only an exact rule leaves other lines untouched.
	if got := lc.GetLevel("log/server.go", 8, InfoLevel); got != InfoLevel {
		t.Fatalf("unmatched line = %v", got)
	}
	if got := lc.GetLevel("log/server.go", 7, InfoLevel); got != DebugLevel {
		t.Fatalf("matched line = %v", got)
	}

	// Unknown files pass the level through.
	if got := lc.GetLevel("log/unknown.go", 1, ErrorLevel); got != ErrorLevel {
		t.Fatalf("unknown file = %v", got)
	}
}

func TestLevelChangeEmpty(t *testing.T) {
	lc := newLevelChange(nil)
	if !lc.Empty() {
		t.Fatal("nil entry set should be empty")
	}
	if got := lc.GetLevel("log/worker.go", 1, InfoLevel); got != InfoLevel {
		t.Fatalf("empty set must pass the level through, got %v", got)
	}
}
