package log

import (
	"io"
	"testing"
)

// discardLogger builds a logger whose appender renders every event and
// throws the bytes away, measuring pure logging overhead without I/O
// interference.
func discardLogger(cfg *LogCfg) *CoreLogger {
	l := NewLogger(cfg)
	l.AddAppender(NewConsoleAppenderTo(io.Discard))
	return l
}

// BenchmarkSyncLogging measures the performance of synchronous logging.
func BenchmarkSyncLogging(b *testing.B) {
	l := discardLogger(&LogCfg{Level: "debug"})
	defer l.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Info().Msg("benchmark message")
		}
	})
}

// BenchmarkSyncLoggingWithCaller measures the cost the caller cache leaves
// on the hot path.
func BenchmarkSyncLoggingWithCaller(b *testing.B) {
	l := discardLogger(&LogCfg{Level: "debug", EnabledCallerInfo: true})
	defer l.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Info().Msg("benchmark message")
		}
	})
}

// BenchmarkAsyncLogging measures the performance of goroutine-decoupled
// logging.
func BenchmarkAsyncLogging(b *testing.B) {
	l := NewLogger(&LogCfg{Level: "debug"})
	a, err := NewAsyncAppender(&AsyncCfg{QueueSize: 1 << 16}, NewConsoleAppenderTo(io.Discard))
	if err != nil {
		b.Fatalf("async appender: %v", err)
	}
	l.AddAppender(a)
	defer l.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Info().Msg("benchmark message")
		}
	})
}

// BenchmarkFilteredLogging measures a call below the threshold, the path
// most calls take in production.
func BenchmarkFilteredLogging(b *testing.B) {
	l := discardLogger(&LogCfg{Level: "error"})
	defer l.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Debug().Msg("benchmark message")
		}
	})
}
