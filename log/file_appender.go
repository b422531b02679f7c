package log

import (
	"os"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/linchenxuan/tyto/metrics"
)

// Retry profile for opening output files. A peer process holding the file
// exclusively during its own rollover releases it within milliseconds, so a
// few short fixed delays absorb the window.
const (
	_openRetryAttempts = 3
	_openRetryDelay    = 50 * time.Millisecond
)

// FileAppender writes rendered events synchronously to a single file. The
// file handle is owned by a LockingModel, which decides how long it stays
// open and what keeps concurrent writers out. All operations serialize on
// one mutex; the write path spawns no goroutines. Wrap the appender in an
// AsyncAppender when the caller must not block on disk I/O.
//
// A failed open is reported through the ErrorHandler and the write is
// skipped; the open is retried on the next append, so an appender pointed at
// a temporarily unavailable path heals itself once the path comes back.
type FileAppender struct {
	mu sync.Mutex

	name         string
	path         string
	appendToFile bool
	locking      LockingModel
	handler      ErrorHandler

	fileOpen bool
	length   int64 // bytes in the current file, tracked without re-stating
	closed   bool
}

// NewFileAppender creates a file appender from cfg and attempts the first
// open. Open failures do not fail construction; they are reported and the
// open is retried when the first event arrives.
func NewFileAppender(cfg *FileCfg) (*FileAppender, error) {
	a := &FileAppender{}
	if err := a.init(cfg); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.safeOpenFile(); err != nil {
		a.reportError("open log file", err)
	}
	return a, nil
}

// init fills the appender from cfg without touching the filesystem. The
// rolling subclass reconciles on-disk state before its first open.
func (a *FileAppender) init(cfg *FileCfg) error {
	if cfg == nil {
		panic("log: nil file appender config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	locking, err := NewLockingModel(cfg.LockingModel)
	if err != nil {
		return err
	}
	a.name = cfg.Name
	a.path = cfg.Path
	a.appendToFile = *cfg.AppendToFile
	a.locking = locking
	a.handler = NewOnlyOnceErrorHandler(cfg.Name)
	a.locking.SetAppender(a)
	return nil
}

// Name reports the configured appender name.
func (a *FileAppender) Name() string { return a.name }

// Path reports the output file path.
func (a *FileAppender) Path() string { return a.path }

// SetErrorHandler replaces the failure destination. A nil handler silences
// reporting entirely.
func (a *FileAppender) SetErrorHandler(h ErrorHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// Append writes one rendered event to the file. Failures are reported, not
// returned; the logging call never observes sink trouble.
func (a *FileAppender) Append(e *LogEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.append(e)
}

// AppendBatch writes events in order under a single lock acquisition.
func (a *FileAppender) AppendBatch(events []*LogEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range events {
		a.append(e)
	}
}

// append is the write path. Callers hold mu.
func (a *FileAppender) append(e *LogEvent) {
	if a.closed {
		a.reportError("append after close", ErrAppenderClosed)
		a.drop("closed", 1)
		return
	}
	if e == nil {
		return
	}
	if !a.fileOpen {
		if err := a.safeOpenFile(); err != nil {
			a.reportError("open log file", err)
			a.drop("open_failed", 1)
			return
		}
	}
	f := a.locking.AcquireLock()
	if f == nil {
		a.drop("no_lock", 1)
		return
	}
	defer a.locking.ReleaseLock()

	n, err := f.Write(e.Bytes())
	a.length += int64(n)
	if err != nil {
		a.reportError("write log file", err)
		metrics.IncrCounterWithDimGroup(metrics.NameAppenderWriteErrorTotal, metrics.GroupTyto, 1,
			metrics.Dimension{metrics.DimAppender: a.name})
		return
	}
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderAppendTotal, metrics.GroupTyto, 1,
		metrics.Dimension{metrics.DimAppender: a.name})
}

// Refresh forces written data down to the device.
func (a *FileAppender) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !a.fileOpen {
		return nil
	}
	f := a.locking.AcquireLock()
	if f == nil {
		return nil
	}
	defer a.locking.ReleaseLock()
	return f.Sync()
}

// Close detaches from the file. Further appends are reported and dropped.
// Close is idempotent.
func (a *FileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.fileOpen {
		if f := a.locking.AcquireLock(); f != nil {
			f.Sync()
			a.locking.ReleaseLock()
		}
		a.locking.CloseFile()
		a.fileOpen = false
	}
	return nil
}

// safeOpenFile attaches the locking model to the output file, retrying a
// bounded number of times with a fixed delay. Callers hold mu. On success
// the length counter resumes from the existing file size when appending.
func (a *FileAppender) safeOpenFile() error {
	err := retry.New(
		retry.Attempts(_openRetryAttempts),
		retry.Delay(_openRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.IncrCounterWithDimGroup(metrics.NameAppenderOpenRetryTotal, metrics.GroupTyto, 1,
				metrics.Dimension{metrics.DimAppender: a.name})
		}),
	).Do(func() error {
		return a.locking.OpenFile(a.path, a.appendToFile)
	})
	if err != nil {
		return err
	}
	a.fileOpen = true
	a.length = 0
	if a.appendToFile {
		if fi, statErr := os.Stat(a.path); statErr == nil {
			a.length = fi.Size()
		}
	}
	// The first open consumed any configured truncation. Reopens after an
	// error or a rollover must append.
	a.appendToFile = true
	return nil
}

// reopenFile closes the current handle and reattaches to the path. The
// rolling subclass calls it after renaming the live file away. Callers hold
// mu.
func (a *FileAppender) reopenFile() error {
	if a.fileOpen {
		a.locking.CloseFile()
		a.fileOpen = false
	}
	return a.safeOpenFile()
}

// closeFileKeepOpenable closes the handle but leaves the appender usable, so
// the next append reopens. Used around external renames. Callers hold mu.
func (a *FileAppender) closeFileKeepOpenable() {
	if !a.fileOpen {
		return
	}
	a.locking.CloseFile()
	a.fileOpen = false
}

// fileLength reports the tracked size of the live file. Callers hold mu.
func (a *FileAppender) fileLength() int64 { return a.length }

// setFileLength resets the tracked size, used when a rollover replaced the
// file underneath the counter. Callers hold mu.
func (a *FileAppender) setFileLength(n int64) { a.length = n }

// reportError forwards an internal failure to the configured handler.
func (a *FileAppender) reportError(msg string, err error) {
	if a.handler != nil {
		a.handler.Error(msg, err)
	}
}

// drop counts discarded events by reason.
func (a *FileAppender) drop(reason string, n int) {
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderDropTotal, metrics.GroupTyto, metrics.Value(n),
		metrics.Dimension{metrics.DimAppender: a.name, metrics.DimReason: reason})
}
