package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

const (
	// Permissions for log files and auto-created parent directories.
	_logFileMode = 0o644
	_logDirMode  = 0o755
)

// LockingModel is the file-access strategy of a FileAppender. The model owns
// the *os.File handle: OpenFile attaches to the output file, AcquireLock
// hands the handle to the write path, ReleaseLock ends the write section and
// CloseFile detaches. Strategies differ in how long the handle lives and in
// what keeps other writers out while a write is in flight.
//
// The appender serializes all calls through its own mutex, so strategies do
// not need internal locking against their owner. Failures inside
// AcquireLock/ReleaseLock/CloseFile are reported through the owning
// appender's ErrorHandler; AcquireLock returning nil means "skip this write,
// the problem has already been reported".
type LockingModel interface {
	// SetAppender wires the owning appender before OpenFile. The reference
	// is non-owning and is only used for error reporting.
	SetAppender(a *FileAppender)

	// OpenFile attaches the model to the output file. appendToFile selects
	// append versus truncate semantics for an existing file. Strategies
	// that defer the actual open report later failures via the appender.
	OpenFile(path string, appendToFile bool) error

	// AcquireLock returns the handle to write to, or nil when the file is
	// unavailable.
	AcquireLock() *os.File

	// ReleaseLock ends the write section started by AcquireLock.
	ReleaseLock()

	// CloseFile closes the handle. Idempotent.
	CloseFile()
}

// NewLockingModel returns the strategy named by a configuration string.
// Empty selects exclusive, the default.
func NewLockingModel(name string) (LockingModel, error) {
	switch name {
	case "", "exclusive":
		return &ExclusiveLock{}, nil
	case "minimal":
		return &MinimalLock{}, nil
	case "interprocess":
		return &InterProcessLock{}, nil
	case "none":
		return &NoLock{}, nil
	}
	return nil, fmt.Errorf("log: unknown locking model %q", name)
}

// openOutputFile opens path for writing, creating parent directories as
// needed. appendToFile selects append versus truncate for an existing file.
func openOutputFile(path string, appendToFile bool) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, _logDirMode); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	flags := os.O_WRONLY | os.O_CREATE
	if appendToFile {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, _logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// LockingModelBase carries what every strategy needs: the configured path,
// the append flag and the back-reference to the owning appender. Embed it
// and the SetAppender half of the LockingModel contract comes for free.
type LockingModelBase struct {
	appender     *FileAppender
	path         string
	appendToFile bool
}

// SetAppender wires the owning appender. Called by the appender during
// activation, before OpenFile.
func (b *LockingModelBase) SetAppender(a *FileAppender) { b.appender = a }

// CurrentAppender returns the owning appender, nil before SetAppender.
func (b *LockingModelBase) CurrentAppender() *FileAppender { return b.appender }

func (b *LockingModelBase) report(msg string, err error) {
	if b.appender != nil {
		b.appender.reportError(msg, err)
	}
}

// ExclusiveLock opens the output file once and keeps other processes out for
// the whole appender lifetime by holding an advisory flock(2) on it. The
// lock is taken non-blocking: if another process already holds the file,
// OpenFile fails and the appender retries on a later write. Acquire and
// release are no-ops returning the held handle.
//
// This is the default model. It has the lowest per-write cost of the
// lock-holding strategies.
type ExclusiveLock struct {
	LockingModelBase
	file *os.File
}

// OpenFile opens the output file and locks it against other processes.
func (l *ExclusiveLock) OpenFile(path string, appendToFile bool) error {
	l.path, l.appendToFile = path, appendToFile
	f, err := openOutputFile(path, appendToFile)
	if err != nil {
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("lock log file %s: %w", path, err)
	}
	l.file = f
	return nil
}

// AcquireLock returns the held handle, nil when the file is not open.
func (l *ExclusiveLock) AcquireLock() *os.File {
	if l.file == nil {
		l.report("acquire on closed exclusive lock", nil)
		return nil
	}
	return l.file
}

// ReleaseLock is a no-op; the lock is held until CloseFile.
func (l *ExclusiveLock) ReleaseLock() {}

// CloseFile unlocks and closes the output file.
func (l *ExclusiveLock) CloseFile() {
	if l.file == nil {
		return
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.report("unlock log file", err)
	}
	if err := l.file.Close(); err != nil {
		l.report("close log file", err)
	}
	l.file = nil
}

// MinimalLock holds the file open but is prepared to let it go: every
// acquire re-checks that the configured path still names the file it has
// open and reopens when an external tool rotated or deleted it. The handle
// survives acquire/release pairs, so a steady-state write costs one Stat
// instead of an open/close round trip, and no advisory lock is ever taken.
type MinimalLock struct {
	LockingModelBase
	file *os.File
}

// OpenFile records the target; the handle is created lazily at the first
// AcquireLock so the file stays untouched between writes.
func (l *MinimalLock) OpenFile(path string, appendToFile bool) error {
	l.path, l.appendToFile = path, appendToFile
	return nil
}

// AcquireLock returns a handle onto the configured path, opening or
// reopening it as needed. Returns nil when the open fails.
func (l *MinimalLock) AcquireLock() *os.File {
	if l.file != nil && l.stale() {
		l.file.Close()
		l.file = nil
	}
	if l.file == nil {
		f, err := openOutputFile(l.path, l.appendToFile)
		if err != nil {
			l.report("open log file", err)
			return nil
		}
		l.file = f
		// Truncation, if configured, happened on the first open. Every
		// reopen must append to whatever now lives at the path.
		l.appendToFile = true
	}
	return l.file
}

// stale reports whether the configured path no longer names the open file.
func (l *MinimalLock) stale() bool {
	pathInfo, err := os.Stat(l.path)
	if err != nil {
		return true
	}
	fdInfo, err := l.file.Stat()
	if err != nil {
		return true
	}
	return !os.SameFile(pathInfo, fdInfo)
}

// ReleaseLock keeps the handle for the next acquire.
func (l *MinimalLock) ReleaseLock() {}

// CloseFile closes the handle if one is open.
func (l *MinimalLock) CloseFile() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		l.report("close log file", err)
	}
	l.file = nil
}

// InterProcessLock serializes writers across processes with an advisory
// flock(2) taken around every write. Go has no named system mutexes, so the
// advisory lock stands in for one: AcquireLock blocks until every other
// holder releases, and a recursion counter keeps the lock reentrant inside
// the owning appender, which takes it once around a rollover decision and
// again on the write itself. Each outermost acquire seeks to end-of-file
// because another process may have appended since the last release.
type InterProcessLock struct {
	LockingModelBase
	file  *os.File
	depth int
}

// OpenFile opens the output file. The flock is not taken until AcquireLock.
func (l *InterProcessLock) OpenFile(path string, appendToFile bool) error {
	l.path, l.appendToFile = path, appendToFile
	f, err := openOutputFile(path, appendToFile)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

// AcquireLock blocks until the cross-process lock is held, then returns the
// handle positioned at end-of-file. Nested acquires return immediately.
func (l *InterProcessLock) AcquireLock() *os.File {
	if l.file == nil {
		l.report("acquire on closed interprocess lock", nil)
		return nil
	}
	if l.depth == 0 {
		if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX); err != nil {
			l.report("lock log file", err)
			return nil
		}
		if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
			l.report("seek log file", err)
		}
	}
	l.depth++
	return l.file
}

// ReleaseLock drops one level of the recursion counter and releases the
// cross-process lock when the outermost hold ends.
func (l *InterProcessLock) ReleaseLock() {
	if l.depth == 0 {
		l.report("release interprocess lock", ErrLockNotHeld)
		return
	}
	l.depth--
	if l.depth > 0 || l.file == nil {
		return
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.report("unlock log file", err)
	}
}

// CloseFile closes the handle; the kernel drops any held flock with it.
func (l *InterProcessLock) CloseFile() {
	if l.file == nil {
		return
	}
	l.depth = 0
	if err := l.file.Close(); err != nil {
		l.report("close log file", err)
	}
	l.file = nil
}

// NoLock opens the output file once and hands it out without taking any
// lock. The caller accepts that a second writer, in this process or another,
// may interleave partial lines.
type NoLock struct {
	LockingModelBase
	file *os.File
}

// OpenFile opens the output file.
func (l *NoLock) OpenFile(path string, appendToFile bool) error {
	l.path, l.appendToFile = path, appendToFile
	f, err := openOutputFile(path, appendToFile)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

// AcquireLock returns the held handle, nil when the file is not open.
func (l *NoLock) AcquireLock() *os.File {
	if l.file == nil {
		l.report("acquire on closed lock", nil)
		return nil
	}
	return l.file
}

// ReleaseLock is a no-op.
func (l *NoLock) ReleaseLock() {}

// CloseFile closes the output file.
func (l *NoLock) CloseFile() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		l.report("close log file", err)
	}
	l.file = nil
}
