package log

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/linchenxuan/tyto/metrics"
	"github.com/linchenxuan/tyto/utils/file"
)

// RollingFileAppender extends FileAppender with file rollover: by size, by
// date, or both. Rolled files get numbered or date-stamped siblings of the
// configured path, with a bounded backup window.
//
// Before every write the appender checks whether a roll is due, holding an
// advisory lock on the output directory so that two processes sharing the
// output file cannot both perform the same roll. The directory lock is
// distinct from the locking model guarding the writes themselves, and no
// lock file ever appears next to the logs.
//
// On activation the appender reconciles with whatever a previous run left
// on disk: numbered backups resume at the highest existing index, and a
// live file whose last write belongs to an earlier date period is rolled
// before the first event is accepted.
type RollingFileAppender struct {
	FileAppender

	style    RollingStyle
	rollDate bool
	rollSize bool

	maxFileSize        int64
	maxSizeRollBackups int
	curSizeRollBackups int
	countDirection     int
	datePattern        string
	staticLogFileName  bool
	preserveExtension  bool

	// baseFileName is the configured path. FileAppender.path may differ
	// when the live file carries a date or number.
	baseFileName      string
	scheduledFilename string
	now               time.Time
	nextCheck         time.Time
	rollPoint         RollPeriod

	rollLock *file.FileLock
	disabled bool

	clock func() time.Time
}

// NewRollingFileAppender creates a rolling file appender from cfg and
// performs activation: on-disk reconciliation, the initial open, and for
// the once style the one-time roll of an existing file. Configuration
// errors that leave the appender unable to ever roll correctly are
// reported and disable it instead of failing construction.
func NewRollingFileAppender(cfg *FileCfg) (*RollingFileAppender, error) {
	r := &RollingFileAppender{clock: time.Now}
	if err := r.FileAppender.init(cfg); err != nil {
		return nil, err
	}
	style, err := ParseRollingStyle(cfg.RollingStyle)
	if err != nil {
		return nil, err
	}
	r.style = style
	r.maxFileSize = cfg.MaxFileSizeBytes()
	r.maxSizeRollBackups = cfg.MaxSizeRollBackups
	r.countDirection = *cfg.CountDirection
	r.datePattern = cfg.DatePattern
	r.staticLogFileName = *cfg.StaticLogFileName
	r.preserveExtension = cfg.PreserveLogFileNameExtension
	r.baseFileName = cfg.Path

	switch r.style {
	case RollOnce:
		// Once means a fresh file per activation; the existing one is
		// rolled out of the way below.
		r.appendToFile = false
	case RollBySize:
		r.rollSize = true
	case RollByDate:
		r.rollDate = true
	case RollComposite:
		r.rollDate, r.rollSize = true, true
	}

	r.activate()
	return r, nil
}

// activate computes the date-rolling schedule, reconciles on-disk state and
// opens the live file.
func (r *RollingFileAppender) activate() {
	if r.rollDate {
		r.now = r.clock()
		r.rollPoint = ComputeCheckPeriod(r.datePattern)
		if r.rollPoint == RollPeriodInvalid {
			r.reportError("no roll period in date pattern "+r.datePattern, ErrAppenderDisabled)
			r.disabled = true
			return
		}
		r.nextCheck = NextCheckDate(r.now, r.rollPoint)
	}
	if r.staticLogFileName {
		r.scheduledFilename = r.baseFileName
		if r.rollDate {
			r.scheduledFilename = r.combinePath(r.baseFileName, r.now.Format(r.datePattern))
		}
	} else if r.rollDate {
		r.path = r.combinePath(r.baseFileName, r.now.Format(r.datePattern))
	}
	r.rollLock = file.NewFileLock(filepath.Dir(r.baseFileName))

	r.existingInit()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openCurrentFile(); err != nil {
		r.reportError("open log file", err)
	}
}

// Append rolls the file if due, then writes the event.
func (r *RollingFileAppender) Append(e *LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		r.drop("disabled", 1)
		return
	}
	if !r.closed {
		r.adjustFileBeforeAppend()
	}
	r.append(e)
}

// AppendBatch writes events in order, checking the roll condition between
// events so a batch cannot overshoot the size threshold by more than one
// event.
func (r *RollingFileAppender) AppendBatch(events []*LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		r.drop("disabled", len(events))
		return
	}
	for _, e := range events {
		if !r.closed {
			r.adjustFileBeforeAppend()
		}
		r.append(e)
	}
}

// Close flushes, detaches from the file and releases the rollover lock.
func (r *RollingFileAppender) Close() error {
	err := r.FileAppender.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rollLock != nil {
		r.rollLock.Close()
		r.rollLock = nil
	}
	return err
}

// adjustFileBeforeAppend rolls the live file when a date boundary or the
// size threshold has been crossed. Callers hold mu. The directory lock
// spans both the decision and the action; a peer process blocked here
// re-reads the world after the roller releases.
func (r *RollingFileAppender) adjustFileBeforeAppend() {
	if r.rollLock != nil {
		if err := r.rollLock.Lock(); err != nil {
			r.reportError("lock output directory", err)
		} else {
			defer r.rollLock.Unlock()
		}
	}
	if r.rollDate {
		n := r.clock()
		if !n.Before(r.nextCheck) {
			r.now = n
			r.nextCheck = NextCheckDate(r.now, r.rollPoint)
			r.rollOverTime(true)
		}
	}
	if r.rollSize {
		if r.fileOpen && r.fileLength() >= r.maxFileSize {
			r.rollOverSize()
		}
	}
}

// rollOverTime moves the live file to its date-stamped name, carrying any
// numbered backups along, and restarts the size-backup counter for the new
// period. fileIsOpen is false during activation, when there is no handle to
// cycle yet.
func (r *RollingFileAppender) rollOverTime(fileIsOpen bool) {
	start := time.Now()
	if r.staticLogFileName {
		dated := r.combinePath(r.baseFileName, r.now.Format(r.datePattern))
		if r.scheduledFilename == dated {
			r.reportError("date roll produced the live file name "+dated, nil)
			return
		}
		if fileIsOpen {
			r.closeFileKeepOpenable()
		}
		for i := 1; i <= r.curSizeRollBackups; i++ {
			from := r.combinePath(r.baseFileName, "."+strconv.Itoa(i))
			to := r.combinePath(r.scheduledFilename, "."+strconv.Itoa(i))
			r.rollFile(from, to)
		}
		r.rollFile(r.baseFileName, r.scheduledFilename)
	}
	r.curSizeRollBackups = 0
	r.scheduledFilename = r.combinePath(r.baseFileName, r.now.Format(r.datePattern))
	if fileIsOpen {
		r.appendToFile = false
		if err := r.openCurrentFile(); err != nil {
			r.reportError("open log file after date roll", err)
		}
	}
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderRolloverTotal, metrics.GroupTyto, 1,
		metrics.Dimension{metrics.DimAppender: r.name, metrics.DimKind: "date"})
	metrics.RecordStopwatchWithDimGroup(metrics.NameAppenderRolloverDurationMS, metrics.GroupTyto, start,
		metrics.Dimension{metrics.DimAppender: r.name})
}

// rollOverSize renames the live file into the numbered backup window and
// starts a fresh one. With a zero backup cap the file is truncated in
// place.
func (r *RollingFileAppender) rollOverSize() {
	start := time.Now()
	r.closeFileKeepOpenable()
	r.rollOverRenameFiles(r.path)
	if !r.staticLogFileName && r.countDirection >= 0 {
		r.curSizeRollBackups++
	}
	r.appendToFile = false
	if err := r.openCurrentFile(); err != nil {
		r.reportError("open log file after size roll", err)
	}
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderRolloverTotal, metrics.GroupTyto, 1,
		metrics.Dimension{metrics.DimAppender: r.name, metrics.DimKind: "size"})
	metrics.RecordStopwatchWithDimGroup(metrics.NameAppenderRolloverDurationMS, metrics.GroupTyto, start,
		metrics.Dimension{metrics.DimAppender: r.name})
}

// rollOverRenameFiles shuffles the numbered backup window to make room for
// baseFileName. Counting down, the newest backup is .1 and the window
// shifts up, dropping .max. Counting up, the new backup takes the next
// higher index and the lowest-numbered file is deleted once the window is
// full.
func (r *RollingFileAppender) rollOverRenameFiles(baseFileName string) {
	if r.maxSizeRollBackups == 0 {
		return
	}
	if r.countDirection < 0 {
		if r.curSizeRollBackups == r.maxSizeRollBackups {
			r.deleteFile(r.combinePath(baseFileName, "."+strconv.Itoa(r.maxSizeRollBackups)))
			r.curSizeRollBackups--
		}
		for i := r.curSizeRollBackups; i >= 1; i-- {
			r.rollFile(
				r.combinePath(baseFileName, "."+strconv.Itoa(i)),
				r.combinePath(baseFileName, "."+strconv.Itoa(i+1)))
		}
		r.curSizeRollBackups++
		r.rollFile(baseFileName, r.combinePath(baseFileName, ".1"))
		return
	}

	if r.curSizeRollBackups >= r.maxSizeRollBackups && r.maxSizeRollBackups > 0 {
		oldest := r.curSizeRollBackups - r.maxSizeRollBackups
		if r.staticLogFileName {
			// The live file carries no number, so the window starts one
			// higher.
			oldest++
		}
		archiveBase := baseFileName
		if !r.staticLogFileName {
			// Strip the number the live file carries; a date stamp, if
			// any, stays.
			if i := strings.LastIndex(archiveBase, "."); i >= 0 {
				archiveBase = archiveBase[:i]
			}
		}
		r.deleteFile(r.combinePath(archiveBase, "."+strconv.Itoa(oldest)))
	}
	if r.staticLogFileName {
		r.curSizeRollBackups++
		r.rollFile(baseFileName, r.combinePath(baseFileName, "."+strconv.Itoa(r.curSizeRollBackups)))
	}
}

// existingInit reconciles with the previous run: the backup counter resumes
// from the directory contents, a missed date roll is performed, and when
// not appending any existing non-empty output file is rolled out of the
// way.
func (r *RollingFileAppender) existingInit() {
	r.determineCurSizeRollBackups()
	r.rollOverIfDateBoundaryCrossing()

	if !r.appendToFile {
		name := r.nextOutputFileName()
		if fi, err := os.Stat(name); err == nil && fi.Size() > 0 {
			// A zero backup cap means the open below truncates instead.
			if r.maxSizeRollBackups != 0 {
				r.rollOverRenameFiles(name)
			}
		}
	}
}

// determineCurSizeRollBackups scans the output directory and resumes the
// backup counter at the highest numbered sibling of the base file.
func (r *RollingFileAppender) determineCurSizeRollBackups() {
	r.curSizeRollBackups = 0
	entries, err := os.ReadDir(filepath.Dir(r.baseFileName))
	if err != nil {
		return
	}
	base := filepath.Base(r.baseFileName)
	prefix := base
	if r.preserveExtension {
		prefix = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasPrefix(name, prefix) {
			r.initializeFromOneFile(base, name)
		}
	}
}

// initializeFromOneFile bumps the backup counter if curFileName is a
// numbered sibling that belongs to the current window.
func (r *RollingFileAppender) initializeFromOneFile(baseFile, curFileName string) {
	if curFileName == baseFile {
		return
	}
	if r.rollDate && !r.staticLogFileName {
		// Only numbered files of the current date period participate.
		date := r.now.Format(r.datePattern)
		var prefix, suffix string
		if r.preserveExtension {
			prefix = strings.TrimSuffix(baseFile, filepath.Ext(baseFile)) + date
			suffix = filepath.Ext(baseFile)
		} else {
			prefix = baseFile + date
		}
		if !strings.HasPrefix(curFileName, prefix) || !strings.HasSuffix(curFileName, suffix) {
			return
		}
	}
	backup := r.backupIndex(curFileName)
	if backup <= r.curSizeRollBackups {
		return
	}
	switch {
	case r.maxSizeRollBackups == 0:
		// No backups are kept, so none are counted.
	case r.maxSizeRollBackups < 0:
		r.curSizeRollBackups = backup
	case r.countDirection >= 0:
		r.curSizeRollBackups = backup
	case backup <= r.maxSizeRollBackups:
		r.curSizeRollBackups = backup
	}
}

// backupIndex extracts the numeric backup suffix of curFileName, -1 when
// the suffix is not a number (a date-stamped sibling, for example).
func (r *RollingFileAppender) backupIndex(curFileName string) int {
	name := curFileName
	if r.preserveExtension {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return -1
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return -1
	}
	return n
}

// rollOverIfDateBoundaryCrossing rolls a leftover live file whose last
// write belongs to an earlier date period, so a restart does not mix two
// periods in one file.
func (r *RollingFileAppender) rollOverIfDateBoundaryCrossing() {
	if !r.staticLogFileName || !r.rollDate {
		return
	}
	fi, err := os.Stat(r.baseFileName)
	if err != nil {
		return
	}
	last := fi.ModTime()
	if last.Format(r.datePattern) == r.now.Format(r.datePattern) {
		return
	}
	r.scheduledFilename = r.combinePath(r.baseFileName, last.Format(r.datePattern))
	r.rollOverTime(false)
}

// nextOutputFileName computes the live file name. With a static name this
// is always the configured path; otherwise the date stamp and, when
// counting up, the backup number are part of the name.
func (r *RollingFileAppender) nextOutputFileName() string {
	if r.staticLogFileName {
		return r.baseFileName
	}
	name := r.baseFileName
	if r.rollDate {
		name = r.combinePath(name, r.now.Format(r.datePattern))
	}
	if r.countDirection >= 0 {
		name = r.combinePath(name, "."+strconv.Itoa(r.curSizeRollBackups))
	}
	return name
}

// openCurrentFile points the appender at the computed live file and opens
// it. Callers hold mu.
func (r *RollingFileAppender) openCurrentFile() error {
	r.path = r.nextOutputFileName()
	if !r.staticLogFileName {
		r.scheduledFilename = r.path
	}
	return r.safeOpenFile()
}

// combinePath glues a rollover suffix onto path, before the extension when
// PreserveLogFileNameExtension is set.
func (r *RollingFileAppender) combinePath(path, suffix string) string {
	ext := filepath.Ext(path)
	if r.preserveExtension && ext != "" {
		return strings.TrimSuffix(path, ext) + suffix + ext
	}
	return path + suffix
}

// rollFile renames fromFile to toFile, replacing any previous toFile. A
// missing source is not an error; the window simply has a gap there.
func (r *RollingFileAppender) rollFile(fromFile, toFile string) {
	if _, err := os.Stat(fromFile); err != nil {
		return
	}
	if err := os.Rename(fromFile, toFile); err != nil {
		r.reportError("roll "+fromFile+" to "+toFile, err)
	}
}

// deleteFile removes path, reporting failures other than absence.
func (r *RollingFileAppender) deleteFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.reportError("delete "+path, err)
	}
}
