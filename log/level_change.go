package log

// LevelChangeEntry overrides the logger threshold at one source location,
// letting a single call site log below the global level while everything
// else stays quiet.
type LevelChangeEntry struct {
	// FileName matches the trimmed file path as it appears in caller
	// output, e.g. "log/rolling_file_appender.go".
	FileName string `mapstructure:"fileName"`

	// LineNum is the target line. Zero applies the override to every line
	// in the file.
	LineNum int `mapstructure:"lineNum"`

	// LogLevel is the numeric replacement level, matching the Level
	// constants.
	LogLevel int `mapstructure:"logLevel"`
}

// levelChange resolves per-call-site level overrides. The structure is
// read-only after construction, so lookups on the logging path need no
// synchronization; they cost at most two map hits.
type levelChange struct {
	changes map[string]map[int]Level
}

func newLevelChange(entries []LevelChangeEntry) *levelChange {
	c := &levelChange{changes: make(map[string]map[int]Level)}
	for _, entry := range entries {
		c.add(entry)
	}
	return c
}

func (lc *levelChange) Empty() bool {
	return len(lc.changes) == 0
}

func (lc *levelChange) add(entry LevelChangeEntry) {
	lines, ok := lc.changes[entry.FileName]
	if !ok {
		lines = make(map[int]Level)
		lc.changes[entry.FileName] = lines
	}
	lines[entry.LineNum] = Level(entry.LogLevel)
}

// GetLevel returns the override for the location: the exact line rule wins,
// then the file-wide rule, then the passed level.
func (lc *levelChange) GetLevel(fileName string, lineNum int, level Level) Level {
	lines, ok := lc.changes[fileName]
	if !ok {
		return level
	}
	if lv, ok := lines[lineNum]; ok {
		return lv
	}
	if lv, ok := lines[0]; ok {
		return lv
	}
	return level
}
