package log

import (
	"runtime"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// _callerCacheSize bounds the call-site cache. A binary has a finite set of
// logging sites, but the cache still evicts least-recently-used entries so
// pathological pc churn cannot grow it without bound.
const _callerCacheSize = 4096

var _unknownCaller = &callerInfo{file: "unknown", function: "unknown"}

// callerInfo is a resolved logging call site. Instances are immutable and
// shared through the resolver cache.
type callerInfo struct {
	file     string
	function string
	line     int
}

func (c *callerInfo) String() string {
	return c.file + ":" + strconv.Itoa(c.line) + " " + c.function
}

// callerResolver turns program counters into call-site descriptions.
// Resolutions are cached by pc: runtime.FuncForPC plus the path trimming
// cost far more than the lookup, and a hot call site resolves once.
type callerResolver struct {
	skip  int
	cache *lru.Cache[uintptr, *callerInfo]
}

func newCallerResolver(extraSkip int) *callerResolver {
	if extraSkip < 0 {
		extraSkip = 0
	}
	cache, _ := lru.New[uintptr, *callerInfo](_callerCacheSize)
	return &callerResolver{skip: extraSkip, cache: cache}
}

// resolve describes the stack frame internalFrames above the caller, plus
// the configured extra skip for wrapped facades.
func (r *callerResolver) resolve(internalFrames int) *callerInfo {
	pc, file, line, ok := runtime.Caller(internalFrames + r.skip)
	if !ok {
		return _unknownCaller
	}
	if cached, found := r.cache.Get(pc); found {
		return cached
	}

	function := runtime.FuncForPC(pc).Name()
	if dot := strings.LastIndexByte(function, '.'); dot != -1 {
		function = function[dot+1:]
	}

	// Keep the last two path segments; full module paths bloat every line.
	if slash := strings.LastIndexByte(file, '/'); slash > 0 {
		if prev := strings.LastIndexByte(file[:slash], '/'); prev >= 0 {
			file = file[prev+1:]
		}
	}

	c := &callerInfo{file: file, function: function, line: line}
	r.cache.Add(pc, c)
	return c
}
