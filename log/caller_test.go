package log

import (
	"strings"
	"testing"
)

func TestCallerResolver(t *testing.T) {
	r := newCallerResolver(0)

	var first, second *callerInfo
	for i := 0; i < 2; i++ {
		ci := r.resolve(1)
		if i == 0 {
			first = ci
		} else {
			second = ci
		}
	}

	if first == nil || first == _unknownCaller {
		t.Fatal("own frame did not resolve")
	}
	if first != second {
		t.Fatal("repeated resolution of one call site missed the cache")
	}

	if first.file != "log/caller_test.go" {
		t.Errorf("file should keep the last two path segments, got %q", first.file)
	}
	if first.function != "TestCallerResolver" {
		t.Errorf("function should drop the package prefix, got %q", first.function)
	}
	if first.line <= 0 {
		t.Errorf("line = %d", first.line)
	}
	if !strings.Contains(first.String(), "log/caller_test.go:") {
		t.Errorf("String = %q", first.String())
	}
}

func TestCallerResolverClampsSkip(t *testing.T) {
	r := newCallerResolver(-3)
	if r.skip != 0 {
		t.Fatalf("negative skip should clamp to zero, got %d", r.skip)
	}
}

func TestCallerResolverUnknownFrame(t *testing.T) {
	r := newCallerResolver(0)
	if ci := r.resolve(500); ci != _unknownCaller {
		t.Fatalf("absurd frame depth should resolve to the unknown marker, got %+v", ci)
	}
}
