package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linchenxuan/tyto/plugin"
)

func TestRegisterFactories(t *testing.T) {
	m := plugin.NewManager()
	RegisterFactories(m)

	dir := t.TempDir()
	conf := map[string]any{
		"appender": map[string]any{
			"rolling": map[string]any{
				"path":        filepath.Join(dir, "app.log"),
				"maxFileSize": "1MB",
				"tag":         "default",
			},
			"file": map[string]any{
				"path": filepath.Join(dir, "audit.log"),
			},
			"console": map[string]any{
				"stderr": true,
			},
		},
		"evaluator": map[string]any{
			"level": map[string]any{
				"threshold": "warn",
			},
		},
	}
	if err := m.SetupPlugins(conf); err != nil {
		t.Fatalf("SetupPlugins: %v", err)
	}

	p, err := m.GetDefaultPlugin(plugin.Appender)
	if err != nil {
		t.Fatalf("GetDefaultPlugin: %v", err)
	}
	a, ok := AppenderFromPlugin(p.(plugin.Plugin))
	if !ok {
		t.Fatalf("expected an appender plugin, got %T", p)
	}
	if _, ok := a.(*RollingFileAppender); !ok {
		t.Fatalf("expected *RollingFileAppender, got %T", a)
	}

	a.Append(rawEvent(InfoLevel, "through the registry"))
	if err := a.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("nothing written through the registry-built appender")
	}

	ep, err := m.GetPlugin(plugin.Evaluator, "level")
	if err != nil {
		t.Fatalf("GetPlugin evaluator: %v", err)
	}
	ev, ok := EvaluatorFromPlugin(ep.(plugin.Plugin))
	if !ok {
		t.Fatalf("expected an evaluator plugin, got %T", ep)
	}
	if ev.IsTriggeringEvent(rawEvent(InfoLevel, "quiet")) {
		t.Error("info must not trigger a warn-threshold evaluator")
	}
	if !ev.IsTriggeringEvent(rawEvent(ErrorLevel, "loud")) {
		t.Error("error must trigger a warn-threshold evaluator")
	}

	m.DestroyAll()
}

func TestFileFactoryRejectsBadConfig(t *testing.T) {
	f := NewFileFactory()
	if f.Type() != plugin.Appender || f.Name() != "file" {
		t.Fatalf("unexpected identity %s/%s", f.Type(), f.Name())
	}
	if _, ok := f.ConfigType().(*FileCfg); !ok {
		t.Fatalf("expected *FileCfg, got %T", f.ConfigType())
	}
	if _, err := f.Setup("not a config"); err == nil {
		t.Error("expected Setup to reject a foreign config type")
	}
	if _, err := f.Setup(&FileCfg{}); err == nil {
		t.Error("expected Setup to reject a config without a path")
	}
}

func TestRollingFactoryRejectsBadConfig(t *testing.T) {
	f := NewRollingFactory()
	if _, err := f.Setup(&FileCfg{Path: "x.log", RollingStyle: "sideways"}); err == nil {
		t.Error("expected Setup to reject an unknown rolling style")
	}
}

func TestIntervalEvaluatorFactoryRejectsZeroInterval(t *testing.T) {
	f := NewIntervalEvaluatorFactory()
	if _, err := f.Setup(&EvaluatorCfg{}); err == nil {
		t.Error("expected Setup to reject a zero interval")
	}
}
