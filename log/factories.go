package log

import (
	"fmt"
	"os"
	"time"

	"github.com/linchenxuan/tyto/plugin"
)

// RegisterFactories registers every built-in appender and evaluator factory
// with the manager. The facade calls this once at startup so configuration
// files can instantiate sinks by name.
func RegisterFactories(m *plugin.Manager) {
	m.RegisterFactory(NewFileFactory())
	m.RegisterFactory(NewRollingFactory())
	m.RegisterFactory(NewConsoleFactory())
	m.RegisterFactory(NewLevelEvaluatorFactory())
	m.RegisterFactory(NewIntervalEvaluatorFactory())
}

// appenderPlugin wraps a built appender so the plugin manager can track and
// destroy it without the appender types knowing about plugins.
type appenderPlugin struct {
	LogAppender
	factory string
}

func (p *appenderPlugin) FactoryName() string { return p.factory }

// AppenderFromPlugin unwraps an instance built by one of the appender
// factories. The second return is false for plugins of other types.
func AppenderFromPlugin(p plugin.Plugin) (LogAppender, bool) {
	w, ok := p.(*appenderPlugin)
	if !ok {
		return nil, false
	}
	return w.LogAppender, true
}

// evaluatorPlugin wraps a built evaluator for the plugin manager.
type evaluatorPlugin struct {
	TriggeringEventEvaluator
	factory string
}

func (p *evaluatorPlugin) FactoryName() string { return p.factory }

// EvaluatorFromPlugin unwraps an instance built by one of the evaluator
// factories.
func EvaluatorFromPlugin(p plugin.Plugin) (TriggeringEventEvaluator, bool) {
	w, ok := p.(*evaluatorPlugin)
	if !ok {
		return nil, false
	}
	return w.TriggeringEventEvaluator, true
}

type fileFactory struct{}

// NewFileFactory creates the factory for plain file appenders.
func NewFileFactory() plugin.Factory {
	return &fileFactory{}
}

func (f *fileFactory) Type() plugin.Type { return plugin.Appender }
func (f *fileFactory) Name() string      { return "file" }

func (f *fileFactory) ConfigType() any {
	return &FileCfg{}
}

func (f *fileFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*FileCfg)
	if !ok {
		return nil, fmt.Errorf("file appender setup: unexpected config type %T", cfgAny)
	}
	a, err := NewFileAppender(cfg)
	if err != nil {
		return nil, fmt.Errorf("file appender setup: %w", err)
	}
	return &appenderPlugin{LogAppender: a, factory: f.Name()}, nil
}

func (f *fileFactory) Destroy(p plugin.Plugin) {
	if a, ok := AppenderFromPlugin(p); ok {
		a.Close()
	}
}

type rollingFactory struct{}

// NewRollingFactory creates the factory for rolling file appenders.
func NewRollingFactory() plugin.Factory {
	return &rollingFactory{}
}

func (f *rollingFactory) Type() plugin.Type { return plugin.Appender }
func (f *rollingFactory) Name() string      { return "rolling" }

func (f *rollingFactory) ConfigType() any {
	return &FileCfg{}
}

func (f *rollingFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*FileCfg)
	if !ok {
		return nil, fmt.Errorf("rolling appender setup: unexpected config type %T", cfgAny)
	}
	a, err := NewRollingFileAppender(cfg)
	if err != nil {
		return nil, fmt.Errorf("rolling appender setup: %w", err)
	}
	return &appenderPlugin{LogAppender: a, factory: f.Name()}, nil
}

func (f *rollingFactory) Destroy(p plugin.Plugin) {
	if a, ok := AppenderFromPlugin(p); ok {
		a.Close()
	}
}

type consoleFactory struct{}

// NewConsoleFactory creates the factory for console appenders.
func NewConsoleFactory() plugin.Factory {
	return &consoleFactory{}
}

func (f *consoleFactory) Type() plugin.Type { return plugin.Appender }
func (f *consoleFactory) Name() string      { return "console" }

func (f *consoleFactory) ConfigType() any {
	return &ConsoleCfg{}
}

func (f *consoleFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*ConsoleCfg)
	if !ok {
		return nil, fmt.Errorf("console appender setup: unexpected config type %T", cfgAny)
	}
	a := NewConsoleAppender()
	if cfg.Stderr {
		a = NewConsoleAppenderTo(os.Stderr)
	}
	return &appenderPlugin{LogAppender: a, factory: f.Name()}, nil
}

func (f *consoleFactory) Destroy(p plugin.Plugin) {
	if a, ok := AppenderFromPlugin(p); ok {
		a.Close()
	}
}

type levelEvaluatorFactory struct{}

// NewLevelEvaluatorFactory creates the factory for level-threshold
// evaluators.
func NewLevelEvaluatorFactory() plugin.Factory {
	return &levelEvaluatorFactory{}
}

func (f *levelEvaluatorFactory) Type() plugin.Type { return plugin.Evaluator }
func (f *levelEvaluatorFactory) Name() string      { return "level" }

func (f *levelEvaluatorFactory) ConfigType() any {
	return &EvaluatorCfg{}
}

func (f *levelEvaluatorFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*EvaluatorCfg)
	if !ok {
		return nil, fmt.Errorf("level evaluator setup: unexpected config type %T", cfgAny)
	}
	threshold := ErrorLevel
	if cfg.Threshold != "" {
		threshold = ParseLevel(cfg.Threshold)
	}
	return &evaluatorPlugin{TriggeringEventEvaluator: NewLevelEvaluator(threshold), factory: f.Name()}, nil
}

func (f *levelEvaluatorFactory) Destroy(plugin.Plugin) {}

type intervalEvaluatorFactory struct{}

// NewIntervalEvaluatorFactory creates the factory for interval-gated
// evaluators.
func NewIntervalEvaluatorFactory() plugin.Factory {
	return &intervalEvaluatorFactory{}
}

func (f *intervalEvaluatorFactory) Type() plugin.Type { return plugin.Evaluator }
func (f *intervalEvaluatorFactory) Name() string      { return "interval" }

func (f *intervalEvaluatorFactory) ConfigType() any {
	return &EvaluatorCfg{}
}

func (f *intervalEvaluatorFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*EvaluatorCfg)
	if !ok {
		return nil, fmt.Errorf("interval evaluator setup: unexpected config type %T", cfgAny)
	}
	if cfg.IntervalSec <= 0 {
		return nil, fmt.Errorf("interval evaluator setup: intervalSec must be positive, got %d", cfg.IntervalSec)
	}
	ev := NewIntervalEvaluator(time.Duration(cfg.IntervalSec) * time.Second)
	return &evaluatorPlugin{TriggeringEventEvaluator: ev, factory: f.Name()}, nil
}

func (f *intervalEvaluatorFactory) Destroy(plugin.Plugin) {}
