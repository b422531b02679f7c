package tyto

import (
	"fmt"
	"sync"
	"time"

	"github.com/linchenxuan/tyto/config"
	"github.com/linchenxuan/tyto/event"
	"github.com/linchenxuan/tyto/log"
	"github.com/linchenxuan/tyto/metrics"
	"github.com/linchenxuan/tyto/metrics/prometheus"
	"github.com/linchenxuan/tyto/plugin"
)

// _reloadTimeout bounds how long a config publish waits for subscribers.
const _reloadTimeout = 5 * time.Second

// Tyto is the assembled logging runtime: the logger front-end, the plugin
// registry that builds sinks and reporters, and the reload bus with its
// optional config file watcher.
type Tyto struct {
	PluginManager *plugin.Manager
	Publisher     *event.Publisher

	mu      sync.Mutex
	logger  *log.CoreLogger
	watcher *config.Watcher
	cfgPath string
}

// New creates a Tyto instance with default configuration: a debug-level
// console logger and the built-in factories registered, no config file.
func New() (*Tyto, error) {
	t := newBase()

	logger := log.NewLogger(&log.LogCfg{
		Level:             log.DebugLevel.String(),
		EnabledCallerInfo: true,
		CallerSkip:        1,
	})
	logger.AddAppender(log.NewConsoleAppender())
	log.SetDefaultLogger(logger)
	t.logger = logger

	logger.Info().Msg("tyto initialized")
	return t, nil
}

// NewFromConfig loads a configuration file, builds the configured appenders
// and reporters through the plugin registry, and attaches the appenders to a
// fresh logger. Call WatchConfig afterwards for hot reload.
func NewFromConfig(path string) (*Tyto, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	t := newBase()
	t.cfgPath = path

	if len(cfg.Plugin) > 0 {
		if err := t.PluginManager.SetupPlugins(cfg.Plugin); err != nil {
			return nil, err
		}
	}
	t.registerReporters()
	t.applyConfig(cfg)

	t.logger.Info().Str("path", path).Msg("tyto initialized from config")
	return t, nil
}

// newBase assembles the parts every constructor shares: the plugin manager
// with built-in factories and the reload bus with its topic and subscriber.
func newBase() *Tyto {
	t := &Tyto{
		PluginManager: plugin.NewManager(),
		Publisher:     event.NewPublisher(),
	}
	log.RegisterFactories(t.PluginManager)
	t.PluginManager.RegisterFactory(prometheus.NewFactory())

	// The topic exists from birth so WatchConfig and external publishers
	// never race topic creation.
	_ = t.Publisher.NewTopic(event.ReloadConfig, _reloadTimeout)
	_ = t.Publisher.RegisterSubscriber(event.ReloadConfig, t.onReload)
	return t
}

// Logger returns the current logger. The instance changes when a config
// reload lands, so callers should not cache it across reloads; the package
// front-end (log.Info and friends) always follows the latest.
func (t *Tyto) Logger() log.Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logger
}

// WatchConfig starts watching the file NewFromConfig loaded and re-applies
// the log section on every change. Appender and reporter topology is fixed
// at startup; topology edits need a restart.
func (t *Tyto) WatchConfig() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfgPath == "" {
		return fmt.Errorf("tyto: no config file to watch")
	}
	if t.watcher != nil {
		return nil
	}
	w, err := config.NewWatcher(t.cfgPath, t.Publisher)
	if err != nil {
		return err
	}
	t.watcher = w
	w.StartAsync()
	return nil
}

// Stop gracefully shuts down the instance: the watcher first so no reload
// lands mid-teardown, then the logger so buffered events flush, then the
// plugin instances behind it.
func (t *Tyto) Stop() {
	t.mu.Lock()
	w := t.watcher
	t.watcher = nil
	logger := t.logger
	t.mu.Unlock()

	if w != nil {
		_ = w.Stop()
	}
	if logger != nil {
		logger.Info().Msg("tyto shutting down")
		_ = logger.Close()
	}
	t.PluginManager.DestroyAll()
	metrics.SetMetricsReporters(nil)
}

// onReload receives the freshly loaded config from the reload bus.
func (t *Tyto) onReload(param any) {
	cfg, ok := param.(*config.TytoCfg)
	if !ok {
		return
	}
	t.applyConfig(cfg)
	log.Info().Str("level", cfg.Log.Level).Msg("configuration applied")
}

// applyConfig rebuilds the logger front-end from the log section and carries
// the existing appender instances over. Sinks keep their open files; only
// levels, overrides and caller capture change.
func (t *Tyto) applyConfig(cfg *config.TytoCfg) {
	logger := log.NewLogger(&cfg.Log)

	attached := 0
	for _, p := range t.PluginManager.GetPluginsOfType(plugin.Appender) {
		if a, ok := log.AppenderFromPlugin(p); ok {
			logger.AddAppender(a)
			attached++
		}
	}
	if attached == 0 {
		// A config without sinks still gets its output somewhere visible.
		logger.AddAppender(log.NewConsoleAppender())
	}

	log.SetDefaultLogger(logger)
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
}

// registerReporters hands every configured metrics plugin to the metrics
// package so counters and gauges start flowing.
func (t *Tyto) registerReporters() {
	for _, p := range t.PluginManager.GetPluginsOfType(plugin.Metrics) {
		if r, ok := p.(metrics.Reporter); ok {
			metrics.AddMetricsReporter(r)
		}
	}
}
