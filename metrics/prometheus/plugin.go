package prometheus

import (
	"fmt"

	"github.com/linchenxuan/tyto/plugin"
)

type factory struct{}

// NewFactory creates a Prometheus reporter plugin factory.
func NewFactory() plugin.Factory {
	return &factory{}
}

// Type returns the plugin type.
func (f *factory) Type() plugin.Type {
	return plugin.Metrics
}

// Name returns the name of the plugin implementation.
func (f *factory) Name() string {
	return "prometheus"
}

// ConfigType returns an empty struct that represents the plugin's configuration.
// This struct will be populated by the manager using mapstructure.
func (f *factory) ConfigType() any {
	return &Config{}
}

// Setup initializes a reporter instance based on the configuration.
func (f *factory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*Config)
	if !ok {
		return nil, fmt.Errorf("prometheus setup: unexpected config type %T", cfgAny)
	}

	p := NewReporter(cfg)
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("prometheus setup: %w", err)
	}
	return p, nil
}

// Destroy stops the reporter instance.
func (f *factory) Destroy(p plugin.Plugin) {
	if prom, ok := p.(*Reporter); ok {
		prom.Stop()
	}
}
