package config

import (
	"fmt"
	"os"

	"github.com/linchenxuan/tyto/log"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// TytoCfg is the root of the configuration file.
//
//	log:
//	  level: debug
//	  enabledCallerInfo: true
//	plugin:
//	  appender:
//	    rolling:
//	      path: /var/log/app.log
//	      tag: default
//
// The log section configures the logger front-end. The plugin section is kept
// as a raw map and handed to plugin.Manager.SetupPlugins, which decodes each
// instance block against its factory's config type.
type TytoCfg struct {
	Log    log.LogCfg     `mapstructure:"log"`
	Plugin map[string]any `mapstructure:"plugin"`
}

// LoadMap reads a YAML file into a raw nested map.
func LoadMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return raw, nil
}

// Load reads and validates a configuration file. The YAML is first parsed to
// a raw map, then decoded with mapstructure so the same tags drive file
// loading and plugin setup.
func Load(path string) (*TytoCfg, error) {
	raw, err := LoadMap(path)
	if err != nil {
		return nil, err
	}

	cfg := &TytoCfg{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: false,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if err := cfg.Log.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
