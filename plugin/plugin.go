package plugin

// Type groups factories by the kind of component they build.
type Type string

const (
	// Appender plugins build log sinks (file, rolling, console).
	Appender Type = "appender"
	// Evaluator plugins build triggering-event evaluators for buffered sinks.
	Evaluator Type = "evaluator"
	// Metrics plugins build metric reporters.
	Metrics Type = "metrics"
)

// Factory builds plugin instances of one (type, name) flavor.
type Factory interface {
	// Type returns the plugin type.
	Type() Type
	// Name returns the name of the plugin implementation.
	Name() string
	// ConfigType returns an empty struct that represents the plugin's
	// configuration. The manager populates it with mapstructure before
	// Setup runs.
	ConfigType() any
	// Setup initializes a plugin instance based on the populated config.
	Setup(any) (Plugin, error)

	// Destroy releases an instance previously produced by Setup.
	Destroy(Plugin)
}

// Plugin is a built instance. FactoryName ties it back to the factory that
// produced it so the manager can route Destroy calls.
type Plugin interface {
	FactoryName() string
}
