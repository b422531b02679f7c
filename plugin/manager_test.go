package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockConfig is the structured config the mock factory expects.
type MockConfig struct {
	Level  string
	Output string
	Tag    string
}

// MockFactory counts Setup/Destroy calls so tests can watch the manager
// drive it.
type MockFactory struct {
	PType Type
	PName string

	SetupCount   int
	DestroyCount int
}

func (m *MockFactory) Type() Type   { return m.PType }
func (m *MockFactory) Name() string { return m.PName }
func (m *MockFactory) ConfigType() any {
	return &MockConfig{}
}
func (m *MockFactory) Setup(config any) (Plugin, error) {
	m.SetupCount++
	return &MockPlugin{FName: m.PName}, nil
}
func (m *MockFactory) Destroy(p Plugin) {
	m.DestroyCount++
}

// MockPlugin is a mock plugin instance for testing.
type MockPlugin struct {
	FName string
}

func (mp *MockPlugin) FactoryName() string {
	return mp.FName
}

func TestManager(t *testing.T) {
	factory := &MockFactory{PType: Appender, PName: "mocksink"}

	t.Run("RegisterFactory", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(factory)
		assert.NotNil(t, manager.factories[Appender])
		assert.Equal(t, factory, manager.factories[Appender]["mocksink"])
	})

	t.Run("SetupAndGetPlugins", func(t *testing.T) {
		manager := NewManager()

		pluginConf := map[string]any{
			"appender": map[string]any{
				"mocksink": map[string]any{
					"level":  "info",
					"output": "/var/log/mock.log",
					"tag":    "default",
				},
				"anothersink": map[string]any{
					"level": "debug",
				},
			},
		}

		anotherFactory := &MockFactory{PType: Appender, PName: "anothersink"}
		manager.RegisterFactory(anotherFactory)
		manager.RegisterFactory(factory)

		err := manager.SetupPlugins(pluginConf)
		assert.NoError(t, err)

		p, err := manager.GetPlugin(Appender, "default")
		assert.NoError(t, err)
		assert.NotNil(t, p)
		assert.IsType(t, &MockPlugin{}, p)

		dp, err := manager.GetDefaultPlugin(Appender)
		assert.NoError(t, err)
		assert.IsType(t, &MockPlugin{}, dp)
		assert.Equal(t, p, dp)

		np, err := manager.GetPlugin(Appender, "anothersink")
		assert.NoError(t, err)
		assert.NotNil(t, np)

		all := manager.GetPluginsOfType(Appender)
		assert.Len(t, all, 2)
	})

	t.Run("ErrorOnDuplicateTag", func(t *testing.T) {
		manager := NewManager()

		manager.RegisterFactory(&MockFactory{PType: Appender, PName: "sink1"})
		manager.RegisterFactory(&MockFactory{PType: Appender, PName: "sink2"})

		pluginConf := map[string]any{
			"appender": map[string]any{
				"sink1": map[string]any{
					"tag": "default",
				},
				"sink2": map[string]any{
					"tag": "default",
				},
			},
		}

		err := manager.SetupPlugins(pluginConf)
		assert.ErrorIs(t, err, ErrDuplicatePlugin)
	})

	t.Run("ErrorOnMissingFactory", func(t *testing.T) {
		manager := NewManager()

		manager.RegisterFactory(&MockFactory{PType: Appender, PName: "realsink"})

		pluginConf := map[string]any{
			"appender": map[string]any{
				"nonexistent": map[string]any{},
			},
		}
		err := manager.SetupPlugins(pluginConf)
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("UnknownTypeSectionIgnored", func(t *testing.T) {
		manager := NewManager()
		pluginConf := map[string]any{
			"transport": map[string]any{
				"tcp": map[string]any{},
			},
		}
		err := manager.SetupPlugins(pluginConf)
		assert.NoError(t, err)
	})
}

func TestManagerConfigDecoding(t *testing.T) {
	mockConfigFactory := &MockFactory{PType: Evaluator, PName: "mockeval"}

	t.Run("SuccessfulDecoding", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(mockConfigFactory)

		pluginConf := map[string]any{
			"evaluator": map[string]any{
				"mockeval": map[string]any{
					"Level":  "info",
					"Output": "stdout",
				},
			},
		}
		err := manager.SetupPlugins(pluginConf)
		assert.NoError(t, err)
	})

	t.Run("FailedDecoding_InvalidType", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(mockConfigFactory)

		pluginConf := map[string]any{
			"evaluator": map[string]any{
				"mockeval": map[string]any{
					"Level":  123,
					"Output": "stdout",
				},
			},
		}
		err := manager.SetupPlugins(pluginConf)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigDecode)
	})

	t.Run("FailedDecoding_InvalidFormat", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(mockConfigFactory)

		pluginConf := map[string]any{
			"evaluator": "not-a-map",
		}
		err := manager.SetupPlugins(pluginConf)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfigFormat)
	})
}

func TestManagerDestroyAll(t *testing.T) {
	manager := NewManager()
	factory := &MockFactory{PType: Appender, PName: "mocksink"}
	manager.RegisterFactory(factory)

	pluginConf := map[string]any{
		"appender": map[string]any{
			"mocksink": map[string]any{"tag": "default"},
		},
	}
	assert.NoError(t, manager.SetupPlugins(pluginConf))
	assert.Equal(t, 1, factory.SetupCount)

	manager.DestroyAll()
	assert.Equal(t, 1, factory.DestroyCount)

	_, err := manager.GetDefaultPlugin(Appender)
	assert.ErrorIs(t, err, ErrPluginNotFound)

	// Factories survive teardown; a second setup round works.
	assert.NoError(t, manager.SetupPlugins(pluginConf))
	assert.Equal(t, 2, factory.SetupCount)
	manager.DestroyAll()
	assert.Equal(t, 2, factory.DestroyCount)
}
