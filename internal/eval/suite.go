package eval

import (
	"gopkg.in/yaml.v3"
)

// Kind discriminates the two test shapes spec.md §6 describes.
type Kind string

const (
	KindAgent  Kind = "agent"
	KindPlugin Kind = "plugin"
)

// ConversationTurn is one exchange in an agent test.
type ConversationTurn struct {
	Input          string `yaml:"input"`
	ExpectContains string `yaml:"expectContains,omitempty"`
}

// PathCheck is one `validateEach` assertion (spec.md §6): exactly one of
// Exists, Equals, Matches should be set.
type PathCheck struct {
	Path    string `yaml:"path"`
	Exists  *bool  `yaml:"exists,omitempty"`
	Equals  any    `yaml:"equals,omitempty"`
	Matches string `yaml:"matches,omitempty"`
}

// Expectation is the structural assertion bundle a plugin test's output is
// checked against (spec.md §6).
type Expectation struct {
	ExactItems   *int        `yaml:"exactItems,omitempty"`
	MinItems     *int        `yaml:"minItems,omitempty"`
	MaxItems     *int        `yaml:"maxItems,omitempty"`
	ItemsContain []any       `yaml:"itemsContain,omitempty"`
	ValidateEach []PathCheck `yaml:"validateEach,omitempty"`
}

// TestCase is one YAML-declared test, either an end-to-end agent
// conversation or a direct plugin-handler invocation.
type TestCase struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Agent tests.
	InterfaceType string             `yaml:"interfaceType,omitempty"`
	Conversation  []ConversationTurn `yaml:"conversation,omitempty"`

	// Plugin tests.
	PluginID  string         `yaml:"pluginId,omitempty"`
	HandlerID string         `yaml:"handlerId,omitempty"`
	Input     map[string]any `yaml:"input,omitempty"`
	Expect    Expectation    `yaml:"expect,omitempty"`
}

// Suite is a named collection of test cases loaded from one YAML file.
type Suite struct {
	Name  string     `yaml:"name"`
	Tests []TestCase `yaml:"tests"`
}

// LoadSuite parses a YAML document into a Suite.
func LoadSuite(data []byte) (Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Suite{}, err
	}
	return s, nil
}
