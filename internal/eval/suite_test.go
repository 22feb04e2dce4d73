package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/eval"
)

func TestLoadSuite_ParsesAgentAndPluginCases(t *testing.T) {
	doc := []byte(`
name: notes suite
tests:
  - name: greets back
    kind: agent
    conversation:
      - input: hello
        expectContains: hi
  - name: lists notes
    kind: plugin
    pluginId: notes
    handlerId: list
    input:
      tag: groceries
    expect:
      minItems: 1
      validateEach:
        - path: title
          exists: true
`)

	s, err := eval.LoadSuite(doc)
	require.NoError(t, err)

	assert.Equal(t, "notes suite", s.Name)
	require.Len(t, s.Tests, 2)

	agentCase := s.Tests[0]
	assert.Equal(t, eval.KindAgent, agentCase.Kind)
	require.Len(t, agentCase.Conversation, 1)
	assert.Equal(t, "hello", agentCase.Conversation[0].Input)
	assert.Equal(t, "hi", agentCase.Conversation[0].ExpectContains)

	pluginCase := s.Tests[1]
	assert.Equal(t, eval.KindPlugin, pluginCase.Kind)
	assert.Equal(t, "notes", pluginCase.PluginID)
	assert.Equal(t, "list", pluginCase.HandlerID)
	assert.Equal(t, "groceries", pluginCase.Input["tag"])
	require.NotNil(t, pluginCase.Expect.MinItems)
	assert.Equal(t, 1, *pluginCase.Expect.MinItems)
	require.Len(t, pluginCase.Expect.ValidateEach, 1)
	assert.Equal(t, "title", pluginCase.Expect.ValidateEach[0].Path)
}

func TestLoadSuite_InvalidYAMLErrors(t *testing.T) {
	_, err := eval.LoadSuite([]byte("not: [valid: yaml"))
	assert.Error(t, err)
}

func TestLoadSuite_EmptyDocumentYieldsZeroTests(t *testing.T) {
	s, err := eval.LoadSuite([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, s.Tests)
}
