package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/config"
	"github.com/rizom-ai/brains-sub000/internal/testkit"
)

func clearBrainsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BRAINS_HTTP_ADDR", "BRAINS_PLUGIN_DIR", "BRAINS_BUS_BUFFER_SIZE",
		"BRAINS_JOB_WORKERS", "BRAINS_PROGRESS_EDIT_INTERVAL", "BRAINS_JOB_TRACKING_TTL",
		"BRAINS_REDIS_ADDR", "BRAINS_REDIS_PASSWORD", "BRAINS_LOG_LEVEL", "BRAINS_LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestNewShell_WiresInMemoryCollaborators(t *testing.T) {
	s := newShell(&config.Config{PluginDir: "./plugins"})
	require.NotNil(t, s)
	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, s.Manager.ListFailed())
}

func TestAgentAdapter_DropsConversationIDBeforeDelegating(t *testing.T) {
	ai := testkit.NewFakeAIService()
	ai.Responses["hi"] = "hello there"
	adapter := agentAdapter{ai: ai}

	reply, err := adapter.Query(context.Background(), "conv-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestPluginsCmd_PrintsNoPluginsWhenNoneRegistered(t *testing.T) {
	clearBrainsEnv(t)
	cmd := newPluginsCmd()

	out := captureStdout(t, func() {
		require.NoError(t, cmd.RunE(cmd, nil))
	})
	assert.Empty(t, out)
}

func TestEvalCmd_MissingSuiteFlagErrors(t *testing.T) {
	cmd := newEvalCmd()
	err := cmd.RunE(cmd, nil)
	assert.Error(t, err)
}

func TestEvalCmd_AgentSuitePassesAgainstDefaultEchoAgent(t *testing.T) {
	clearBrainsEnv(t)
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
name: smoke
tests:
  - name: echoes back
    kind: agent
    conversation:
      - input: hello
        expectContains: "echo: hello"
`), 0o644))

	cmd := newEvalCmd()
	require.NoError(t, cmd.Flags().Set("suite", suitePath))

	var runErr error
	out := captureStdout(t, func() {
		runErr = cmd.RunE(cmd, nil)
	})

	require.NoError(t, runErr)
	assert.Contains(t, out, "PASS  echoes back")
	assert.Contains(t, out, "1/1 tests passed")
}

func TestEvalCmd_UnreadableSuiteFileErrors(t *testing.T) {
	clearBrainsEnv(t)
	cmd := newEvalCmd()
	require.NoError(t, cmd.Flags().Set("suite", filepath.Join(t.TempDir(), "missing.yaml")))

	err := cmd.RunE(cmd, nil)
	assert.Error(t, err)
}
