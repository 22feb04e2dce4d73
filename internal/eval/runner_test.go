package eval_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/eval"
)

type scriptedQuerier struct {
	replies map[string]string
}

func (q scriptedQuerier) Query(ctx context.Context, conversationID, prompt string) (string, error) {
	if r, ok := q.replies[prompt]; ok {
		return r, nil
	}
	return "", fmt.Errorf("no scripted reply for %q", prompt)
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestRun_AgentTestPassesWhenReplyContainsExpected(t *testing.T) {
	runner := eval.NewRunner(nil, scriptedQuerier{replies: map[string]string{"hello": "hi there"}})
	suite := eval.Suite{Tests: []eval.TestCase{{
		Name: "greets back",
		Kind: eval.KindAgent,
		Conversation: []eval.ConversationTurn{
			{Input: "hello", ExpectContains: "hi"},
		},
	}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Empty(t, results[0].Failures)
}

func TestRun_AgentTestFailsWhenReplyMissesExpectedSubstring(t *testing.T) {
	runner := eval.NewRunner(nil, scriptedQuerier{replies: map[string]string{"hello": "goodbye"}})
	suite := eval.Suite{Tests: []eval.TestCase{{
		Name: "greets back",
		Kind: eval.KindAgent,
		Conversation: []eval.ConversationTurn{
			{Input: "hello", ExpectContains: "hi"},
		},
	}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	require.Len(t, results[0].Failures, 1)
	assert.Contains(t, results[0].Failures[0], "does not contain")
}

func TestRun_AgentTestWithoutConfiguredAgentFails(t *testing.T) {
	runner := eval.NewRunner(nil, nil)
	suite := eval.Suite{Tests: []eval.TestCase{{Name: "no agent", Kind: eval.KindAgent}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Failures[0], "no agent configured")
}

func TestRun_PluginTestValidatesItemCountAndFields(t *testing.T) {
	registry := eval.NewRegistry()
	registry.RegisterHandler("notes", "list", func(ctx context.Context, input map[string]any) (any, error) {
		return []any{
			map[string]any{"title": "Groceries", "tags": []any{"home"}},
			map[string]any{"title": "Taxes", "tags": []any{"finance"}},
		}, nil
	})
	runner := eval.NewRunner(registry, nil)

	suite := eval.Suite{Tests: []eval.TestCase{{
		Name:      "lists notes",
		Kind:      eval.KindPlugin,
		PluginID:  "notes",
		HandlerID: "list",
		Expect: eval.Expectation{
			ExactItems: intPtr(2),
			ValidateEach: []eval.PathCheck{
				{Path: "title", Exists: boolPtr(true)},
				{Path: "tags[0]", Matches: "^[a-z]+$"},
			},
		},
	}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed, "unexpected failures: %v", results[0].Failures)
}

func TestRun_PluginTestFailsOnItemCountMismatch(t *testing.T) {
	registry := eval.NewRegistry()
	registry.RegisterHandler("notes", "list", func(ctx context.Context, input map[string]any) (any, error) {
		return []any{map[string]any{"title": "only one"}}, nil
	})
	runner := eval.NewRunner(registry, nil)

	suite := eval.Suite{Tests: []eval.TestCase{{
		Name:      "expects two",
		Kind:      eval.KindPlugin,
		PluginID:  "notes",
		HandlerID: "list",
		Expect:    eval.Expectation{ExactItems: intPtr(2)},
	}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Failures[0], "expected exactly 2 items")
}

func TestRun_PluginTestHandlerErrorFailsWithMessage(t *testing.T) {
	registry := eval.NewRegistry()
	registry.RegisterHandler("notes", "list", func(ctx context.Context, input map[string]any) (any, error) {
		return nil, fmt.Errorf("db unavailable")
	})
	runner := eval.NewRunner(registry, nil)

	suite := eval.Suite{Tests: []eval.TestCase{{Name: "errors", Kind: eval.KindPlugin, PluginID: "notes", HandlerID: "list"}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Failures[0], "db unavailable")
}

func TestRun_PluginTestItemsContainChecksDeepEquality(t *testing.T) {
	registry := eval.NewRegistry()
	registry.RegisterHandler("notes", "list", func(ctx context.Context, input map[string]any) (any, error) {
		return []any{map[string]any{"title": "Groceries"}}, nil
	})
	runner := eval.NewRunner(registry, nil)

	suite := eval.Suite{Tests: []eval.TestCase{{
		Name:      "contains expected item",
		Kind:      eval.KindPlugin,
		PluginID:  "notes",
		HandlerID: "list",
		Expect: eval.Expectation{
			ItemsContain: []any{map[string]any{"title": "Groceries"}},
		},
	}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestRun_PluginTestNonSliceOutputFails(t *testing.T) {
	registry := eval.NewRegistry()
	registry.RegisterHandler("notes", "count", func(ctx context.Context, input map[string]any) (any, error) {
		return 42, nil
	})
	runner := eval.NewRunner(registry, nil)

	suite := eval.Suite{Tests: []eval.TestCase{{Name: "not a list", Kind: eval.KindPlugin, PluginID: "notes", HandlerID: "count"}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Failures[0], "not a list")
}

func TestRun_UnknownKindFails(t *testing.T) {
	runner := eval.NewRunner(eval.NewRegistry(), nil)
	suite := eval.Suite{Tests: []eval.TestCase{{Name: "weird", Kind: "bogus"}}}

	results := runner.Run(context.Background(), suite)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Failures[0], "unknown test kind")
}
