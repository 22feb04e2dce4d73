package eval

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// AgentQuerier is the narrow collaborator an agent test drives; satisfied
// by pluginctx.AgentService.
type AgentQuerier interface {
	Query(ctx context.Context, conversationID, prompt string) (string, error)
}

// Result is the outcome of running one TestCase.
type Result struct {
	Name     string
	Passed   bool
	Failures []string
}

// Runner executes a Suite's test cases against a Registry (plugin tests)
// and an AgentQuerier (agent tests).
type Runner struct {
	Registry *Registry
	Agent    AgentQuerier
}

// NewRunner constructs a Runner.
func NewRunner(registry *Registry, agent AgentQuerier) *Runner {
	return &Runner{Registry: registry, Agent: agent}
}

// Run executes every case in s and returns one Result per case, in order.
func (r *Runner) Run(ctx context.Context, s Suite) []Result {
	results := make([]Result, 0, len(s.Tests))
	for _, tc := range s.Tests {
		results = append(results, r.runOne(ctx, tc))
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, tc TestCase) Result {
	switch tc.Kind {
	case KindAgent:
		return r.runAgentTest(ctx, tc)
	case KindPlugin:
		return r.runPluginTest(ctx, tc)
	default:
		return Result{Name: tc.Name, Failures: []string{fmt.Sprintf("unknown test kind %q", tc.Kind)}}
	}
}

func (r *Runner) runAgentTest(ctx context.Context, tc TestCase) Result {
	if r.Agent == nil {
		return Result{Name: tc.Name, Failures: []string{"no agent configured"}}
	}

	conversationID := "eval:" + tc.Name
	var failures []string
	for i, turn := range tc.Conversation {
		reply, err := r.Agent.Query(ctx, conversationID, turn.Input)
		if err != nil {
			failures = append(failures, fmt.Sprintf("turn %d: query failed: %v", i, err))
			continue
		}
		if turn.ExpectContains != "" && !strings.Contains(reply, turn.ExpectContains) {
			failures = append(failures, fmt.Sprintf("turn %d: reply %q does not contain %q", i, reply, turn.ExpectContains))
		}
	}

	return Result{Name: tc.Name, Passed: len(failures) == 0, Failures: failures}
}

func (r *Runner) runPluginTest(ctx context.Context, tc TestCase) Result {
	if r.Registry == nil {
		return Result{Name: tc.Name, Failures: []string{"no registry configured"}}
	}

	output, err := r.Registry.Invoke(ctx, tc.PluginID, tc.HandlerID, tc.Input)
	if err != nil {
		return Result{Name: tc.Name, Failures: []string{fmt.Sprintf("handler failed: %v", err)}}
	}

	items, ok := asItems(output)
	if !ok {
		return Result{Name: tc.Name, Failures: []string{fmt.Sprintf("handler output is not a list: %T", output)}}
	}

	failures := validateExpectation(tc.Expect, items)
	return Result{Name: tc.Name, Passed: len(failures) == 0, Failures: failures}
}

func validateExpectation(exp Expectation, items []any) []string {
	var failures []string

	if exp.ExactItems != nil && len(items) != *exp.ExactItems {
		failures = append(failures, fmt.Sprintf("expected exactly %d items, got %d", *exp.ExactItems, len(items)))
	}
	if exp.MinItems != nil && len(items) < *exp.MinItems {
		failures = append(failures, fmt.Sprintf("expected at least %d items, got %d", *exp.MinItems, len(items)))
	}
	if exp.MaxItems != nil && len(items) > *exp.MaxItems {
		failures = append(failures, fmt.Sprintf("expected at most %d items, got %d", *exp.MaxItems, len(items)))
	}

	for _, want := range exp.ItemsContain {
		found := false
		for _, item := range items {
			if reflect.DeepEqual(item, want) {
				found = true
				break
			}
		}
		if !found {
			failures = append(failures, fmt.Sprintf("expected items to contain %v", want))
		}
	}

	for _, check := range exp.ValidateEach {
		for i, item := range items {
			if msg := runPathCheck(check, item); msg != "" {
				failures = append(failures, fmt.Sprintf("item %d: %s", i, msg))
			}
		}
	}

	return failures
}

func runPathCheck(check PathCheck, item any) string {
	value, exists := lookupPath(item, check.Path)

	if check.Exists != nil {
		if exists != *check.Exists {
			return fmt.Sprintf("path %q exists=%v, want %v", check.Path, exists, *check.Exists)
		}
		return ""
	}

	if check.Equals != nil {
		if !exists || !reflect.DeepEqual(value, check.Equals) {
			return fmt.Sprintf("path %q = %v, want %v", check.Path, value, check.Equals)
		}
		return ""
	}

	if check.Matches != "" {
		if !exists {
			return fmt.Sprintf("path %q does not exist", check.Path)
		}
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("path %q is not a string, got %T", check.Path, value)
		}
		re, err := regexp.Compile(check.Matches)
		if err != nil {
			return fmt.Sprintf("invalid pattern %q: %v", check.Matches, err)
		}
		if !re.MatchString(s) {
			return fmt.Sprintf("path %q = %q does not match %q", check.Path, s, check.Matches)
		}
		return ""
	}

	return ""
}

// asItems coerces a handler's output to []any via reflection, so handlers
// may return []any, []map[string]any, or any other slice type.
func asItems(output any) ([]any, bool) {
	if output == nil {
		return nil, true
	}
	if items, ok := output.([]any); ok {
		return items, true
	}

	v := reflect.ValueOf(output)
	if v.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}
