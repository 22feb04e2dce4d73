// Package eval implements the evaluation harness spec.md §6 describes: a
// handler registry indexed by (pluginId, handlerId) that YAML test cases
// invoke directly, plus a runner for two kinds of tests — end-to-end agent
// conversations and direct plugin-handler invocations with structural
// output assertions. No teacher file does this; grounded directly on
// spec.md §6 and §8's testable-properties phrasing.
package eval

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc is a plugin-exposed, directly invocable evaluation handler.
type HandlerFunc func(ctx context.Context, input map[string]any) (any, error)

// Registry is the process-wide evalHandlerRegistry, indexed by
// "pluginId/handlerId" (spec.md §6).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func key(pluginID, handlerID string) string {
	return pluginID + "/" + handlerID
}

// RegisterHandler registers h under (pluginID, handlerID), satisfying
// pluginctx.EvalHandlerRegistry. A duplicate registration overwrites —
// handlers are re-declared fresh on every process start, same as
// capability registries.
func (r *Registry) RegisterHandler(pluginID, handlerID string, h func(ctx context.Context, input map[string]any) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key(pluginID, handlerID)] = h
}

// Invoke calls the handler registered for (pluginID, handlerID).
func (r *Registry) Invoke(ctx context.Context, pluginID, handlerID string, input map[string]any) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[key(pluginID, handlerID)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("eval: no handler registered for %s/%s", pluginID, handlerID)
	}
	return h(ctx, input)
}
