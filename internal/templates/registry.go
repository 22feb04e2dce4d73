// Package templates implements the template registry: write-once-per-key
// storage for the {name, schema, basePrompt, formatter, requiredPermission}
// records plugins register (spec.md §3, §4.2). Templates are registered
// under "pluginId:name" the same way job handlers and daemons are.
package templates

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Formatter converts between a template's typed data and its rendered
// string form. Parse(Format(d)) must round-trip for any d valid under the
// template's schema (spec.md §8).
type Formatter struct {
	Format func(data map[string]any) (string, error)
	Parse  func(formatted string) (map[string]any, error)
}

// Template is a named, schema-described content shape a plugin contributes
// to the content service (an external collaborator that resolves these by
// name).
type Template struct {
	Name               string
	Description        string
	Schema             *jsonschema.Schema
	BasePrompt         string
	Formatter          Formatter
	RequiredPermission string
}

// Registry is a write-once-per-key store of templates keyed by
// "pluginId:name". A second registration under the same key is an error
// (spec.md §5 "Shared resources").
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// Register adds tpl under "pluginId:tpl.Name". Returns an error if the key
// is already taken.
func (r *Registry) Register(pluginID string, tpl Template) error {
	key := pluginID + ":" + tpl.Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[key]; exists {
		return fmt.Errorf("template %q already registered", key)
	}
	r.templates[key] = tpl
	return nil
}

// Get looks up a template by its fully-scoped "pluginId:name" key.
func (r *Registry) Get(key string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[key]
	return tpl, ok
}

// Format renders data through the named template's formatter.
func (r *Registry) Format(key string, data map[string]any) (string, error) {
	tpl, ok := r.Get(key)
	if !ok {
		return "", fmt.Errorf("template %q not found", key)
	}
	return tpl.Formatter.Format(data)
}

// Parse recovers structured data from a formatted string using the named
// template's formatter.
func (r *Registry) Parse(key, formatted string) (map[string]any, error) {
	tpl, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("template %q not found", key)
	}
	return tpl.Formatter.Parse(formatted)
}
