package plugin

import "github.com/rizom-ai/brains-sub000/internal/validator"

// Metadata is a plugin's static identity, trimmed from the teacher's
// models.PluginManifest down to the fields spec.md §3 actually requires
// (name, version, dependency list) plus the descriptive fields plugins
// commonly declare for a help/about surface. Catalog-only concerns —
// ratings, install counts, config schemas, repository provenance — belong
// to a marketplace this host does not have, and were dropped.
type Metadata struct {
	// Name is the plugin id, also used as its namespacing prefix
	// (spec.md §4.2). Lowercase, hyphens, no spaces.
	Name string `json:"name" validate:"required,lowercase,min=2,max=64"`

	// Version is the plugin's semantic version.
	Version string `json:"version" validate:"required,min=1,max=32"`

	// DisplayName is shown in help text and the about command.
	DisplayName string `json:"displayName" validate:"omitempty,max=80"`

	// Description explains what the plugin does.
	Description string `json:"description" validate:"omitempty,max=500"`

	// Author is the plugin developer.
	Author string `json:"author" validate:"omitempty,max=120"`

	// Tier must match one of the three plugin tiers.
	Tier string `json:"tier" validate:"required,oneof=core service interface"`

	// Dependencies lists the ids of plugins that must be INITIALIZED
	// before this one.
	Dependencies []string `json:"dependencies" validate:"dive,required"`

	// Permissions lists capability-gated permission names this plugin
	// intends to use (spec.md §6 "Permission model").
	Permissions []string `json:"permissions,omitempty" validate:"dive,required"`
}

// Validate runs struct-level validation over m and returns a field-keyed
// error map, or nil if m is well-formed.
func (m Metadata) Validate() map[string]string {
	return validator.ValidateRequest(m)
}
