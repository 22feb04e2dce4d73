// Package plugin defines the plugin identity types and the dependency-
// ordered Manager that drives their lifecycle (spec.md §3, §4.1). The
// manager has no teacher equivalent — the teacher's own "Known Limitations"
// section states plugins cannot depend on one another — so the fixed-point
// algorithm here is built fresh, grounded only on the teacher's
// RWMutex-guarded registry and goroutine-isolated lifecycle-event shape.
package plugin

import (
	"context"

	"github.com/rizom-ai/brains-sub000/internal/capabilities"
)

// Tier classifies a plugin's role and the context tier it receives.
type Tier string

const (
	TierCore      Tier = "core"
	TierService   Tier = "service"
	TierInterface Tier = "interface"
)

// Status is a PluginInfo's lifecycle state (spec.md §4.1 state machine).
type Status string

const (
	StatusRegistered  Status = "REGISTERED"
	StatusInitialized Status = "INITIALIZED"
	StatusError       Status = "ERROR"
	StatusDisabled    Status = "DISABLED"
)

// Context is the minimal surface register() needs: enough to build a
// tier-specific facade without the plugin package importing the shell
// package (which would create an import cycle, since the shell owns the
// Manager). Concrete Context construction lives in internal/pluginctx.
type Context any

// Plugin is the identity tuple every plugin implements (spec.md §3).
type Plugin interface {
	ID() string
	PackageName() string
	Version() string
	Tier() Tier
	Dependencies() []string
	Metadata() Metadata
	Register(ctx context.Context, shellCtx Context) (capabilities.Capabilities, error)
	Shutdown(ctx context.Context) error
}

// Info is the manager-owned lifecycle record for a registered plugin
// (spec.md §3 "PluginInfo"). Mutated only by the Manager.
type Info struct {
	Plugin       Plugin
	Status       Status
	Dependencies []string
	Err          error
}
