// Package msginterface is the shared base chat-like interface plugins
// (CLI, Matrix, Slack, …) embed to get the input pipeline spec.md §4.6
// describes, instead of re-implementing routing, tracking, and
// confirmation handling per transport. No single teacher file does this —
// the teacher has no chat-interface concept — so the pipeline itself is
// built fresh from spec.md, but the "Base struct with overridable no-op
// hooks" shape is grounded on the teacher's plugins.BasePlugin.
package msginterface

import (
	"context"
	"strings"
	"time"
)

// Identity is the minimal addressing triple every chat message carries.
type Identity struct {
	InterfaceType string
	ChannelID     string
	UserID        string
}

// MessageContext is the fully normalized context an inbound message
// carries once Base.Normalize has run (spec.md §4.6 step 1).
type MessageContext struct {
	Identity
	Timestamp       time.Time
	PermissionLevel string
	ConversationID  string
}

// PartialContext is what a transport adapter has on hand before
// normalization: identity only, nothing resolved yet.
type PartialContext struct {
	Identity
}

// InboundMessage is one user message arriving on a channel.
type InboundMessage struct {
	Text    string
	Context MessageContext
}

// Direct reports whether this is a one-to-one conversation rather than a
// shared channel (e.g. a DM).
func (c MessageContext) Direct() bool {
	return strings.HasPrefix(c.ChannelID, "dm:")
}

// IsCommand reports whether text is a "/cmd args…" invocation, and splits
// it into the command name and argument list.
func IsCommand(text string) (name string, args []string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", nil, false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// mentionsBot reports whether text references any of the given bot names
// (spec.md §4.6 step 4 default shouldRespond rule).
func mentionsBot(text string, botNames []string) bool {
	lower := strings.ToLower(text)
	for _, name := range botNames {
		if name == "" {
			continue
		}
		if strings.Contains(lower, "@"+strings.ToLower(name)) || strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// Hooks lets a transport adapter customize the pipeline's subclass-facing
// extension points; DefaultHooks implements spec.md §4.6's defaults.
type Hooks interface {
	ShouldRespond(msg InboundMessage) bool
	ShowThinking(ctx context.Context, mc MessageContext)
	ShowDone(ctx context.Context, mc MessageContext)
}

// DefaultHooks implements Hooks with spec.md §4.6 step 4's default
// shouldRespond rule ("direct message, or mentions the bot") and no-op
// thinking/done indicators.
type DefaultHooks struct {
	BotNames []string
}

// ShouldRespond is true for direct messages or messages mentioning one of
// BotNames ("@bot", "brain", the plugin id, …).
func (h DefaultHooks) ShouldRespond(msg InboundMessage) bool {
	if msg.Context.Direct() {
		return true
	}
	return mentionsBot(msg.Text, h.BotNames) || mentionsBot(msg.Text, []string{"bot", "brain"})
}

// ShowThinking is a no-op by default; transports with a typing indicator
// override it.
func (h DefaultHooks) ShowThinking(ctx context.Context, mc MessageContext) {}

// ShowDone is a no-op by default.
func (h DefaultHooks) ShowDone(ctx context.Context, mc MessageContext) {}
