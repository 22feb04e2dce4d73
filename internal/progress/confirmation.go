package progress

import (
	"strings"
	"sync"
)

// PendingConfirmation is the interface-owned, per-conversation record that
// enables two-turn confirm/cancel flows (spec.md §3, §4.6).
type PendingConfirmation struct {
	ToolName    string
	Description string
	Args        map[string]any
}

// ConfirmationStore holds at most one PendingConfirmation per conversation
// (spec.md §3 invariant "within a single conversation, at most one
// PendingConfirmation exists").
type ConfirmationStore struct {
	mu      sync.Mutex
	pending map[string]PendingConfirmation // conversationKey -> pending
}

// NewConfirmationStore constructs an empty ConfirmationStore.
func NewConfirmationStore() *ConfirmationStore {
	return &ConfirmationStore{pending: make(map[string]PendingConfirmation)}
}

// Set records pc as the pending confirmation for conversationKey,
// replacing any existing one.
func (c *ConfirmationStore) Set(conversationKey string, pc PendingConfirmation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[conversationKey] = pc
}

// Get returns the pending confirmation for conversationKey, if any.
func (c *ConfirmationStore) Get(conversationKey string) (PendingConfirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc, ok := c.pending[conversationKey]
	return pc, ok
}

// Clear removes any pending confirmation for conversationKey.
func (c *ConfirmationStore) Clear(conversationKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, conversationKey)
}

// ConfirmationResult is the outcome of parsing a reply against a pending
// confirmation (spec.md §4.6).
type ConfirmationResult struct {
	Confirmed bool
}

var positiveReplies = map[string]bool{
	"yes": true, "y": true, "ok": true, "sure": true,
	"proceed": true, "confirm": true, "go": true,
}

var negativeReplies = map[string]bool{
	"no": true, "n": true, "cancel": true, "abort": true,
	"stop": true, "nope": true,
}

// ParseConfirmationResponse classifies a reply as confirmed, declined, or
// unrecognized (nil). Comparison is lowercased and trimmed; per spec.md
// §9's open-question decision, numeric-prefixed replies like "1. yes" are
// treated as unrecognized rather than parsed leniently.
func ParseConfirmationResponse(reply string) *ConfirmationResult {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	if positiveReplies[normalized] {
		return &ConfirmationResult{Confirmed: true}
	}
	if negativeReplies[normalized] {
		return &ConfirmationResult{Confirmed: false}
	}
	return nil
}
