// Package bus implements the plugin host's publish/subscribe message bus:
// subscriber lists keyed by channel name, fire-and-forget broadcast emit,
// and request/response delivery to the first handler that answers. The
// subscriber-map/prefix-free-emit shape is carried over from the teacher's
// event bus; request/response semantics and typed, schema-validated
// channels are new.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// Response is what a subscriber hands back when the bus is not broadcasting.
type Response struct {
	Success bool
	Data    any
	Error   string
}

// Handler is a bus subscriber. Returning a nil *Response means "no opinion":
// in request/response mode the bus moves on to the next subscriber; when
// broadcasting, every subscriber runs and all responses are ignored.
type Handler func(ctx context.Context, msg Message) *Response

// Message is the envelope delivered to every subscriber.
type Message struct {
	Channel   string
	Payload   any
	Source    string
	Target    string
	Metadata  map[string]any
	Broadcast bool
}

// queuedDelivery is one broadcast message waiting for a subscription's
// drain goroutine to process it.
type queuedDelivery struct {
	ctx context.Context
	msg Message
}

// subscription serializes broadcast deliveries to a single handler through
// an ordered queue: Send's broadcast path only ever appends to pending and
// starts a drain goroutine if one isn't already running, so two broadcasts
// to the same subscriber are always processed in the order they were sent
// (spec.md §5 "Message-bus delivery within a single channel preserves emit
// order to a given subscriber"), never concurrently and never out of order,
// while Send itself still returns immediately.
type subscription struct {
	owner   string
	handler Handler

	mu       sync.Mutex
	pending  []queuedDelivery
	draining bool
}

func (s *subscription) enqueue(ctx context.Context, msg Message) {
	s.mu.Lock()
	s.pending = append(s.pending, queuedDelivery{ctx: ctx, msg: msg})
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()
	go s.drain()
}

func (s *subscription) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		item := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		runHandler(item.ctx, s, item.msg)
	}
}

// Bus is a process-wide publish/subscribe hub. The zero value is not usable;
// construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]*subscription)}
}

// Subscribe registers handler under channel, owned by ownerID (a plugin id
// or "shell"). Subscribe is not idempotent: every call adds a new
// registration, even for a (channel, owner) pair that is already
// subscribed, and each registration gets its own delivery.
func (b *Bus) Subscribe(channel, ownerID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], &subscription{owner: ownerID, handler: handler})
}

// Unsubscribe removes every handler ownerID registered on channel.
func (b *Bus) Unsubscribe(channel, ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[channel]
	kept := subs[:0]
	for _, s := range subs {
		if s.owner != ownerID {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.subscribers, channel)
		return
	}
	b.subscribers[channel] = kept
}

// UnsubscribeAll removes every subscription owned by ownerID across every
// channel.
func (b *Bus) UnsubscribeAll(ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subs := range b.subscribers {
		kept := subs[:0]
		for _, s := range subs {
			if s.owner != ownerID {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subscribers, channel)
		} else {
			b.subscribers[channel] = kept
		}
	}
}

// Send delivers payload on channel. When broadcast is true, delivery to each
// subscriber is queued and fire-and-forget — Send returns immediately with a
// nil response — but deliveries to the same subscriber are drained strictly
// one at a time, in the order they were sent, so a slow earlier delivery can
// never be overtaken by a faster later one (spec.md §5). When broadcast is
// false, subscribers run in registration order on the calling goroutine
// until one returns a non-nil response; that response is returned to the
// caller. Panics inside a handler are recovered and logged, never
// propagated to the caller or to sibling handlers.
func (b *Bus) Send(ctx context.Context, channel string, payload any, source string, opts ...SendOption) *Response {
	cfg := sendConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	msg := Message{
		Channel:   channel,
		Payload:   payload,
		Source:    source,
		Target:    cfg.target,
		Metadata:  cfg.metadata,
		Broadcast: cfg.broadcast,
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subscribers[channel]))
	copy(subs, b.subscribers[channel])
	b.mu.RUnlock()

	if cfg.broadcast {
		for _, s := range subs {
			s.enqueue(ctx, msg)
		}
		return nil
	}

	for _, s := range subs {
		if resp := runHandlerSync(ctx, s, msg); resp != nil {
			return resp
		}
	}
	return nil
}

func runHandler(ctx context.Context, s *subscription, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Bus().Error().
				Str("channel", msg.Channel).
				Str("owner", s.owner).
				Interface("panic", r).
				Msg("recovered from panic in bus handler")
		}
	}()
	s.handler(ctx, msg)
}

func runHandlerSync(ctx context.Context, s *subscription, msg Message) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Bus().Error().
				Str("channel", msg.Channel).
				Str("owner", s.owner).
				Interface("panic", r).
				Msg("recovered from panic in bus handler")
			resp = &Response{Success: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return s.handler(ctx, msg)
}

type sendConfig struct {
	target    string
	metadata  map[string]any
	broadcast bool
}

// SendOption customizes a Send call.
type SendOption func(*sendConfig)

// WithTarget sets msg.Target. The target is advisory: the bus does not
// filter by it, so handlers check msg.Target themselves if they care.
func WithTarget(target string) SendOption {
	return func(c *sendConfig) { c.target = target }
}

// WithMetadata attaches free-form metadata to the message.
func WithMetadata(metadata map[string]any) SendOption {
	return func(c *sendConfig) { c.metadata = metadata }
}

// Broadcast fans the message out to every subscriber instead of
// short-circuiting on the first non-nil response.
func Broadcast() SendOption {
	return func(c *sendConfig) { c.broadcast = true }
}
