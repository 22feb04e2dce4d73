package bus

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// Channel is a named, schema-validated bus channel. P is the payload type
// produced by publishers; R is the type a request/response handler returns.
// The schema is runtime-validated JSON Schema rather than a compile-time
// constraint, since Go generics erase P/R to interface satisfaction only
// (spec.md §9, "generics over dynamic typing").
type Channel[P, R any] struct {
	Name   string
	Schema *jsonschema.Schema
}

// TypedHandler receives an already-validated, already-decoded payload.
type TypedHandler[P, R any] func(ctx context.Context, payload P, msg Message) (R, error)

// NewChannel builds a Channel from a compiled JSON schema. Pass a nil schema
// to skip validation (useful for internal channels with no external
// producers).
func NewChannel[P, R any](name string, schema *jsonschema.Schema) Channel[P, R] {
	return Channel[P, R]{Name: name, Schema: schema}
}

// Subscribe registers a typed handler on the bus. Incoming payloads are
// validated against the channel's schema before being unmarshaled into P;
// on mismatch the bus logs a warning and the handler is never invoked — the
// sender gets back an unsuccessful Response with no data (spec.md §4.3, §7
// validation errors).
func Subscribe[P, R any](b *Bus, ch Channel[P, R], ownerID string, handler TypedHandler[P, R]) {
	b.Subscribe(ch.Name, ownerID, func(ctx context.Context, msg Message) *Response {
		payload, ok := decodeValidate[P](ch.Name, ch.Schema, msg.Payload)
		if !ok {
			return &Response{Success: false, Error: "payload failed schema validation"}
		}
		result, err := handler(ctx, payload, msg)
		if err != nil {
			return &Response{Success: false, Error: err.Error()}
		}
		return &Response{Success: true, Data: result}
	})
}

// Publish sends payload on the channel, broadcasting to every subscriber.
func Publish[P, R any](b *Bus, ctx context.Context, ch Channel[P, R], payload P, source string) {
	b.Send(ctx, ch.Name, payload, source, Broadcast())
}

// Request sends payload on the channel and returns the first subscriber's
// response, decoded as R.
func Request[P, R any](b *Bus, ctx context.Context, ch Channel[P, R], payload P, source string) (R, bool) {
	var zero R
	resp := b.Send(ctx, ch.Name, payload, source)
	if resp == nil || !resp.Success {
		return zero, false
	}
	if typed, ok := resp.Data.(R); ok {
		return typed, true
	}
	return zero, false
}

func decodeValidate[P any](channelName string, schema *jsonschema.Schema, raw any) (P, bool) {
	var zero P
	if schema != nil {
		asMap, err := toValidatable(raw)
		if err != nil {
			logger.Bus().Warn().Str("channel", channelName).Err(err).Msg("payload not representable for validation")
			return zero, false
		}
		if err := schema.Validate(asMap); err != nil {
			logger.Bus().Warn().Str("channel", channelName).Err(err).Msg("payload failed schema validation")
			return zero, false
		}
	}

	if typed, ok := raw.(P); ok {
		return typed, true
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var decoded P
	if err := json.Unmarshal(b, &decoded); err != nil {
		return zero, false
	}
	return decoded, true
}

func toValidatable(raw any) (any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
