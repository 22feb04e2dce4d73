package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// FrameType distinguishes the kinds of frames the web interface pushes
// down a channel's WebSocket connections.
type FrameType string

const (
	FrameMessage  FrameType = "message"
	FrameEdit     FrameType = "edit"
	FrameProgress FrameType = "progress"
)

// Frame is the JSON envelope sent over the wire. Message/MessageID are
// set for FrameMessage/FrameEdit; Event is set for FrameProgress.
type Frame struct {
	Type      FrameType          `json:"type"`
	ChannelID string             `json:"channelId"`
	MessageID string             `json:"messageId,omitempty"`
	Text      string             `json:"text,omitempty"`
	Event     *jobs.ProgressEvent `json:"event,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Transport is the web interface's progress.Sender implementation: it
// assigns synthetic message ids and pushes Frames through a Hub instead
// of calling out to a chat-platform API. It also forwards raw
// jobs.ProgressEvent notifications for interfaces that want to render
// live progress bars rather than text updates.
type Transport struct {
	hub *Hub

	mu     sync.Mutex
	nextID int
}

// NewTransport wires a Transport to hub.
func NewTransport(hub *Hub) *Transport {
	return &Transport{hub: hub}
}

// SendMessage implements progress.Sender by broadcasting a FrameMessage
// to every client on channelID.
func (t *Transport) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	id := t.newMessageID()
	frame := Frame{Type: FrameMessage, ChannelID: channelID, MessageID: id, Text: text, Timestamp: time.Now()}
	t.emit(channelID, frame)
	return id, nil
}

// EditMessage implements progress.Sender by broadcasting a FrameEdit
// referencing messageID.
func (t *Transport) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	frame := Frame{Type: FrameEdit, ChannelID: channelID, MessageID: messageID, Text: text, Timestamp: time.Now()}
	t.emit(channelID, frame)
	return nil
}

// SupportsMessageEditing reports true: browser clients can replace a
// rendered message by id, unlike platforms with no edit API.
func (t *Transport) SupportsMessageEditing() bool { return true }

// PushProgress forwards a raw progress event to channelID's clients, for
// interfaces that render progress bars/spinners directly instead of
// relying on Router's text-message buffering.
func (t *Transport) PushProgress(channelID string, event jobs.ProgressEvent) {
	t.emit(channelID, Frame{Type: FrameProgress, ChannelID: channelID, Event: &event, Timestamp: time.Now()})
}

// OnUIUpdate adapts Transport to progress.UIUpdateFunc: every event in the
// processing map is pushed to its own ChannelID's clients, so a browser
// tab only sees progress for the job it triggered.
func (t *Transport) OnUIUpdate(processing map[string]jobs.ProgressEvent) {
	for _, event := range processing {
		if event.Metadata.ChannelID == "" {
			continue
		}
		t.PushProgress(event.Metadata.ChannelID, event)
	}
}

func (t *Transport) emit(channelID string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Manager().Error().Err(err).Msg("failed to marshal websocket frame")
		return
	}
	t.hub.BroadcastToChannel(channelID, payload)
}

func (t *Transport) newMessageID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return fmt.Sprintf("ws-%d", t.nextID)
}
