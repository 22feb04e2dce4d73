package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/jobs"
	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// EditRateLimit is the minimum interval between edits of a single tracked
// progress message (spec.md §4.5, §5 "Rate limiting").
const EditRateLimit = 500 * time.Millisecond

// trackedMessage is an in-flight progress/agent-response message this
// interface can still edit in place.
type trackedMessage struct {
	messageID  string
	channelID  string
	lastUpdate time.Time
}

// Sender is the subset of an interface's transport Router needs: sending a
// new message and, if supportsMessageEditing, editing one in place.
type Sender interface {
	SendMessage(ctx context.Context, channelID, text string) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, text string) error
	SupportsMessageEditing() bool
}

// UIUpdateFunc is notified with the current processing subset whenever it
// changes (spec.md §4.5 step 2, step 6).
type UIUpdateFunc func(processing map[string]jobs.ProgressEvent)

type bufferedCompletion struct {
	channelID string
	text      string
}

// Router applies spec.md §4.5's progress-routing and completion-ordering
// policy for a single interface identified by InterfaceType.
type Router struct {
	InterfaceType string

	store  TrackingStore
	sender Sender
	onUI   UIUpdateFunc

	mu               sync.Mutex
	processing       map[string]jobs.ProgressEvent // event id -> event, "processing" subset
	progressMessages map[string]*trackedMessage    // rootJobId -> tracked message
	agentMessages    map[string]*trackedMessage    // jobId -> tracked message (agent response tracking)

	processingInput bool
	activeChannel   string
	buffer          []bufferedCompletion
}

// NewRouter constructs a Router for the given interface.
func NewRouter(interfaceType string, store TrackingStore, sender Sender, onUI UIUpdateFunc) *Router {
	return &Router{
		InterfaceType:    interfaceType,
		store:            store,
		sender:           sender,
		onUI:             onUI,
		processing:       make(map[string]jobs.ProgressEvent),
		progressMessages: make(map[string]*trackedMessage),
		agentMessages:    make(map[string]*trackedMessage),
	}
}

// Subscribe attaches the Router to b's job-progress channel.
func (r *Router) Subscribe(b *bus.Bus) {
	b.Subscribe(jobs.ChannelJobProgress, r.InterfaceType, func(ctx context.Context, msg bus.Message) *bus.Response {
		event, ok := msg.Payload.(jobs.ProgressEvent)
		if !ok {
			return nil
		}
		r.HandleEvent(ctx, event)
		return nil
	})
}

// HandleEvent runs the full routing policy for one progress event
// (spec.md §4.5 steps 1-6).
func (r *Router) HandleEvent(ctx context.Context, event jobs.ProgressEvent) {
	// Step 1: interface filter.
	if event.Metadata.InterfaceType != "" && event.Metadata.InterfaceType != r.InterfaceType {
		return
	}

	// Step 2: state update.
	r.mu.Lock()
	r.processing[event.ID] = event
	r.mu.Unlock()
	r.notifyUI()

	targetChannel := event.Metadata.ChannelID // "" means background job

	switch event.Status {
	case jobs.StatusProcessing:
		r.handleProcessing(ctx, event, targetChannel)
	case jobs.StatusCompleted, jobs.StatusFailed:
		r.handleTerminal(ctx, event, targetChannel)
		r.scheduleCleanup(event.ID)
	}
}

func (r *Router) handleProcessing(ctx context.Context, event jobs.ProgressEvent, targetChannel string) {
	if r.sender == nil || !r.sender.SupportsMessageEditing() {
		return
	}

	text := formatProgress(event)

	r.mu.Lock()
	tracked := r.progressMessages[event.Metadata.RootJobID]
	if tracked == nil {
		tracked = r.agentMessages[event.JobID]
	}
	r.mu.Unlock()

	if tracked != nil {
		if time.Since(tracked.lastUpdate) >= EditRateLimit {
			if err := r.sender.EditMessage(ctx, tracked.channelID, tracked.messageID, text); err != nil {
				logger.Progress(r.InterfaceType).Error().Err(err).Msg("failed to edit progress message")
				return
			}
			r.mu.Lock()
			tracked.lastUpdate = time.Now()
			r.mu.Unlock()
		}
		return
	}

	if r.processingInput || targetChannel == "" {
		return
	}

	messageID, err := r.sender.SendMessage(ctx, targetChannel, text)
	if err != nil {
		logger.Progress(r.InterfaceType).Error().Err(err).Msg("failed to send progress message")
		return
	}
	r.mu.Lock()
	r.progressMessages[event.Metadata.RootJobID] = &trackedMessage{messageID: messageID, channelID: targetChannel, lastUpdate: time.Now()}
	r.mu.Unlock()
}

func (r *Router) handleTerminal(ctx context.Context, event jobs.ProgressEvent, targetChannel string) {
	text := formatCompletion(event)

	r.mu.Lock()
	tracked := r.agentMessages[event.JobID]
	rootKey := event.Metadata.RootJobID
	if tracked == nil {
		tracked = r.progressMessages[rootKey]
	}
	r.mu.Unlock()

	if tracked != nil {
		if err := r.sender.EditMessage(ctx, tracked.channelID, tracked.messageID, text); err != nil {
			logger.Progress(r.InterfaceType).Error().Err(err).Msg("failed to edit completion message")
		}
		r.mu.Lock()
		delete(r.agentMessages, event.JobID)
		delete(r.progressMessages, rootKey)
		r.mu.Unlock()
		return
	}

	if targetChannel == "" {
		// Background job: no chat output permitted (spec.md §3, §8 property 7).
		return
	}

	if r.processingInput {
		r.mu.Lock()
		r.buffer = append(r.buffer, bufferedCompletion{channelID: targetChannel, text: text})
		r.mu.Unlock()
		return
	}

	if r.sender != nil {
		if _, err := r.sender.SendMessage(ctx, targetChannel, text); err != nil {
			logger.Progress(r.InterfaceType).Error().Err(err).Msg("failed to send completion message")
		}
	}
}

// scheduleCleanup drops a terminal event from the processing map 500ms
// after it lands, then re-notifies the UI callback (spec.md §4.5 step 6).
func (r *Router) scheduleCleanup(eventID string) {
	time.AfterFunc(EditRateLimit, func() {
		r.mu.Lock()
		delete(r.processing, eventID)
		r.mu.Unlock()
		r.notifyUI()
	})
}

func (r *Router) notifyUI() {
	if r.onUI == nil {
		return
	}
	r.mu.Lock()
	snapshot := make(map[string]jobs.ProgressEvent, len(r.processing))
	for k, v := range r.processing {
		snapshot[k] = v
	}
	r.mu.Unlock()
	r.onUI(snapshot)
}

// StartProcessingInput marks the interface as busy handling user input for
// channelID; completion events that arrive before EndProcessingInput are
// buffered rather than sent immediately (spec.md §4.6 step 5, §4.5 "Input-
// processing lifecycle").
func (r *Router) StartProcessingInput(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processingInput = true
	r.activeChannel = channelID
}

// EndProcessingInput clears the processing flag and flushes any buffered
// completions in insertion order, each to its own recorded channel
// (spec.md §4.5, §8 invariant 9).
func (r *Router) EndProcessingInput(ctx context.Context) {
	r.mu.Lock()
	r.processingInput = false
	buffered := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	for _, b := range buffered {
		if r.sender != nil {
			if _, err := r.sender.SendMessage(ctx, b.channelID, b.text); err != nil {
				logger.Progress(r.InterfaceType).Error().Err(err).Msg("failed to flush buffered completion")
			}
		}
	}
}

// TrackAgentResponse records that the interface's own reply carries
// jobID/batchID, so a later completion for that job can be edited in place
// (spec.md §4.6 step 7).
func (r *Router) TrackAgentResponse(messageID, channelID, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentMessages[jobID] = &trackedMessage{messageID: messageID, channelID: channelID, lastUpdate: time.Now()}
}

// TrackJob records jobID/batchID ownership in the TrackingStore so future
// progress events whose jobId or rootJobId match are recognized as owned
// by this interface (spec.md §4.5 "Ownership check").
func (r *Router) TrackJob(ctx context.Context, key string, info any) error {
	return r.store.Put(ctx, key, JobTrackingEntry{Info: info, CreatedAt: time.Now()})
}

// OwnsJob reports whether either jobID or rootJobID is tracked by this
// interface — child jobs spawned by a tracked batch inherit ownership
// transparently (spec.md §4.5, §9 open question on rootJobId inheritance).
func (r *Router) OwnsJob(ctx context.Context, jobID, rootJobID string) (bool, error) {
	if jobID != "" {
		if ok, err := r.store.Has(ctx, jobID); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
	}
	if rootJobID != "" {
		return r.store.Has(ctx, rootJobID)
	}
	return false, nil
}

func formatProgress(event jobs.ProgressEvent) string {
	if event.Message != "" {
		if event.Progress != nil && event.Progress.Total > 0 {
			return fmt.Sprintf("%s (%d/%d)", event.Message, event.Progress.Current, event.Progress.Total)
		}
		return event.Message
	}
	return fmt.Sprintf("%s: working…", event.Metadata.OperationType)
}

func formatCompletion(event jobs.ProgressEvent) string {
	icon := "✅"
	verb := "completed"
	if event.Status == jobs.StatusFailed {
		icon = "❌"
		verb = "failed"
	}

	text := fmt.Sprintf("%s %s %s", icon, event.Metadata.OperationType, verb)
	if event.Metadata.OperationTarget != "" {
		text += " (" + event.Metadata.OperationTarget + ")"
	}
	if event.Message != "" {
		text += ": " + event.Message
	}
	return text
}
