package jobs

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/rizom-ai/brains-sub000/internal/bus"
	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// ChannelJobProgress is the bus channel every ProgressEvent is published on
// (spec.md §3, §6).
const ChannelJobProgress = "job-progress"

// Scheduler dispatches enqueued jobs to registered handlers and emits
// progress events for every status transition.
type Scheduler struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	jobs     map[string]*Job
	batches  map[string][]string // batchId -> child job ids

	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy

	bus *bus.Bus
}

// NewScheduler constructs a Scheduler publishing progress events on b.
func NewScheduler(b *bus.Bus) *Scheduler {
	return &Scheduler{
		handlers:  make(map[string]Handler),
		jobs:      make(map[string]*Job),
		batches:   make(map[string][]string),
		idEntropy: ulid.Monotonic(rand.Reader, 0),
		bus:       b,
	}
}

// RegisterHandler records a handler for a fully-scoped job type. Tier
// helpers are responsible for prepending "pluginId:" before calling this
// (spec.md §4.2).
func (s *Scheduler) RegisterHandler(jobType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
}

func (s *Scheduler) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(nowFn()), s.idEntropy).String()
}

// Enqueue creates a job of the given type and dispatches it asynchronously.
// If opts.RootJobID is unset, it defaults to the new job's own id (spec.md
// §4.4).
func (s *Scheduler) Enqueue(ctx context.Context, jobType string, payload any, opts EnqueueOptions) string {
	id := s.newID()
	rootID := opts.RootJobID
	if rootID == "" {
		rootID = id
	}

	job := &Job{
		ID:        id,
		Type:      jobType,
		Payload:   payload,
		Source:    opts.Metadata.PluginID,
		RootJobID: rootID,
		Status:    StatusQueued,
		Metadata:  opts.Metadata,
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	go s.dispatch(ctx, id)
	return id
}

// EnqueueBatch creates one job per operation, all sharing rootJobId =
// batchId, and dispatches them in the given order (spec.md §3, §4.2). Child
// job types are expected to already be fully scoped by the caller (tier
// helpers apply the "pluginId:" prefix before calling this).
func (s *Scheduler) EnqueueBatch(ctx context.Context, ops []BatchOperation, batchID, pluginID string, baseMetadata Metadata) []string {
	ids := make([]string, 0, len(ops))
	childMetadata := baseMetadata
	childMetadata.PluginID = pluginID
	childMetadata.OperationType = "batch_processing"

	s.mu.Lock()
	for _, op := range ops {
		id := s.newID()
		job := &Job{
			ID:        id,
			Type:      op.Type,
			Payload:   op.Data,
			Source:    pluginID,
			RootJobID: batchID,
			Status:    StatusQueued,
			Metadata:  childMetadata,
		}
		s.jobs[id] = job
		ids = append(ids, id)
	}
	s.batches[batchID] = append(s.batches[batchID], ids...)
	s.mu.Unlock()

	for _, id := range ids {
		go s.dispatch(ctx, id)
	}
	return ids
}

// Get returns a copy of a job's current state.
func (s *Scheduler) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Active returns every job currently queued or processing.
func (s *Scheduler) Active() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Job
	for _, j := range s.jobs {
		if j.Status == StatusQueued || j.Status == StatusProcessing {
			out = append(out, *j)
		}
	}
	return out
}

// Batch returns every job belonging to batchID, in dispatched order.
func (s *Scheduler) Batch(batchID string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.batches[batchID]
	out := make([]Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := s.jobs[id]; ok {
			out = append(out, *j)
		}
	}
	return out
}

func (s *Scheduler) dispatch(ctx context.Context, id string) {
	s.mu.Lock()
	job := s.jobs[id]
	job.Status = StatusProcessing
	s.mu.Unlock()

	s.publishProgress(ctx, job, StatusProcessing, "", nil)

	s.mu.RLock()
	handler, ok := s.handlers[job.Type]
	s.mu.RUnlock()

	if !ok {
		s.finish(ctx, job, StatusFailed, fmt.Sprintf("no handler registered for job type %q", job.Type))
		return
	}

	reporter := &reporterImpl{s: s, job: job}
	jc := JobContext{JobID: job.ID, OperationType: job.Metadata.OperationType, RootJobID: job.RootJobID, Metadata: job.Metadata}

	err := s.runHandler(ctx, handler, job.Payload, jc, reporter)
	if err != nil {
		s.finish(ctx, job, StatusFailed, err.Error())
		return
	}
	s.finish(ctx, job, StatusCompleted, "")
}

func (s *Scheduler) runHandler(ctx context.Context, h Handler, payload any, jc JobContext, reporter ProgressReporter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Jobs().Error().Str("job", jc.JobID).Interface("panic", r).Msg("recovered from panic in job handler")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, payload, jc, reporter)
}

func (s *Scheduler) finish(ctx context.Context, job *Job, status Status, errMsg string) {
	s.mu.Lock()
	job.Status = status
	job.Error = errMsg
	s.mu.Unlock()

	s.publishProgress(ctx, job, status, errMsg, nil)
}

func (s *Scheduler) publishProgress(ctx context.Context, job *Job, status Status, message string, progress *ProgressPayload) {
	if s.bus == nil {
		return
	}
	event := ProgressEvent{
		ID:       uuid.NewString(),
		JobID:    job.ID,
		Type:     job.Type,
		Status:   status,
		Message:  message,
		Progress: progress,
		Metadata: ProgressMetadata{
			OperationType:   job.Metadata.OperationType,
			PluginID:        job.Metadata.PluginID,
			RootJobID:       job.RootJobID,
			InterfaceType:   job.Metadata.InterfaceType,
			ChannelID:       job.Metadata.ChannelID,
			OperationTarget: job.Metadata.OperationTarget,
		},
	}
	s.bus.Send(ctx, ChannelJobProgress, event, "job-scheduler", bus.Broadcast())
}

type reporterImpl struct {
	s   *Scheduler
	job *Job
}

func (r *reporterImpl) Report(ctx context.Context, message string, progress *ProgressPayload) {
	r.s.publishProgress(ctx, r.job, StatusProcessing, message, progress)
}

// nowFn is overridable in tests; production code never calls time.Now
// directly here so ulid timestamps stay swappable.
var nowFn = defaultNow
