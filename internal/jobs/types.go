// Package jobs implements the job and batch scheduler: typed work items
// dispatched to registered handlers, rootJobId propagation for
// hierarchical tracking, and ProgressEvent emission on the bus (spec.md
// §4.4). Handler dispatch and panic-isolated goroutine execution are
// grounded on the teacher's EmitEvent dispatch loop in runtime.go; the
// batch/rootJobId model and progress metadata are new (the teacher has no
// job concept — only cron-scheduled callbacks).
package jobs

import (
	"context"
	"time"
)

// Status is a Job's lifecycle state (spec.md §3).
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Metadata carries the routing information a job needs for progress events
// to find their way back to the originating interface/channel (spec.md
// §3, §4.2 "ToolContext propagation").
type Metadata struct {
	OperationType   string
	PluginID        string
	InterfaceType   string // empty means no interface filter
	ChannelID       string // empty means background job: no chat output
	OperationTarget string
}

// Job is a unit of background work dispatched to a registered handler
// (spec.md §3).
type Job struct {
	ID         string
	Type       string
	Payload    any
	Source     string // pluginId that enqueued it
	RootJobID  string
	Status     Status
	Metadata   Metadata
	Error      string
	EnqueuedAt time.Time
}

// IsBackground reports whether this job must never produce chat output
// (spec.md §3, invariant on Metadata.ChannelID).
func (j Job) IsBackground() bool {
	return j.Metadata.ChannelID == ""
}

// EnqueueOptions customizes Enqueue/EnqueueBatch.
type EnqueueOptions struct {
	RootJobID string // preserved if set; defaults to the new job's own id
	Metadata  Metadata
}

// BatchOperation is one item handed to EnqueueBatch; Type and Data mirror a
// single job's Type/Payload before rootJobId/metadata are stamped onto it
// (spec.md §3).
type BatchOperation struct {
	Type string
	Data any
}

// ProgressPayload is the {current,total,percentage} triple a handler may
// report through a ProgressReporter.
type ProgressPayload struct {
	Current    int
	Total      int
	Percentage float64
}

// ProgressMetadata is the metadata carried on a ProgressEvent, per spec.md
// §3: it adds RootJobID to the fields a Job's own Metadata carries, since a
// job already stores its rootJobId separately.
type ProgressMetadata struct {
	OperationType   string
	PluginID        string
	RootJobID       string
	InterfaceType   string
	ChannelID       string
	OperationTarget string
}

// ProgressEvent is the typed message emitted on the "job-progress" bus
// channel for every job status transition (spec.md §3, §4.4).
type ProgressEvent struct {
	ID       string
	JobID    string
	Type     string
	Status   Status
	Message  string
	Progress *ProgressPayload
	Metadata ProgressMetadata
}

// JobContext is what a handler receives alongside the job payload.
type JobContext struct {
	JobID         string
	OperationType string
	RootJobID     string
	Metadata      Metadata
}

// ProgressReporter lets a handler emit intermediate progress without
// resolving the job's terminal status.
type ProgressReporter interface {
	Report(ctx context.Context, message string, progress *ProgressPayload)
}

// Handler processes one job's payload. Returning an error marks the job
// failed with the error's text as the failure message (spec.md §4.4
// "Retry & failure" — no automatic retry at this layer).
type Handler func(ctx context.Context, payload any, jc JobContext, reporter ProgressReporter) error
