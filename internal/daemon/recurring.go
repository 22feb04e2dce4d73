package daemon

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// RecurringScheduler wraps one process-wide cron.Cron shared by every
// plugin (SPEC_FULL.md §4.8a), adapted from the teacher's PluginScheduler:
// one shared background goroutine, per-plugin job-name bookkeeping, and
// panic-recovered job execution.
type RecurringScheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]map[string]cron.EntryID // pluginID -> jobName -> entryID
}

// NewRecurringScheduler constructs and starts a RecurringScheduler. The
// parser accepts an optional leading seconds field, matching the pack's
// cron.NewParser(cron.SecondOptional | ...) convention, so plugins that need
// sub-minute polling aren't forced into a minute-granularity cron string.
func NewRecurringScheduler() *RecurringScheduler {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(cron.WithParser(parser))
	c.Start()
	return &RecurringScheduler{cron: c, jobs: make(map[string]map[string]cron.EntryID)}
}

// Stop halts the underlying cron instance, waiting for in-flight jobs.
func (s *RecurringScheduler) Stop() {
	s.cron.Stop()
}

// Schedule registers fn under pluginID/jobName to run on cronExpr. A
// pre-existing job of the same name is replaced.
func (s *RecurringScheduler) Schedule(pluginID, jobName, cronExpr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byName, ok := s.jobs[pluginID]; ok {
		if existingID, ok := byName[jobName]; ok {
			s.cron.Remove(existingID)
			delete(byName, jobName)
		}
	}

	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Daemon().Error().Str("plugin", pluginID).Str("job", jobName).Interface("panic", r).Msg("recurring job panicked")
			}
		}()
		fn()
	}

	entryID, err := s.cron.AddFunc(cronExpr, wrapped)
	if err != nil {
		return fmt.Errorf("failed to schedule %s/%s: %w", pluginID, jobName, err)
	}

	if s.jobs[pluginID] == nil {
		s.jobs[pluginID] = make(map[string]cron.EntryID)
	}
	s.jobs[pluginID][jobName] = entryID
	return nil
}

// RemoveAll removes every recurring job owned by pluginID.
func (s *RecurringScheduler) RemoveAll(pluginID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range s.jobs[pluginID] {
		s.cron.Remove(entryID)
	}
	delete(s.jobs, pluginID)
}

// ListJobs returns the recurring job names owned by pluginID.
func (s *RecurringScheduler) ListJobs(pluginID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs[pluginID]))
	for name := range s.jobs[pluginID] {
		names = append(names, name)
	}
	return names
}
