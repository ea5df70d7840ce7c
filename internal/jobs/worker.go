package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/models"
)

// Start runs the worker pool and the background task runner until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (m *Manager) Start(ctx context.Context) error {
	log.Printf("[Worker] started with concurrency: %d", m.maxConcurrent)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.maxConcurrent; i++ {
		workerID := i + 1
		g.Go(func() error {
			m.runWorker(gctx, workerID)
			return nil
		})
	}
	g.Go(func() error {
		m.runBackgroundTasks(gctx)
		return nil
	})

	err := g.Wait()
	log.Println("[Worker] shutting down...")
	return err
}

// runWorker claims queued jobs and processes them one at a time. Idle
// workers sleep on the wake channel; the poll ticker catches any wake-up
// lost while all workers were busy.
func (m *Manager) runWorker(ctx context.Context, workerID int) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		job, ok := m.claimNext()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
			case <-ticker.C:
			}
			continue
		}
		m.process(ctx, workerID, job)
	}
}

// claimNext pops the oldest queued job and marks it processing. Pending
// entries whose record was cleaned up or already moved past queued are
// skipped.
func (m *Manager) claimNext() (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]

		job, ok := m.jobs[id]
		if !ok || job.Status != models.JobStatusQueued {
			continue
		}

		now := time.Now()
		job.Status = models.JobStatusProcessing
		job.StartedAt = &now
		return *job, true
	}
	return models.Job{}, false
}

// process runs one job through synthesis and storage. A panicking engine
// fails the job instead of killing the worker.
func (m *Manager) process(ctx context.Context, workerID int, job models.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Worker %d] panic processing job %s: %v", workerID, job.ID, r)
			m.fail(job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Printf("[Worker %d] processing job %s", workerID, job.ID)

	result, err := m.engine.Synthesize(ctx, job.Request)
	if err != nil {
		log.Printf("[Worker %d] job %s failed: %v", workerID, job.ID, err)
		m.fail(job.ID, err.Error())
		return
	}

	err = m.store.Save(job.ID, result.AudioData, artifacts.Metadata{
		Text:        models.PreviewText(job.Request.Text),
		Voice:       job.Request.Voice,
		Format:      result.Format,
		ContentType: result.ContentType,
		DurationMs:  result.DurationMs,
		CreatedAt:   job.CreatedAt,
	})
	if err != nil {
		log.Printf("[Worker %d] job %s failed: %v", workerID, job.ID, err)
		m.fail(job.ID, err.Error())
		return
	}

	m.complete(job.ID)
	log.Printf("[Worker %d] job %s completed successfully", workerID, job.ID)
}

// complete marks a job completed and releases its admission slot. The record
// may have been cleaned up mid-flight; then the slot is already released.
func (m *Manager) complete(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.FinishedAt = &now
	m.active--
}

// fail marks a job failed with a reason. Failures are terminal.
func (m *Manager) fail(jobID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Reason = reason
	job.FinishedAt = &now
	m.active--
}

// runBackgroundTasks drains the deferred-task queue.
func (m *Manager) runBackgroundTasks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-m.tasks:
			fn()
		}
	}
}
