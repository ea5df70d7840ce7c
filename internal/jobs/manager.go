package jobs

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/models"
	"github.com/0xdevexpert/tts-api/internal/services"
)

// ErrCapacityExceeded is returned by Submit when the queue is saturated.
var ErrCapacityExceeded = errors.New("job queue is at capacity")

const (
	defaultBurstFactor  = 2
	defaultPollInterval = 250 * time.Millisecond

	// backgroundQueueSize bounds the deferred-task channel; overflow tasks
	// run in their own goroutine instead of blocking the caller.
	backgroundQueueSize = 32
)

// Options configures a Manager. Zero values select defaults.
type Options struct {
	// MaxConcurrent is the number of synthesis workers. Admission control
	// allows up to MaxConcurrent*BurstFactor active jobs beyond the one
	// being admitted.
	MaxConcurrent int
	// BurstFactor scales how far the queue may grow past the worker count.
	BurstFactor int
	// PollInterval is the worker fallback wake-up period. Tests shrink it.
	PollInterval time.Duration
}

// Manager owns every job record for its lifetime: admission, FIFO dispatch
// to workers, status transitions, and record cleanup. All shared state sits
// behind one mutex; workers hold it only for short bookkeeping sections,
// never during synthesis.
type Manager struct {
	engine services.TTSEngine
	store  *artifacts.Store

	maxConcurrent int
	burstFactor   int
	pollInterval  time.Duration

	mu      sync.Mutex
	jobs    map[string]*models.Job
	pending []string // queued job IDs in submission order
	active  int      // queued + processing

	wake  chan struct{}
	tasks chan func()
}

func NewManager(engine services.TTSEngine, store *artifacts.Store, opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.BurstFactor <= 0 {
		opts.BurstFactor = defaultBurstFactor
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Manager{
		engine:        engine,
		store:         store,
		maxConcurrent: opts.MaxConcurrent,
		burstFactor:   opts.BurstFactor,
		pollInterval:  opts.PollInterval,
		jobs:          make(map[string]*models.Job),
		wake:          make(chan struct{}, opts.MaxConcurrent),
		tasks:         make(chan func(), backgroundQueueSize),
	}
}

// Submit validates capacity and enqueues a new job, returning its ID. The
// capacity check happens before the job is inserted: submission is rejected
// when the active count already exceeds maxConcurrent*burstFactor.
func (m *Manager) Submit(req models.TTSRequest) (string, error) {
	m.mu.Lock()
	if m.active > m.maxConcurrent*m.burstFactor {
		size := m.active
		m.mu.Unlock()
		return "", fmt.Errorf("%w (queue size: %d)", ErrCapacityExceeded, size)
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    models.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	m.pending = append(m.pending, job.ID)
	m.active++
	m.mu.Unlock()

	// Nudge an idle worker. The channel is a hint, not a ledger: workers
	// also poll, so a dropped send is harmless.
	select {
	case m.wake <- struct{}{}:
	default:
	}

	log.Printf("[Manager] job %s queued (%d active)", job.ID, m.QueueSize())
	return job.ID, nil
}

// QueueSize returns the number of jobs that are queued or processing.
func (m *Manager) QueueSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// JobStatus looks up the current status of a job record.
func (m *Manager) JobStatus(jobID string) (models.JobStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return "", false
	}
	return job.Status, true
}

// Job returns a copy of the job record.
func (m *Manager) Job(jobID string) (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// Snapshot returns copies of every job record currently in memory.
func (m *Manager) Snapshot() []models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out
}

// JobCount returns the number of job records held in memory, terminal ones
// included.
func (m *Manager) JobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Cleanup removes a job record from memory. Removing a job that is still
// queued or processing releases its admission slot. Unknown IDs are a no-op,
// so repeated cleanups are safe.
func (m *Manager) Cleanup(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	if !job.Status.IsTerminal() {
		m.active--
	}
	delete(m.jobs, jobID)
	log.Printf("[Manager] job %s record cleaned up", jobID)
}

// Defer schedules fn on the background task queue. When the queue is full
// the task runs in its own goroutine instead; execution is best-effort
// either way.
func (m *Manager) Defer(fn func()) {
	select {
	case m.tasks <- fn:
	default:
		go fn()
	}
}
