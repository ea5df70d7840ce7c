package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/models"
	"github.com/0xdevexpert/tts-api/internal/services"
)

// fakeEngine records synthesis calls and returns canned audio. When fail is
// set every call errors; when gate is set every call blocks until the gate
// receives or the context ends.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fail  bool
	gate  chan struct{}
}

func (f *fakeEngine) Synthesize(ctx context.Context, req models.TTSRequest) (*services.SynthesisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Text)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("synthesis backend unavailable")
	}
	return &services.SynthesisResult{
		AudioData:   bytes.Repeat([]byte{0x01}, 256),
		DurationMs:  1000,
		Format:      "mp3",
		ContentType: "audio/mpeg",
	}, nil
}

func (f *fakeEngine) callTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestManager(t *testing.T, engine services.TTSEngine, maxConcurrent int) (*Manager, *artifacts.Store) {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), artifacts.DefaultMinBytes)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	m := NewManager(engine, store, Options{
		MaxConcurrent: maxConcurrent,
		PollInterval:  10 * time.Millisecond,
	})
	return m, store
}

func startManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want models.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := m.JobStatus(jobID); ok && status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	status, ok := m.JobStatus(jobID)
	t.Fatalf("job %s never reached %s (status: %s, exists: %v)", jobID, want, status, ok)
}

func submitText(t *testing.T, m *Manager, text string) string {
	t.Helper()
	id, err := m.Submit(models.TTSRequest{Text: text, Speed: 1.0, Volume: 1.0})
	if err != nil {
		t.Fatalf("Submit(%q): %v", text, err)
	}
	return id
}

func TestSubmitAssignsUniqueIDs(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngine{}, 5)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id := submitText(t, m, "hello")
		if seen[id] {
			t.Fatalf("duplicate job ID %s", id)
		}
		seen[id] = true

		status, ok := m.JobStatus(id)
		if !ok || status != models.JobStatusQueued {
			t.Errorf("fresh job status = %s, %v; want queued, true", status, ok)
		}
	}

	if n := m.QueueSize(); n != 5 {
		t.Errorf("QueueSize = %d, want 5", n)
	}
}

func TestSubmitRejectsAtCapacity(t *testing.T) {
	// No workers running, so nothing drains. With maxConcurrent=2 and the
	// default burst factor of 2, the fifth submission sees active=4 and is
	// admitted; the sixth sees active=5 and is rejected.
	m, _ := newTestManager(t, &fakeEngine{}, 2)

	for i := 0; i < 5; i++ {
		submitText(t, m, "fill")
	}

	_, err := m.Submit(models.TTSRequest{Text: "overflow", Speed: 1.0, Volume: 1.0})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "queue size: 5") {
		t.Errorf("capacity error should carry the queue size, got %q", err)
	}
	if n := m.QueueSize(); n != 5 {
		t.Errorf("rejected submission must not change the queue: size = %d, want 5", n)
	}
}

func TestSubmitRecoversAfterCleanup(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngine{}, 1)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, submitText(t, m, "fill"))
	}
	if _, err := m.Submit(models.TTSRequest{Text: "overflow"}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("queue should be saturated, got %v", err)
	}

	m.Cleanup(ids[0])

	if _, err := m.Submit(models.TTSRequest{Text: "after-release"}); err != nil {
		t.Fatalf("submission should succeed after a slot was released: %v", err)
	}
}

func TestSingleWorkerProcessesInOrder(t *testing.T) {
	engine := &fakeEngine{}
	m, _ := newTestManager(t, engine, 1)

	first := submitText(t, m, "first")
	second := submitText(t, m, "second")
	third := submitText(t, m, "third")

	startManager(t, m)

	waitForStatus(t, m, first, models.JobStatusCompleted)
	waitForStatus(t, m, second, models.JobStatusCompleted)
	waitForStatus(t, m, third, models.JobStatusCompleted)

	want := []string{"first", "second", "third"}
	got := engine.callTexts()
	if len(got) != len(want) {
		t.Fatalf("engine saw %d calls, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q (claims must be FIFO)", i, got[i], want[i])
		}
	}
}

func TestFailedJobIsTerminal(t *testing.T) {
	engine := &fakeEngine{fail: true}
	m, _ := newTestManager(t, engine, 1)
	startManager(t, m)

	id := submitText(t, m, "doomed")
	waitForStatus(t, m, id, models.JobStatusFailed)

	job, ok := m.Job(id)
	if !ok {
		t.Fatalf("failed job record should stay in memory")
	}
	if !strings.Contains(job.Reason, "synthesis backend unavailable") {
		t.Errorf("failure reason = %q, want the engine error", job.Reason)
	}
	if job.FinishedAt == nil {
		t.Errorf("failed job should have a finish time")
	}

	// No retry: give the pool a few poll cycles and confirm nothing moved.
	time.Sleep(50 * time.Millisecond)
	if status, _ := m.JobStatus(id); status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed to be terminal", status)
	}
	if n := len(engine.callTexts()); n != 1 {
		t.Errorf("engine called %d times, want exactly 1", n)
	}
	if n := m.QueueSize(); n != 0 {
		t.Errorf("failed job should release its slot: QueueSize = %d, want 0", n)
	}
}

func TestCompletedJobWritesArtifact(t *testing.T) {
	m, store := newTestManager(t, &fakeEngine{}, 1)
	startManager(t, m)

	id := submitText(t, m, "persist me")
	waitForStatus(t, m, id, models.JobStatusCompleted)

	if !store.Exists(id) {
		t.Fatalf("completed job should have an artifact on disk")
	}
	data, meta, err := store.Fetch(id)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(data) != 256 {
		t.Errorf("artifact size = %d, want 256", len(data))
	}
	if meta.Text != "persist me" {
		t.Errorf("metadata text = %q, want the request text", meta.Text)
	}
	if meta.DurationMs != 1000 {
		t.Errorf("metadata duration = %d, want 1000", meta.DurationMs)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	engine := &fakeEngine{}
	m, _ := newTestManager(t, engine, 1)

	id := submitText(t, m, "short-lived")

	m.Cleanup(id)
	if _, ok := m.JobStatus(id); ok {
		t.Errorf("record should be gone after cleanup")
	}
	if n := m.QueueSize(); n != 0 {
		t.Errorf("QueueSize = %d, want 0 after cleaning a queued job", n)
	}

	// Second cleanup of the same ID must be a no-op.
	m.Cleanup(id)
	if n := m.QueueSize(); n != 0 {
		t.Errorf("QueueSize = %d after double cleanup, want 0", n)
	}

	// The stale pending entry must be skipped, not synthesized.
	startManager(t, m)
	time.Sleep(50 * time.Millisecond)
	if n := len(engine.callTexts()); n != 0 {
		t.Errorf("cleaned-up job was processed %d times, want 0", n)
	}
}

func TestQueueSizeExcludesTerminalJobs(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngine{}, 2)
	startManager(t, m)

	a := submitText(t, m, "one")
	b := submitText(t, m, "two")
	waitForStatus(t, m, a, models.JobStatusCompleted)
	waitForStatus(t, m, b, models.JobStatusCompleted)

	if n := m.QueueSize(); n != 0 {
		t.Errorf("QueueSize = %d, want 0 once all jobs are terminal", n)
	}
	if n := m.JobCount(); n != 2 {
		t.Errorf("JobCount = %d, want 2 (terminal records stay in memory)", n)
	}
}

// panicEngine panics on its first call and behaves normally afterwards.
type panicEngine struct {
	mu    sync.Mutex
	calls int
}

func (p *panicEngine) Synthesize(ctx context.Context, req models.TTSRequest) (*services.SynthesisResult, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if n == 1 {
		panic("engine exploded")
	}
	return &services.SynthesisResult{
		AudioData:   bytes.Repeat([]byte{0x02}, 256),
		Format:      "mp3",
		ContentType: "audio/mpeg",
	}, nil
}

func TestWorkerSurvivesEnginePanic(t *testing.T) {
	m, _ := newTestManager(t, &panicEngine{}, 1)

	victim := submitText(t, m, "panics")
	survivor := submitText(t, m, "fine")

	startManager(t, m)

	waitForStatus(t, m, victim, models.JobStatusFailed)
	waitForStatus(t, m, survivor, models.JobStatusCompleted)

	job, _ := m.Job(victim)
	if !strings.Contains(job.Reason, "internal error") {
		t.Errorf("panicked job reason = %q, want internal error", job.Reason)
	}
}

func TestDeferRunsTask(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngine{}, 1)
	startManager(t, m)

	done := make(chan struct{})
	m.Defer(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("deferred task never ran")
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	m, _ := newTestManager(t, &fakeEngine{}, 1)

	if _, ok := m.JobStatus("no-such-job"); ok {
		t.Errorf("unknown job ID should report not found")
	}
	if _, ok := m.Job("no-such-job"); ok {
		t.Errorf("unknown job ID should report not found")
	}
}
