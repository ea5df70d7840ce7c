package jobs

import (
	"sort"

	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/models"
)

// DefaultListLimit caps how many jobs a listing returns.
const DefaultListLimit = 50

// Lister merges the two views of job history: artifacts on disk (completed
// work, survives restarts) and in-memory records (everything else). Disk
// wins when a job appears in both.
type Lister struct {
	manager *Manager
	store   *artifacts.Store
}

func NewLister(manager *Manager, store *artifacts.Store) *Lister {
	return &Lister{manager: manager, store: store}
}

// List returns up to limit job summaries, newest first. A non-positive limit
// selects the default.
func (l *Lister) List(limit int) ([]models.JobSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	metas, err := l.store.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]models.JobSummary, 0, len(metas))
	seen := make(map[string]bool, len(metas))
	for _, meta := range metas {
		seen[meta.JobID] = true
		summaries = append(summaries, models.JobSummary{
			JobID:       meta.JobID,
			Status:      models.JobStatusCompleted,
			CreatedAt:   meta.CreatedAt,
			AudioExists: true,
			Text:        meta.Text,
		})
	}

	for _, job := range l.manager.Snapshot() {
		if seen[job.ID] {
			continue
		}
		summaries = append(summaries, models.JobSummary{
			JobID:       job.ID,
			Status:      job.Status,
			CreatedAt:   job.CreatedAt,
			AudioExists: false,
			Text:        models.PreviewText(job.Request.Text),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}
