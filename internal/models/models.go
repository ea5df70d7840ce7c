package models

import (
	"strings"
	"time"
)

// Enums

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job in this status will never change again.
// Failures are terminal — there is no automatic retry.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Models

// TTSRequest is a validated synthesis request. It is immutable once a job has
// been created from it; providers map the parameters onto whatever their API
// supports and ignore the rest.
type TTSRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Pitch  float64 `json:"pitch"`
	Speed  float64 `json:"speed"`
	Volume float64 `json:"volume"`
}

// Job is the in-memory record for one submitted request. The job manager owns
// it for its entire lifetime; once a worker claims the job, only that worker
// writes its status.
type Job struct {
	ID         string     `json:"job_id"`
	Request    TTSRequest `json:"request"`
	Status     JobStatus  `json:"status"`
	Reason     string     `json:"reason,omitempty"` // failure detail, empty unless failed
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// DTOs for API requests and responses

// SubmitRequest is the POST /tts body. Optional fields are pointers so absent
// values can be told apart from explicit zeros.
type SubmitRequest struct {
	Text   string   `json:"text"`
	Voice  *string  `json:"voice,omitempty"`
	Pitch  *float64 `json:"pitch,omitempty"`
	Speed  *float64 `json:"speed,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

// ToTTSRequest trims the text and applies defaults: speed and volume 1.0,
// pitch 0. Emptiness of the returned Text is the caller's validation signal.
func (r SubmitRequest) ToTTSRequest() TTSRequest {
	req := TTSRequest{
		Text:   strings.TrimSpace(r.Text),
		Speed:  1.0,
		Volume: 1.0,
	}
	if r.Voice != nil {
		req.Voice = *r.Voice
	}
	if r.Pitch != nil {
		req.Pitch = *r.Pitch
	}
	if r.Speed != nil {
		req.Speed = *r.Speed
	}
	if r.Volume != nil {
		req.Volume = *r.Volume
	}
	return req
}

type SubmitResponse struct {
	JobID string `json:"job_id"`
}

type StatusResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// JobSummary is a lightweight DTO for the list endpoint — no full request,
// just core fields plus a short text preview.
type JobSummary struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	AudioExists bool      `json:"audio_exists"`
	Text        string    `json:"text,omitempty"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	AudioFilesCount int    `json:"audio_files_count"`
	ActiveJobsSize  int    `json:"active_jobs_size"`
	MemoryJobsCount int    `json:"memory_jobs_count"`
	Message         string `json:"message"`
}

// previewLen bounds text previews in listings and sidecar metadata.
const previewLen = 100

// PreviewText truncates text to a bounded preview, appending an ellipsis when
// anything was cut. Truncation is by rune so multi-byte text stays valid.
func PreviewText(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
