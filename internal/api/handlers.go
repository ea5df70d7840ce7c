package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/jobs"
	"github.com/0xdevexpert/tts-api/internal/models"
)

type Handler struct {
	jobs   *jobs.Manager
	store  *artifacts.Store
	lister *jobs.Lister
}

func NewHandler(manager *jobs.Manager, store *artifacts.Store, lister *jobs.Lister) *Handler {
	return &Handler{
		jobs:   manager,
		store:  store,
		lister: lister,
	}
}

// SubmitJob handles POST /tts
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ttsReq := req.ToTTSRequest()
	if ttsReq.Text == "" {
		respondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	jobID, err := h.jobs.Submit(ttsReq)
	if err != nil {
		if errors.Is(err, jobs.ErrCapacityExceeded) {
			respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":      "Server is currently at capacity. Please try again later.",
				"queue_size": h.jobs.QueueSize(),
			})
			return
		}
		respondInternalError(w, "Failed to submit job", err)
		return
	}

	respondJSON(w, http.StatusOK, models.SubmitResponse{JobID: jobID})
}

// ListJobs handles GET /tts/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.lister.List(jobs.DefaultListLimit)
	if err != nil {
		respondInternalError(w, "Failed to list jobs", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  summaries,
		"count": len(summaries),
	})
}

// GetJobStatus handles GET /tts/status/{job_id}.
// An artifact on disk is the authoritative completion signal: it is checked
// before the in-memory record, so completed jobs keep answering after the
// record was cleaned up or the process restarted.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if !validJobID(jobID) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
		return
	}

	if h.store.Exists(jobID) {
		respondJSON(w, http.StatusOK, models.StatusResponse{
			JobID:   jobID,
			Status:  models.JobStatusCompleted,
			Message: "Audio is ready",
		})
		return
	}

	job, ok := h.jobs.Job(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
		return
	}

	var message string
	switch job.Status {
	case models.JobStatusCompleted:
		// Record says completed but the artifact is gone (deleted, cleanup
		// pending). The audio no longer exists, so neither does the job.
		respondError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
		return
	case models.JobStatusProcessing:
		message = "Audio is being generated"
	case models.JobStatusFailed:
		message = "Synthesis failed: " + job.Reason
	default:
		message = "Job is waiting in the queue"
	}

	respondJSON(w, http.StatusOK, models.StatusResponse{
		JobID:   jobID,
		Status:  job.Status,
		Message: message,
	})
}

// GetAudio handles GET /tts/audio/{job_id}
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if !validJobID(jobID) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Audio for job %s not found or not ready yet", jobID))
		return
	}

	data, meta, err := h.store.Fetch(jobID)
	if err != nil {
		switch {
		case errors.Is(err, artifacts.ErrNotFound):
			respondError(w, http.StatusNotFound, fmt.Sprintf("Audio for job %s not found or not ready yet", jobID))
		case errors.Is(err, artifacts.ErrIncomplete):
			respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Audio file appears to be incomplete for job %s", jobID))
		default:
			respondInternalError(w, "Failed to read audio", err)
		}
		return
	}

	etag := etagFor(jobID)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteAudio handles DELETE /tts/audio/{job_id}. The artifact is removed
// synchronously; the in-memory record is cleaned up by a background task.
func (h *Handler) DeleteAudio(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if !validJobID(jobID) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Audio for job %s not found", jobID))
		return
	}

	if err := h.store.Delete(jobID); err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("Audio for job %s not found", jobID))
			return
		}
		respondInternalError(w, "Failed to delete audio", err)
		return
	}

	h.jobs.Defer(func() { h.jobs.Cleanup(jobID) })

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Audio for job %s deleted successfully", jobID),
	})
}

// Health handles GET /health. It always answers 200; a broken audio
// directory is reported in the body instead of failing the endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count()
	if err != nil {
		respondJSON(w, http.StatusOK, models.HealthResponse{
			Status:  "unhealthy",
			Message: "Audio directory is not accessible: " + err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:          "healthy",
		AudioFilesCount: count,
		ActiveJobsSize:  h.jobs.QueueSize(),
		MemoryJobsCount: h.jobs.JobCount(),
		Message:         "TTS API is running",
	})
}

// validJobID rejects anything that is not a UUID before it can reach the
// filesystem layer.
func validJobID(jobID string) bool {
	_, err := uuid.Parse(jobID)
	return err == nil
}

// etagFor derives a stable ETag from the job ID alone. Artifacts are written
// once and never modified, so the ID is enough.
func etagFor(jobID string) string {
	h := fnv.New64a()
	h.Write([]byte(jobID))
	return fmt.Sprintf("\"%016x\"", h.Sum64())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondInternalError(w http.ResponseWriter, message string, err error) {
	log.Printf("[API] %s: %v", message, err)
	respondJSON(w, http.StatusInternalServerError, map[string]string{
		"error":  message,
		"detail": err.Error(),
	})
}
