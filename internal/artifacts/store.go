package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no audio artifact exists for a job.
	ErrNotFound = errors.New("audio not found")
	// ErrIncomplete is returned when an artifact exists but is below the
	// minimum byte threshold, which usually means a synthesis was cut short.
	ErrIncomplete = errors.New("audio file is incomplete")
)

const (
	metaSuffix = ".json"
	tmpSuffix  = ".tmp"

	// DefaultMinBytes is the smallest artifact size served as complete.
	DefaultMinBytes = 100
)

var audioExts = []string{".mp3", ".wav"}

// Metadata is the sidecar record written next to each audio artifact. It is
// the only durable index over completed jobs.
type Metadata struct {
	JobID       string    `json:"job_id"`
	Text        string    `json:"text,omitempty"`
	Voice       string    `json:"voice,omitempty"`
	Format      string    `json:"format"`
	ContentType string    `json:"content_type"`
	ByteSize    int       `json:"byte_size"`
	DurationMs  int       `json:"duration_ms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store persists audio artifacts and their metadata sidecars in a flat
// directory, one pair of files per job ID.
type Store struct {
	dir      string
	minBytes int
}

func NewStore(dir string, minBytes int) (*Store, error) {
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", dir, err)
	}
	return &Store{dir: dir, minBytes: minBytes}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes an audio artifact and its metadata sidecar. The audio write is
// atomic (temp file then rename) so readers never observe partial artifacts.
// A sidecar write failure is logged but not fatal: the audio file alone is
// enough to serve the job.
func (s *Store) Save(jobID string, audio []byte, meta Metadata) error {
	ext := extForFormat(meta.Format)
	audioPath := filepath.Join(s.dir, jobID+ext)

	if err := writeAtomic(audioPath, audio, 0o644); err != nil {
		return fmt.Errorf("failed to write audio for job %s: %w", jobID, err)
	}

	meta.JobID = jobID
	meta.ByteSize = len(audio)
	if meta.CompletedAt.IsZero() {
		meta.CompletedAt = time.Now()
	}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeForExt(ext)
	}

	data, err := json.Marshal(meta)
	if err == nil {
		err = writeAtomic(filepath.Join(s.dir, jobID+metaSuffix), data, 0o644)
	}
	if err != nil {
		log.Printf("[Store] failed to write metadata for job %s: %v", jobID, err)
	}

	log.Printf("[Store] saved audio for job %s (%d bytes)", jobID, len(audio))
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Exists reports whether an audio artifact is on disk for the job. This is
// the authoritative completion signal, not the in-memory status.
func (s *Store) Exists(jobID string) bool {
	_, _, err := s.audioPath(jobID)
	return err == nil
}

// audioPath locates the artifact for a job, probing the known extensions.
func (s *Store) audioPath(jobID string) (string, string, error) {
	for _, ext := range audioExts {
		path := filepath.Join(s.dir, jobID+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, ext, nil
		}
	}
	return "", "", ErrNotFound
}

// Fetch reads the artifact for a job. It returns ErrNotFound when no file
// exists and ErrIncomplete when the file is below the minimum size.
func (s *Store) Fetch(jobID string) ([]byte, Metadata, error) {
	path, ext, err := s.audioPath(jobID)
	if err != nil {
		return nil, Metadata{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to read audio for job %s: %w", jobID, err)
	}
	if len(data) < s.minBytes {
		return nil, Metadata{}, fmt.Errorf("%w: %d bytes", ErrIncomplete, len(data))
	}

	return data, s.loadMeta(jobID, path, ext, len(data)), nil
}

// loadMeta reads the sidecar, falling back to file info when the sidecar is
// missing or unreadable.
func (s *Store) loadMeta(jobID, audioPath, ext string, size int) Metadata {
	data, err := os.ReadFile(filepath.Join(s.dir, jobID+metaSuffix))
	if err == nil {
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err == nil {
			return meta
		}
	}

	meta := Metadata{
		JobID:       jobID,
		Format:      strings.TrimPrefix(ext, "."),
		ContentType: contentTypeForExt(ext),
		ByteSize:    size,
	}
	if info, err := os.Stat(audioPath); err == nil {
		meta.CreatedAt = info.ModTime()
		meta.CompletedAt = info.ModTime()
	}
	return meta
}

// Delete removes the artifact and its sidecar. It returns ErrNotFound when
// no artifact exists, so a second delete of the same job fails cleanly.
func (s *Store) Delete(jobID string) error {
	path, _, err := s.audioPath(jobID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete audio for job %s: %w", jobID, err)
	}
	os.Remove(filepath.Join(s.dir, jobID+metaSuffix))
	log.Printf("[Store] deleted audio for job %s", jobID)
	return nil
}

// List returns metadata for every artifact on disk, newest first. Artifacts
// without a readable sidecar are still included via file-info fallback.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var metas []Metadata
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !isAudioExt(ext) {
			continue
		}
		jobID := strings.TrimSuffix(name, ext)
		size := 0
		if info, err := entry.Info(); err == nil {
			size = int(info.Size())
		}
		metas = append(metas, s.loadMeta(jobID, filepath.Join(s.dir, name), ext, size))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Count returns the number of audio artifacts on disk.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && isAudioExt(filepath.Ext(entry.Name())) {
			count++
		}
	}
	return count, nil
}

func isAudioExt(ext string) bool {
	for _, e := range audioExts {
		if ext == e {
			return true
		}
	}
	return false
}

func extForFormat(format string) string {
	if strings.EqualFold(format, "wav") {
		return ".wav"
	}
	return ".mp3"
}

func contentTypeForExt(ext string) string {
	if ext == ".wav" {
		return "audio/wav"
	}
	return "audio/mpeg"
}
