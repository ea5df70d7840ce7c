package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusProcessing,
		JobStatusCompleted,
		JobStatusFailed,
	}

	for _, s := range statuses {
		if s == "" {
			t.Errorf("JobStatus should not be empty")
		}
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	cases := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}

	for _, c := range cases {
		if got := c.status.IsTerminal(); got != c.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestPreviewText(t *testing.T) {
	short := "hello world"
	if got := PreviewText(short); got != short {
		t.Errorf("short text should pass through unchanged, got %q", got)
	}

	exact := strings.Repeat("a", 100)
	if got := PreviewText(exact); got != exact {
		t.Errorf("text of exactly the preview length should not be truncated")
	}

	long := strings.Repeat("a", 101)
	got := PreviewText(long)
	if len([]rune(got)) != 103 {
		t.Errorf("truncated preview length = %d runes, want 103", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated preview should end with ellipsis, got %q", got)
	}

	multibyte := strings.Repeat("日", 150)
	got = PreviewText(multibyte)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("multibyte preview should end with ellipsis")
	}
	if strings.Contains(got, "�") {
		t.Errorf("multibyte preview contains invalid rune: %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != 100 {
		t.Errorf("multibyte preview kept %d runes, want 100", n)
	}
}

func TestSubmitRequestDefaults(t *testing.T) {
	var sub SubmitRequest
	if err := json.Unmarshal([]byte(`{"text":"  hi there  "}`), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	req := sub.ToTTSRequest()
	if req.Text != "hi there" {
		t.Errorf("text should be trimmed, got %q", req.Text)
	}
	if req.Speed != 1.0 {
		t.Errorf("default speed = %v, want 1.0", req.Speed)
	}
	if req.Volume != 1.0 {
		t.Errorf("default volume = %v, want 1.0", req.Volume)
	}
	if req.Pitch != 0 {
		t.Errorf("default pitch = %v, want 0", req.Pitch)
	}
	if req.Voice != "" {
		t.Errorf("default voice = %q, want empty", req.Voice)
	}
}

func TestSubmitRequestExplicitValues(t *testing.T) {
	var sub SubmitRequest
	body := `{"text":"hello","voice":"nova","speed":0.5,"volume":0.8,"pitch":-2}`
	if err := json.Unmarshal([]byte(body), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	req := sub.ToTTSRequest()
	if req.Voice != "nova" {
		t.Errorf("voice = %q, want nova", req.Voice)
	}
	if req.Speed != 0.5 {
		t.Errorf("speed = %v, want 0.5", req.Speed)
	}
	if req.Volume != 0.8 {
		t.Errorf("volume = %v, want 0.8", req.Volume)
	}
	if req.Pitch != -2 {
		t.Errorf("pitch = %v, want -2", req.Pitch)
	}
}
