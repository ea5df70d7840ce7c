package services

import (
	"context"
	"strings"

	"github.com/0xdevexpert/tts-api/internal/models"
)

// ---------------------------------------------------------------------------
// TTSEngine: common interface for text-to-speech providers
// OpenAI, ElevenLabs, Gemini, and Cartesia all implement this interface so
// the worker pool can use whichever is configured without knowing the
// underlying provider.
// ---------------------------------------------------------------------------

// SynthesisResult is the common result type from any TTS provider.
type SynthesisResult struct {
	AudioData   []byte
	DurationMs  int
	Format      string // "mp3" or "wav"
	ContentType string
}

// TTSEngine is the interface that any TTS provider must implement.
// Implementations map the request parameters onto whatever their API
// supports and ignore the rest.
type TTSEngine interface {
	Synthesize(ctx context.Context, req models.TTSRequest) (*SynthesisResult, error)
}

// estimateAudioDuration estimates speech duration in milliseconds from word
// count, assuming roughly 140 words per minute at normal speed. Providers
// that do not report duration use this.
func estimateAudioDuration(text string, speed float64) int {
	if speed <= 0 {
		speed = 1.0
	}
	words := len(strings.Fields(text))
	seconds := float64(words) / (140.0 / 60.0) / speed
	return int(seconds * 1000)
}
