package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/0xdevexpert/tts-api/internal/models"
)

const (
	// Default Cartesia API version
	CartesiaAPIVersion = "2024-06-10"

	// Default voice ID (you should replace with actual voice IDs from Cartesia)
	DefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091" // Example voice ID
)

type CartesiaService struct {
	apiKey         string
	apiURL         string
	apiVersion     string
	defaultVoiceID string
	client         *http.Client
}

// NewCartesiaService creates a new Cartesia TTS service. An empty voiceID
// selects the default voice.
func NewCartesiaService(apiKey, apiURL, voiceID string) *CartesiaService {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return &CartesiaService{
		apiKey:         apiKey,
		apiURL:         apiURL,
		apiVersion:     CartesiaAPIVersion,
		defaultVoiceID: voiceID,
		client:         &http.Client{Timeout: 60 * time.Second},
	}
}

// CartesiaRequest matches the actual Cartesia API specification
type CartesiaRequest struct {
	ModelID      string                    `json:"model_id"`
	Transcript   string                    `json:"transcript"`
	Voice        CartesiaVoiceSpecifier    `json:"voice"`
	Language     *string                   `json:"language,omitempty"`
	OutputFormat CartesiaOutputFormat      `json:"output_format"`
	Config       *CartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type CartesiaVoiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type CartesiaGenerationConfig struct {
	Volume *float64 `json:"volume,omitempty"` // 0.5 to 2.0
	Speed  *float64 `json:"speed,omitempty"`  // 0.6 to 1.5
}

// Ensure CartesiaService implements TTSEngine at compile time.
var _ TTSEngine = (*CartesiaService)(nil)

// GenerateSpeechOptions provides configuration for speech generation
type GenerateSpeechOptions struct {
	VoiceID  string
	Language string
	Speed    float64
	Volume   float64
}

// Synthesize generates audio from text using Cartesia TTS. A non-empty
// request voice is treated as a Cartesia voice ID. Pitch is not supported.
func (s *CartesiaService) Synthesize(ctx context.Context, req models.TTSRequest) (*SynthesisResult, error) {
	opts := GenerateSpeechOptions{
		VoiceID:  s.defaultVoiceID,
		Language: "en",
		Speed:    req.Speed,
		Volume:   req.Volume,
	}
	if req.Voice != "" {
		opts.VoiceID = req.Voice
	}
	if opts.Speed == 0 {
		opts.Speed = 1.0
	}
	if opts.Volume == 0 {
		opts.Volume = 1.0
	}

	return s.generateSpeechWithOptions(ctx, req.Text, opts)
}

// generateSpeechWithOptions generates audio with detailed Cartesia-specific configuration.
func (s *CartesiaService) generateSpeechWithOptions(ctx context.Context, text string, opts GenerateSpeechOptions) (*SynthesisResult, error) {
	// Build request body
	reqBody := CartesiaRequest{
		ModelID:    "sonic-english", // Use sonic-english or sonic-multilingual
		Transcript: text,
		Voice: CartesiaVoiceSpecifier{
			Mode: "id",
			ID:   opts.VoiceID,
		},
		OutputFormat: CartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
	}

	// Add language if specified
	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}

	// Only send generation config when something deviates from defaults
	if opts.Speed != 1.0 || opts.Volume != 1.0 {
		config := &CartesiaGenerationConfig{}

		if opts.Speed != 1.0 {
			speed := opts.Speed
			config.Speed = &speed
		}

		if opts.Volume != 1.0 {
			volume := opts.Volume
			config.Volume = &volume
		}

		reqBody.Config = config
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	url := fmt.Sprintf("%s/tts/bytes", s.apiURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cartesia-Version", s.apiVersion)

	// Make request
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, string(body))
	}

	// Read audio data
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	log.Printf("[Cartesia] Speech generated (%d bytes, voice: %s)", len(audioData), opts.VoiceID)

	// Calculate duration (approximate based on text length)
	durationMs := estimateAudioDuration(text, opts.Speed)

	return &SynthesisResult{
		AudioData:   audioData,
		DurationMs:  durationMs,
		Format:      "mp3",
		ContentType: "audio/mpeg",
	}, nil
}
