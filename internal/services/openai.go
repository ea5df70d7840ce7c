package services

import (
	"context"
	"fmt"
	"io"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/0xdevexpert/tts-api/internal/models"
)

// openAIVoices maps the request voice names OpenAI accepts. Anything else
// falls back to the service default.
var openAIVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

type OpenAIService struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// Ensure OpenAIService implements TTSEngine at compile time.
var _ TTSEngine = (*OpenAIService)(nil)

func NewOpenAIService(apiKey, model, voice string) *OpenAIService {
	s := &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  openai.TTSModel1,
		voice:  openai.VoiceAlloy,
	}
	if model != "" {
		s.model = openai.SpeechModel(model)
	}
	if v, ok := openAIVoices[voice]; ok {
		s.voice = v
	}
	return s
}

// Synthesize converts text to MP3 audio via the OpenAI speech endpoint.
// Pitch and volume are not supported by the API and are ignored.
func (s *OpenAIService) Synthesize(ctx context.Context, req models.TTSRequest) (*SynthesisResult, error) {
	voice := s.voice
	if v, ok := openAIVoices[req.Voice]; ok {
		voice = v
	}

	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}
	// OpenAI accepts 0.25 to 4.0.
	if speed < 0.25 {
		speed = 0.25
	} else if speed > 4.0 {
		speed = 4.0
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai returned empty audio")
	}

	log.Printf("[OpenAI] generated %d bytes of audio (voice: %s, speed: %.2f)", len(audio), voice, speed)

	return &SynthesisResult{
		AudioData:   audio,
		DurationMs:  estimateAudioDuration(req.Text, speed),
		Format:      "mp3",
		ContentType: "audio/mpeg",
	}, nil
}
