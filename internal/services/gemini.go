package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/0xdevexpert/tts-api/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini Text-to-Speech Service
// Uses the Gemini API native TTS models via google.golang.org/genai. The API
// returns raw PCM (s16le, 24kHz, mono) which is wrapped in a WAV container
// before storage.
// ---------------------------------------------------------------------------

const (
	geminiDefaultTTSModel = "gemini-2.5-flash-preview-tts"
	geminiDefaultVoice    = "Kore"

	geminiSampleRate    = 24000
	geminiChannels      = 1
	geminiBitsPerSample = 16
)

type GeminiTTSService struct {
	apiKey string
	model  string
	voice  string
}

// Ensure GeminiTTSService implements TTSEngine at compile time.
var _ TTSEngine = (*GeminiTTSService)(nil)

func NewGeminiTTSService(apiKey, model, voice string) *GeminiTTSService {
	if model == "" {
		model = geminiDefaultTTSModel
	}
	if voice == "" {
		voice = geminiDefaultVoice
	}
	return &GeminiTTSService{
		apiKey: apiKey,
		model:  model,
		voice:  voice,
	}
}

// Synthesize converts text to WAV audio via Gemini native TTS. A non-empty
// request voice is treated as a Gemini prebuilt voice name (e.g. "Kore",
// "Puck"). Speed, pitch, and volume are not supported by the API.
func (s *GeminiTTSService) Synthesize(ctx context.Context, req models.TTSRequest) (*SynthesisResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	voice := s.voice
	if req.Voice != "" {
		voice = req.Voice
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	log.Printf("[Gemini] Generating speech (model=%s, voice=%s, textLen=%d)", s.model, voice, len(req.Text))

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(req.Text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini speech request failed: %w", err)
	}

	pcm, err := extractInlineAudio(resp)
	if err != nil {
		return nil, err
	}

	audio := pcmToWAV(pcm, geminiSampleRate, geminiChannels, geminiBitsPerSample)
	durationMs := pcmDurationMs(len(pcm), geminiSampleRate, geminiChannels, geminiBitsPerSample)

	log.Printf("[Gemini] Speech generated (%d bytes PCM, %dms)", len(pcm), durationMs)

	return &SynthesisResult{
		AudioData:   audio,
		DurationMs:  durationMs,
		Format:      "wav",
		ContentType: "audio/wav",
	}, nil
}

// extractInlineAudio pulls the first inline audio blob out of a response.
func extractInlineAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini returned no audio data")
}

// pcmToWAV wraps raw little-endian PCM samples in a standard 44-byte RIFF
// WAV header.
func pcmToWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// pcmDurationMs computes the playback duration of raw PCM data.
func pcmDurationMs(pcmLen, sampleRate, channels, bitsPerSample int) int {
	bytesPerSecond := sampleRate * channels * bitsPerSample / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return pcmLen * 1000 / bytesPerSecond
}
