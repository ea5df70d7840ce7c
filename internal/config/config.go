package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// TTS provider names accepted in TTS_PROVIDER.
const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
	ProviderGemini     = "gemini"
	ProviderCartesia   = "cartesia"
)

type Config struct {
	// Server
	APIPort            string
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Storage
	AudioDir      string
	MinAudioBytes int

	// Queue
	MaxConcurrentJobs int
	QueueBurstFactor  int

	// Provider selection (empty = pick the first provider with a key)
	TTSProvider string

	// OpenAI
	OpenAIKey   string
	OpenAIModel string
	OpenAIVoice string

	// ElevenLabs
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Gemini
	GeminiKey      string
	GeminiTTSModel string
	GeminiVoice    string

	// Cartesia
	CartesiaKey     string
	CartesiaURL     string
	CartesiaVoiceID string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		AudioDir:           getEnv("AUDIO_DIR", "data/audio"),
		MinAudioBytes:      getEnvInt("MIN_AUDIO_BYTES", 100),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 5),
		QueueBurstFactor:   getEnvInt("QUEUE_BURST_FACTOR", 2),
		TTSProvider:        getEnv("TTS_PROVIDER", ""),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAIVoice:        getEnv("OPENAI_TTS_VOICE", "alloy"),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", ""),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiTTSModel:     getEnv("GEMINI_TTS_MODEL", ""),
		GeminiVoice:        getEnv("GEMINI_TTS_VOICE", ""),
		CartesiaKey:        getEnv("CARTESIA_API_KEY", ""),
		CartesiaURL:        getEnv("CARTESIA_API_URL", "https://api.cartesia.ai"),
		CartesiaVoiceID:    getEnv("CARTESIA_VOICE_ID", ""),
	}

	// Validate required fields
	if cfg.MaxConcurrentJobs < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1")
	}

	if cfg.QueueBurstFactor < 1 {
		return nil, fmt.Errorf("QUEUE_BURST_FACTOR must be at least 1")
	}

	// At least one TTS provider must be configured
	if cfg.OpenAIKey == "" && cfg.ElevenLabsKey == "" && cfg.GeminiKey == "" && cfg.CartesiaKey == "" {
		return nil, fmt.Errorf("at least one TTS provider key is required (OPENAI_API_KEY, ELEVENLABS_API_KEY, GEMINI_API_KEY, or CARTESIA_API_KEY)")
	}

	// An explicitly selected provider must have its key
	switch cfg.TTSProvider {
	case "":
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case ProviderElevenLabs:
		if cfg.ElevenLabsKey == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=elevenlabs requires ELEVENLABS_API_KEY")
		}
	case ProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	case ProviderCartesia:
		if cfg.CartesiaKey == "" {
			return nil, fmt.Errorf("TTS_PROVIDER=cartesia requires CARTESIA_API_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q (allowed: openai, elevenlabs, gemini, cartesia)", cfg.TTSProvider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
