package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xdevexpert/tts-api/internal/api"
	"github.com/0xdevexpert/tts-api/internal/artifacts"
	"github.com/0xdevexpert/tts-api/internal/config"
	"github.com/0xdevexpert/tts-api/internal/jobs"
	"github.com/0xdevexpert/tts-api/internal/services"
)

func main() {
	log.Println("Starting TTS API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize artifact storage
	store, err := artifacts.NewStore(cfg.AudioDir, cfg.MinAudioBytes)
	if err != nil {
		log.Fatalf("Failed to initialize audio storage: %v", err)
	}
	log.Printf("Audio storage ready at %s", store.Dir())

	// Initialize TTS provider
	engine, err := selectEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize TTS provider: %v", err)
	}

	// Create the job manager
	manager := jobs.NewManager(engine, store, jobs.Options{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		BurstFactor:   cfg.QueueBurstFactor,
	})
	lister := jobs.NewLister(manager, store)

	// Create API handler
	handler := api.NewHandler(manager, store, lister)
	router := api.NewRouter(handler, api.RouterConfig{
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker pool in background
	workerCtx, workerCancel := context.WithCancel(context.Background())
	go manager.Start(workerCtx)

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown workers
	workerCancel()

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// selectEngine picks the TTS provider: an explicit TTS_PROVIDER wins,
// otherwise the first provider with a configured key is used.
func selectEngine(cfg *config.Config) (services.TTSEngine, error) {
	provider := cfg.TTSProvider
	if provider == "" {
		switch {
		case cfg.OpenAIKey != "":
			provider = config.ProviderOpenAI
		case cfg.ElevenLabsKey != "":
			provider = config.ProviderElevenLabs
		case cfg.GeminiKey != "":
			provider = config.ProviderGemini
		case cfg.CartesiaKey != "":
			provider = config.ProviderCartesia
		}
	}

	switch provider {
	case config.ProviderOpenAI:
		log.Printf("TTS provider: OpenAI (model: %s, voice: %s)", cfg.OpenAIModel, cfg.OpenAIVoice)
		return services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIVoice), nil
	case config.ProviderElevenLabs:
		log.Printf("TTS provider: ElevenLabs (voice: %s, model: eleven_flash_v2_5)", cfg.ElevenLabsVoiceID)
		return services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID), nil
	case config.ProviderGemini:
		log.Printf("TTS provider: Gemini (voice: %s)", cfg.GeminiVoice)
		return services.NewGeminiTTSService(cfg.GeminiKey, cfg.GeminiTTSModel, cfg.GeminiVoice), nil
	case config.ProviderCartesia:
		log.Printf("TTS provider: Cartesia (voice: %s)", cfg.CartesiaVoiceID)
		return services.NewCartesiaService(cfg.CartesiaKey, cfg.CartesiaURL, cfg.CartesiaVoiceID), nil
	}
	return nil, fmt.Errorf("no TTS provider configured")
}
