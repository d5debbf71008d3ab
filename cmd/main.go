package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/adapters/emotion"
	"github.com/satriahrh/voicebridge/adapters/gemini"
	"github.com/satriahrh/voicebridge/adapters/llm"
	"github.com/satriahrh/voicebridge/adapters/stt"
	"github.com/satriahrh/voicebridge/adapters/tts"
	"github.com/satriahrh/voicebridge/adapters/twilio"
	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
	"github.com/satriahrh/voicebridge/internal/api"
	"github.com/satriahrh/voicebridge/internal/audio"
	"github.com/satriahrh/voicebridge/internal/auth"
	"github.com/satriahrh/voicebridge/internal/config"
	"github.com/satriahrh/voicebridge/internal/session"
	"github.com/satriahrh/voicebridge/internal/telephony"
	"github.com/satriahrh/voicebridge/internal/websocket"
	"github.com/satriahrh/voicebridge/usecase"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Server.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize adapters
	speechToText, closeSTT := newSpeechToText(ctx, cfg, logger)
	defer closeSTT()

	genaiClient, err := gemini.NewClient(ctx, gemini.ClientConfig{APIKey: cfg.LLM.APIKey})
	if err != nil {
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}

	llmService, err := llm.NewGeminiLLM(genaiClient, llm.GeminiConfig{
		Model:           cfg.LLM.Model,
		Temperature:     genai.Ptr(float32(cfg.LLM.Temperature)),
		MaxOutputTokens: cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM", zap.Error(err))
	}

	var classifier repositories.EmotionClassifier
	switch cfg.Emotion.Provider {
	case config.EmotionProviderLexicon:
		classifier = emotion.NewLexiconClassifier()
	default:
		classifier = emotion.NewGeminiClassifier(genaiClient, cfg.Emotion.Model, logger)
	}

	textToSpeech, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       cfg.Voice.APIKey,
		APIBaseURL:   cfg.Voice.BaseURL,
		VoiceID:      cfg.Voice.VoiceID,
		ModelID:      cfg.Voice.ModelID,
		OutputFormat: cfg.Voice.BrowserFormat,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create TTS", zap.Error(err))
	}

	bridge, err := twilio.NewBridge(twilio.BridgeConfig{
		AccountSID:    cfg.Telephony.AccountSID,
		AuthToken:     cfg.Telephony.AuthToken,
		FromNumber:    cfg.Telephony.PhoneNumber,
		PublicBaseURL: cfg.Telephony.PublicBaseURL,
		Language:      cfg.Speech.Language,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create call bridge", zap.Error(err))
	}

	signer, err := auth.NewSigner(cfg.Auth.SessionSecret, cfg.Auth.StreamTokenTTL)
	if err != nil {
		logger.Fatal("Failed to create stream token signer", zap.Error(err))
	}

	// Initialize usecase services
	browserVoice := repositories.VoiceConfig{VoiceID: cfg.Voice.VoiceID, ModelID: cfg.Voice.ModelID, OutputFormat: cfg.Voice.BrowserFormat}
	phoneVoice := repositories.VoiceConfig{VoiceID: cfg.Voice.VoiceID, ModelID: cfg.Voice.ModelID, OutputFormat: cfg.Voice.PhoneFormat}

	conversationService := usecase.NewConversationService(speechToText, classifier, llmService, textToSpeech,
		map[entities.Transport]usecase.MediaProfile{
			entities.TransportBrowser: {
				Audio: repositories.AudioConfig{
					Encoding:   cfg.Speech.BrowserEncoding,
					SampleRate: cfg.Speech.BrowserSampleRate,
					Language:   cfg.Speech.Language,
				},
				Voice: browserVoice,
			},
			entities.TransportPhone: {
				Audio: repositories.AudioConfig{
					Encoding:   repositories.EncodingMulaw,
					SampleRate: audio.PhoneSampleRate,
					Language:   cfg.Speech.Language,
				},
				Voice: phoneVoice,
			},
		}, logger)

	sessions := session.NewManager(conversationService, logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(sessions, cfg.Voice.BrowserFormat, logger)
	go hub.Run()

	segmenter := audio.DefaultSegmenterConfig()
	segmenter.SilenceThreshold = cfg.Speech.PhoneSilenceRMS
	segmenter.SilenceDuration = cfg.Speech.PhoneSilenceDuration

	phone := telephony.NewHandler(sessions, bridge, signer, textToSpeech, telephony.Options{
		PublicBaseURL:     cfg.Telephony.PublicBaseURL,
		Greeting:          cfg.Telephony.Greeting,
		ValidateSignature: cfg.Telephony.ValidateSignature,
		APIKey:            cfg.Auth.APIKey,
		Voice:             phoneVoice,
		Segmenter:         segmenter,
	}, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	}))

	// Initialize API routes
	api.InitRoutes(e, sessions, hub, phone, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", cfg.Server.Addr),
		zap.String("sttProvider", cfg.Speech.Provider),
		zap.String("emotionProvider", cfg.Emotion.Provider),
		zap.String("publicBaseURL", cfg.Telephony.PublicBaseURL))

	// Wait for interrupt signal to gracefully shutdown the server
	quit, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-quit.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sessions.CloseAll(shutdownCtx); err != nil {
		logger.Warn("Sessions did not close cleanly", zap.Error(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func()) {
	switch cfg.Speech.Provider {
	case config.STTProviderGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, cfg.Speech.GoogleAPIKey, logger)
		if err != nil {
			logger.Fatal("Failed to create Google speech client", zap.Error(err))
		}
		return google, func() { _ = google.Close() }
	default:
		deepgram, err := stt.NewDeepgramSpeechToText(stt.DeepgramConfig{
			APIKey:  cfg.Speech.DeepgramAPIKey,
			BaseURL: cfg.Speech.DeepgramBaseURL,
			Model:   cfg.Speech.DeepgramModel,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create Deepgram client", zap.Error(err))
		}
		return deepgram, func() {}
	}
}
