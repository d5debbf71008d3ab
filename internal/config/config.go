package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/satriahrh/voicebridge/domain"
)

// Config aggregates every process-wide setting. It is built once by Load and
// never mutated afterwards.
type Config struct {
	Server    ServerConfig
	Speech    SpeechConfig
	Voice     VoiceConfig
	LLM       LLMConfig
	Emotion   EmotionConfig
	Telephony TelephonyConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Addr        string
	Environment string
}

// IsDevelopment reports whether development logging should be used.
func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// SpeechConfig configures the transcription provider.
type SpeechConfig struct {
	Provider             string
	DeepgramAPIKey       string
	DeepgramModel        string
	DeepgramBaseURL      string
	GoogleAPIKey         string
	GoogleCredentials    string
	Language             string
	BrowserEncoding      string
	BrowserSampleRate    int
	PhoneSilenceRMS      float64
	PhoneSilenceDuration time.Duration
}

// VoiceConfig configures the ElevenLabs synthesizer.
type VoiceConfig struct {
	APIKey        string
	VoiceID       string
	ModelID       string
	BaseURL       string
	BrowserFormat string
	PhoneFormat   string
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type EmotionConfig struct {
	Provider string
	Model    string
}

type TelephonyConfig struct {
	AccountSID        string
	AuthToken         string
	PhoneNumber       string
	PublicBaseURL     string
	ValidateSignature bool
	Greeting          string
}

type AuthConfig struct {
	SessionSecret  string
	StreamTokenTTL time.Duration
	APIKey         string // protects operator endpoints such as /make-call
}

const (
	STTProviderDeepgram = "deepgram"
	STTProviderGoogle   = "google"

	EmotionProviderGemini  = "gemini"
	EmotionProviderLexicon = "lexicon"
)

// MissingError lists every required setting that was absent at startup.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool {
	return target == domain.ErrConfiguration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	telephony, err := loadTelephonyConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:    server,
		Speech:    speech,
		Voice:     loadVoiceConfig(),
		LLM:       llm,
		Emotion:   loadEmotionConfig(llm.Model),
		Telephony: telephony,
		Auth:      auth,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	require := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	switch c.Speech.Provider {
	case STTProviderDeepgram:
		require("DEEPGRAM_API_KEY", c.Speech.DeepgramAPIKey)
	case STTProviderGoogle:
		if c.Speech.GoogleAPIKey == "" && c.Speech.GoogleCredentials == "" {
			missing = append(missing, "GOOGLE_SPEECH_API_KEY or GOOGLE_APPLICATION_CREDENTIALS")
		}
	default:
		return fmt.Errorf("%w: unknown STT_PROVIDER %q", domain.ErrConfiguration, c.Speech.Provider)
	}

	switch c.Emotion.Provider {
	case EmotionProviderGemini, EmotionProviderLexicon:
	default:
		return fmt.Errorf("%w: unknown EMOTION_PROVIDER %q", domain.ErrConfiguration, c.Emotion.Provider)
	}

	require("ELEVENLABS_API_KEY", c.Voice.APIKey)
	require("GEMINI_API_KEY", c.LLM.APIKey)
	require("TWILIO_ACCOUNT_SID", c.Telephony.AccountSID)
	require("TWILIO_AUTH_TOKEN", c.Telephony.AuthToken)
	require("TWILIO_PHONE_NUMBER", c.Telephony.PhoneNumber)
	require("WEBHOOK_BASE_URL", c.Telephony.PublicBaseURL)
	require("SESSION_SECRET", c.Auth.SessionSecret)

	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}

	if !strings.HasPrefix(c.Telephony.PublicBaseURL, "https://") && !strings.HasPrefix(c.Telephony.PublicBaseURL, "http://") {
		return fmt.Errorf("%w: WEBHOOK_BASE_URL must be an absolute http(s) URL, got %q", domain.ErrConfiguration, c.Telephony.PublicBaseURL)
	}
	return nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	env := getEnvOrDefault("APP_ENV", "production")

	if strings.Contains(port, ":") {
		// allow ":8080" or "127.0.0.1:8080"
		return ServerConfig{Addr: port, Environment: env}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("%w: invalid PORT value %q", domain.ErrConfiguration, port)
	}

	return ServerConfig{Addr: ":" + port, Environment: env}, nil
}

func loadSpeechConfig() (SpeechConfig, error) {
	sampleRate, err := parseIntEnv("BROWSER_AUDIO_SAMPLE_RATE", 48000)
	if err != nil {
		return SpeechConfig{}, err
	}

	silenceRMS, err := parseFloatEnv("PHONE_SILENCE_THRESHOLD", 500)
	if err != nil {
		return SpeechConfig{}, err
	}

	silenceMs, err := parseIntEnv("PHONE_SILENCE_MS", 800)
	if err != nil {
		return SpeechConfig{}, err
	}

	return SpeechConfig{
		Provider:             strings.ToLower(getEnvOrDefault("STT_PROVIDER", STTProviderDeepgram)),
		DeepgramAPIKey:       strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		DeepgramModel:        getEnvOrDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramBaseURL:      getEnvOrDefault("DEEPGRAM_BASE_URL", "https://api.deepgram.com/v1"),
		GoogleAPIKey:         strings.TrimSpace(os.Getenv("GOOGLE_SPEECH_API_KEY")),
		GoogleCredentials:    strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		Language:             getEnvOrDefault("STT_LANGUAGE", "en-US"),
		BrowserEncoding:      strings.ToUpper(getEnvOrDefault("BROWSER_AUDIO_ENCODING", "WEBM_OPUS")),
		BrowserSampleRate:    sampleRate,
		PhoneSilenceRMS:      silenceRMS,
		PhoneSilenceDuration: time.Duration(silenceMs) * time.Millisecond,
	}, nil
}

func loadVoiceConfig() VoiceConfig {
	return VoiceConfig{
		APIKey:        strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		VoiceID:       getEnvOrDefault("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		ModelID:       getEnvOrDefault("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
		BaseURL:       getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		BrowserFormat: getEnvOrDefault("ELEVENLABS_BROWSER_FORMAT", "mp3_44100_128"),
		PhoneFormat:   getEnvOrDefault("ELEVENLABS_PHONE_FORMAT", "ulaw_8000"),
	}
}

func loadLLMConfig() (LLMConfig, error) {
	temperature, err := parseFloatEnv("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return LLMConfig{}, err
	}

	maxTokens, err := parseIntEnv("LLM_MAX_TOKENS", 150)
	if err != nil {
		return LLMConfig{}, err
	}
	if maxTokens < 1 {
		maxTokens = 1
	}

	return LLMConfig{
		APIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func loadEmotionConfig(defaultModel string) EmotionConfig {
	return EmotionConfig{
		Provider: strings.ToLower(getEnvOrDefault("EMOTION_PROVIDER", EmotionProviderGemini)),
		Model:    getEnvOrDefault("EMOTION_MODEL", defaultModel),
	}
}

func loadTelephonyConfig() (TelephonyConfig, error) {
	validate, err := parseBoolEnv("TWILIO_VALIDATE_SIGNATURE", true)
	if err != nil {
		return TelephonyConfig{}, err
	}

	return TelephonyConfig{
		AccountSID:        strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:         strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		PhoneNumber:       strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER")),
		PublicBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")), "/"),
		ValidateSignature: validate,
		Greeting:          getEnvOrDefault("CALL_GREETING", "Hello! I'm your voice assistant. How can I help you today?"),
	}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	ttl, err := parseDurationEnv("STREAM_TOKEN_TTL", time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	secret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("FLASK_SECRET_KEY"))
	}

	return AuthConfig{
		SessionSecret:  secret,
		StreamTokenTTL: ttl,
		APIKey:         strings.TrimSpace(os.Getenv("API_KEY")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s value %q: %v", domain.ErrConfiguration, key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value %q: %v", domain.ErrConfiguration, key, raw, err)
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value %q: %v", domain.ErrConfiguration, key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value %q: %v", domain.ErrConfiguration, key, raw, err)
	}
	return val, nil
}
