package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewElevenLabsTTS(ElevenLabsConfig{}, logger); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected configuration error without API key, got %v", err)
	}

	if _, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", Stability: floatPtr(1.5)}, logger); err == nil {
		t.Error("Expected error for out-of-range stability")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default format '%s', got '%s'", defaultOutputFormat, tts.outputFormat)
	}
}

func TestSynthesizeAudio(t *testing.T) {
	var gotPath, gotFormat, gotKey, gotAccept string
	var gotBody synthesisRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("output_format")
		gotKey = r.Header.Get("xi-api-key")
		gotAccept = r.Header.Get("Accept")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "audio/basic")
		_, _ = w.Write([]byte{0xFF, 0x7F, 0x00})
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audio, err := tts.SynthesizeAudio(context.Background(), "That's wonderful!", repositories.VoiceConfig{OutputFormat: "ulaw_8000"})
	if err != nil {
		t.Fatalf("SynthesizeAudio() error = %v", err)
	}

	if len(audio) != 3 {
		t.Errorf("Expected 3 audio bytes, got %d", len(audio))
	}
	if gotPath != "/text-to-speech/"+defaultVoiceID {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotFormat != "ulaw_8000" {
		t.Errorf("Expected per-request format ulaw_8000, got %s", gotFormat)
	}
	if gotAccept != "audio/basic" {
		t.Errorf("Expected audio/basic accept header, got %s", gotAccept)
	}
	if gotKey != "test-api-key" {
		t.Errorf("Expected api key header, got %s", gotKey)
	}
	if gotBody.Text != "That's wonderful!" || gotBody.ModelID != defaultModelID {
		t.Errorf("Unexpected request body %+v", gotBody)
	}
}

func TestSynthesizeAudioErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   domain.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, domain.KindAuthentication},
		{"rate limited", http.StatusTooManyRequests, domain.KindRateLimit},
		{"bad request", http.StatusUnprocessableEntity, domain.KindInvalidInput},
		{"server error", http.StatusBadGateway, domain.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"nope"}`, tt.status)
			}))
			defer server.Close()

			tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))
			_, err := tts.SynthesizeAudio(context.Background(), "hello", repositories.VoiceConfig{})

			kind, ok := domain.KindOf(err)
			if !ok || kind != tt.want {
				t.Errorf("Expected kind %s, got %v (%v)", tt.want, kind, err)
			}
			if domain.ProviderOf(err) != providerName {
				t.Errorf("Expected provider %s, got %s", providerName, domain.ProviderOf(err))
			}
		})
	}
}

func TestSynthesizeAudioEmptyText(t *testing.T) {
	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k"}, zaptest.NewLogger(t))

	for _, text := range []string{"", "   "} {
		if _, err := tts.SynthesizeAudio(context.Background(), text, repositories.VoiceConfig{}); !domain.IsInvalidInput(err) {
			t.Errorf("Expected invalid input for %q, got %v", text, err)
		}
	}
}

func TestSynthesizeAudioCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	tts, _ := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tts.SynthesizeAudio(ctx, "hello", repositories.VoiceConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestVoiceSettingsZeroIsKept(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k"}, logger)
	if err != nil {
		t.Fatalf("NewElevenLabsTTS() error = %v", err)
	}
	if tts.stability != defaultStability || tts.clarity != defaultClarity {
		t.Errorf("Expected defaults, got stability %v clarity %v", tts.stability, tts.clarity)
	}

	tts, err = NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", Stability: floatPtr(0), Clarity: floatPtr(0)}, logger)
	if err != nil {
		t.Fatalf("NewElevenLabsTTS() error = %v", err)
	}
	if tts.stability != 0 || tts.clarity != 0 {
		t.Errorf("Expected explicit zeros, got stability %v clarity %v", tts.stability, tts.clarity)
	}
}
