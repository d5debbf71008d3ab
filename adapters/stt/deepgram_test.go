package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const deepgramOK = `{"results":{"channels":[{"alternatives":[{"transcript":"I'm so excited about this","confidence":0.97}]}]}}`

func newTestDeepgram(t *testing.T, handler http.HandlerFunc) *DeepgramSpeechToText {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d, err := NewDeepgramSpeechToText(DeepgramConfig{APIKey: "dg-key", BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewDeepgramSpeechToText() error = %v", err)
	}
	return d
}

func TestDeepgramTranscribeBrowserAudio(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth, gotType string
	var gotBody []byte

	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listen" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(deepgramOK))
	})

	text, err := d.TranscribeAudio(context.Background(), []byte("webm-bytes"), repositories.AudioConfig{
		Encoding:   repositories.EncodingWebmOpus,
		SampleRate: 48000,
		Language:   "en-US",
	})
	if err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}

	if text != "I'm so excited about this" {
		t.Errorf("Unexpected transcript %q", text)
	}
	if gotAuth != "Token dg-key" {
		t.Errorf("Unexpected auth header %q", gotAuth)
	}
	if gotType != "audio/webm" {
		t.Errorf("Expected audio/webm content type, got %q", gotType)
	}
	if gotQuery["model"] != defaultDeepgramModel || gotQuery["smart_format"] != "true" || gotQuery["language"] != "en-US" {
		t.Errorf("Unexpected query %v", gotQuery)
	}
	if _, ok := gotQuery["encoding"]; ok {
		t.Error("Container audio must not send an encoding parameter")
	}
	if string(gotBody) != "webm-bytes" {
		t.Errorf("Unexpected body %q", gotBody)
	}
}

func TestDeepgramTranscribePhoneAudio(t *testing.T) {
	var encoding, sampleRate string

	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		encoding = r.URL.Query().Get("encoding")
		sampleRate = r.URL.Query().Get("sample_rate")
		_, _ = w.Write([]byte(deepgramOK))
	})

	_, err := d.TranscribeAudio(context.Background(), []byte{0xFF, 0xFE}, repositories.AudioConfig{
		Encoding:   repositories.EncodingMulaw,
		SampleRate: 8000,
		Language:   "en-US",
	})
	if err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}
	if encoding != "mulaw" || sampleRate != "8000" {
		t.Errorf("Expected mulaw/8000, got %s/%s", encoding, sampleRate)
	}
}

func TestDeepgramEmptyTranscript(t *testing.T) {
	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"  "}]}]}}`))
	})

	_, err := d.TranscribeAudio(context.Background(), []byte("x"), repositories.AudioConfig{})
	if !errors.Is(err, domain.ErrNoSpeech) {
		t.Errorf("Expected ErrNoSpeech, got %v", err)
	}
	if !domain.IsInvalidInput(err) {
		t.Errorf("Expected invalid input classification, got %v", err)
	}
}

func TestDeepgramStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ErrorKind
	}{
		{http.StatusUnauthorized, domain.KindAuthentication},
		{http.StatusTooManyRequests, domain.KindRateLimit},
		{http.StatusBadRequest, domain.KindInvalidInput},
		{http.StatusServiceUnavailable, domain.KindTransient},
	}

	for _, tt := range tests {
		d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"err_msg":"failed"}`, tt.status)
		})

		_, err := d.TranscribeAudio(context.Background(), []byte("x"), repositories.AudioConfig{})
		if kind, _ := domain.KindOf(err); kind != tt.want {
			t.Errorf("status %d: expected %s, got %s (%v)", tt.status, tt.want, kind, err)
		}
	}
}

func TestDeepgramRejectsEmptyAudio(t *testing.T) {
	d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Provider must not be called for empty audio")
	})

	if _, err := d.TranscribeAudio(context.Background(), nil, repositories.AudioConfig{}); !domain.IsInvalidInput(err) {
		t.Errorf("Expected invalid input, got %v", err)
	}
}

func TestNewDeepgramRequiresKey(t *testing.T) {
	if _, err := NewDeepgramSpeechToText(DeepgramConfig{}, zaptest.NewLogger(t)); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}
