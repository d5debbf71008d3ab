package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/adapters/gemini"
	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) *GeminiLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gemini.NewClient(context.Background(), gemini.ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	g, err := NewGeminiLLM(client, GeminiConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewGeminiLLM() error = %v", err)
	}
	return g
}

func TestGenerateReply(t *testing.T) {
	var body map[string]any

	g := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, gemini.DefaultModel) {
			t.Errorf("Expected model in path, got %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"That's wonderful!"}]}}]}`))
	})

	history := []entities.SessionMessage{
		{Role: entities.MessageRoleUser, Content: "Hi"},
		{Role: entities.MessageRoleAssistant, Content: "Hello!"},
		{Role: entities.MessageRoleUser, Content: "I'm so excited about this"},
	}

	reply, err := g.GenerateReply(context.Background(), history, entities.Emotion{Label: entities.EmotionExcited, Intensity: 0.8})
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if reply != "That's wonderful!" {
		t.Errorf("Unexpected reply %q", reply)
	}

	contents, _ := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents sent, got %d", len(contents))
	}
	second, _ := contents[1].(map[string]any)
	if second["role"] != "model" {
		t.Errorf("Expected assistant turn sent as model, got %v", second["role"])
	}
}

func TestGenerateReplyEmpty(t *testing.T) {
	g := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.GenerateReply(context.Background(), []entities.SessionMessage{{Role: entities.MessageRoleUser, Content: "hi"}}, entities.NeutralEmotion())
	if domain.ProviderOf(err) != gemini.ProviderName {
		t.Errorf("Expected gemini provider error, got %v", err)
	}
}

func TestGenerateReplyRequiresUserTurn(t *testing.T) {
	g := &GeminiLLM{logger: zaptest.NewLogger(t)}

	tests := [][]entities.SessionMessage{
		nil,
		{{Role: entities.MessageRoleUser, Content: "hi"}, {Role: entities.MessageRoleAssistant, Content: "hello"}},
	}
	for _, history := range tests {
		if _, err := g.GenerateReply(context.Background(), history, entities.NeutralEmotion()); !domain.IsInvalidInput(err) {
			t.Errorf("Expected invalid input, got %v", err)
		}
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	if got := buildSystemPrompt(entities.NeutralEmotion()); got != systemPrompt {
		t.Errorf("Neutral emotion should leave the prompt untouched, got %q", got)
	}

	got := buildSystemPrompt(entities.Emotion{Label: entities.EmotionFrustrated, Intensity: 0.6})
	if !strings.HasPrefix(got, systemPrompt) {
		t.Error("Emotion hint must extend the base prompt")
	}
	if !strings.Contains(got, "frustrated") || !strings.Contains(got, "0.6") {
		t.Errorf("Expected label and intensity in prompt, got %q", got)
	}
}

func TestConvertHistory(t *testing.T) {
	contents := convertHistory([]entities.SessionMessage{
		{Role: entities.MessageRoleUser, Content: " hello "},
		{Role: entities.MessageRoleAssistant, Content: "hi"},
	})

	if len(contents) != 2 {
		t.Fatalf("Expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Errorf("Unexpected roles %s, %s", contents[0].Role, contents[1].Role)
	}
	if contents[0].Parts[0].Text != "hello" {
		t.Errorf("Expected trimmed text, got %q", contents[0].Parts[0].Text)
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{Temperature: genai.Ptr[float32](3)}); err == nil {
		t.Error("Expected error for temperature above 2")
	}
	if err := ValidateGeminiConfig(GeminiConfig{MaxOutputTokens: -1}); err == nil {
		t.Error("Expected error for negative token budget")
	}
	if err := ValidateGeminiConfig(GeminiConfig{Temperature: genai.Ptr[float32](0.7), MaxOutputTokens: 150}); err != nil {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestTemperatureZeroIsKept(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float32
		want        float32
	}{
		{"unset uses default", nil, defaultTemperature},
		{"explicit zero", genai.Ptr[float32](0), 0},
		{"explicit value", genai.Ptr[float32](1.2), 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeminiLLM(nil, GeminiConfig{Temperature: tt.temperature}, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("NewGeminiLLM() error = %v", err)
			}
			if g.temperature != tt.want {
				t.Errorf("Expected temperature %v, got %v", tt.want, g.temperature)
			}
		})
	}
}
