package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/adapters/gemini"
	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 150

	systemPrompt = "You are a helpful and friendly voice assistant. " +
		"Keep your responses concise and natural-sounding for voice interaction. " +
		"Avoid long lists, markdown and anything that does not read well aloud."
)

// GeminiConfig configures the Gemini response generator
type GeminiConfig struct {
	Model           string
	Temperature     *float32 // nil uses the default; 0 is a valid setting
	MaxOutputTokens int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if t := config.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %f", domain.ErrConfiguration, *t)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("%w: max output tokens must be positive, got %d", domain.ErrConfiguration, config.MaxOutputTokens)
	}
	return nil
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(client *genai.Client, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = gemini.DefaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := float32(defaultTemperature)
	if config.Temperature != nil {
		temperature = *config.Temperature
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// GenerateReply answers the final user message of history
func (g *GeminiLLM) GenerateReply(ctx context.Context, history []entities.SessionMessage, emotion entities.Emotion) (string, error) {
	if len(history) == 0 || history[len(history)-1].Role != entities.MessageRoleUser {
		return "", domain.NewProviderError(gemini.ProviderName, domain.KindInvalidInput, 0, "history must end with a user message", nil)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buildSystemPrompt(emotion), genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, convertHistory(history), config)
	if err != nil {
		return "", gemini.ClassifyError(err)
	}

	reply := gemini.ResponseText(response)
	if reply == "" {
		return "", domain.NewProviderError(gemini.ProviderName, domain.KindTransient, 0, "", domain.ErrEmptyReply)
	}

	g.logger.Debug("Gemini reply generated",
		zap.Int("historyLength", len(history)),
		zap.String("emotion", emotion.Label),
		zap.Int("replyLength", len(reply)))

	return reply, nil
}

// buildSystemPrompt folds the detected emotion into the instructions. Neutral
// or absent emotion leaves the base prompt untouched.
func buildSystemPrompt(emotion entities.Emotion) string {
	if emotion.Label == "" || emotion.IsNeutral() {
		return systemPrompt
	}

	var tone string
	switch emotion.Label {
	case entities.EmotionHappy, entities.EmotionExcited:
		tone = "Share their enthusiasm."
	case entities.EmotionSad:
		tone = "Be gentle and supportive."
	case entities.EmotionAngry, entities.EmotionFrustrated:
		tone = "Stay calm, acknowledge the problem and be solution-focused."
	}

	return fmt.Sprintf("%s\nThe user currently sounds %s (intensity %.1f on a 0 to 1 scale). %s",
		systemPrompt, emotion.Label, emotion.Intensity, tone)
}

// convertHistory converts session messages to Gemini contents
func convertHistory(history []entities.SessionMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == entities.MessageRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(strings.TrimSpace(msg.Content), genai.Role(role)))
	}
	return contents
}
