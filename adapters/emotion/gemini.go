package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/adapters/gemini"
	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const classifierPrompt = "Analyze the emotion in the user's message. " +
	"Respond with a single JSON object with two fields: " +
	`"emotion" (one of happy, sad, angry, neutral, excited, frustrated) and ` +
	`"intensity" (a number between 0.0 and 1.0). Output nothing else.`

// GeminiClassifier detects emotion by asking a Gemini model for a JSON verdict
type GeminiClassifier struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.EmotionClassifier = (*GeminiClassifier)(nil)

type classifierPayload struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

func NewGeminiClassifier(client *genai.Client, model string, logger *zap.Logger) *GeminiClassifier {
	if model == "" {
		model = gemini.DefaultModel
	}
	return &GeminiClassifier{client: client, model: model, logger: logger}
}

// ClassifyEmotion returns the detected label and intensity. Labels outside
// the supported set come back as neutral.
func (g *GeminiClassifier) ClassifyEmotion(ctx context.Context, text string) (entities.Emotion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entities.NeutralEmotion(), nil
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(classifierPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0)),
		MaxOutputTokens:   64,
		ResponseMIMEType:  "application/json",
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return entities.Emotion{}, gemini.ClassifyError(err)
	}

	payload, err := parseClassifierOutput(gemini.ResponseText(response))
	if err != nil {
		return entities.Emotion{}, domain.NewProviderError(gemini.ProviderName, domain.KindTransient, 0, "unreadable classifier output", err)
	}

	result := entities.Emotion{
		Label:     strings.ToLower(strings.TrimSpace(payload.Emotion)),
		Intensity: payload.Intensity,
	}.Clamp()

	g.logger.Debug("Emotion classified",
		zap.String("emotion", result.Label),
		zap.Float64("intensity", result.Intensity))

	return result, nil
}

// parseClassifierOutput extracts the JSON object from the model output
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}
