package repositories

import (
	"context"

	"github.com/satriahrh/voicebridge/domain/entities"
)

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// GenerateReply answers the last user message of history. The detected
	// emotion is a hint the provider may use to adjust its tone.
	GenerateReply(ctx context.Context, history []entities.SessionMessage, emotion entities.Emotion) (string, error)
}
