package repositories

import (
	"context"

	"github.com/satriahrh/voicebridge/domain/entities"
)

// EmotionClassifier detects the speaker's emotion from a transcript
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, text string) (entities.Emotion, error)
}
