package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

// MediaProfile is the audio a transport delivers and the audio it expects back
type MediaProfile struct {
	Audio repositories.AudioConfig
	Voice repositories.VoiceConfig
}

// ConversationService orchestrates one turn of the conversation:
// transcript, emotion, reply, speech.
type ConversationService struct {
	speechToText repositories.SpeechToText
	classifier   repositories.EmotionClassifier
	llm          repositories.LargeLanguageModel
	textToSpeech repositories.TextToSpeech
	profiles     map[entities.Transport]MediaProfile
	logger       *zap.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	stt repositories.SpeechToText,
	classifier repositories.EmotionClassifier,
	llm repositories.LargeLanguageModel,
	tts repositories.TextToSpeech,
	profiles map[entities.Transport]MediaProfile,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		speechToText: stt,
		classifier:   classifier,
		llm:          llm,
		textToSpeech: tts,
		profiles:     profiles,
		logger:       logger,
	}
}

// HandleUtterance runs the full pipeline for one utterance. A transcription
// or generation failure returns a *domain.StepError and appends no turn; after
// a generation failure the transcript stays in the history as an unanswered
// user message. If ctx is cancelled the partial result is discarded.
func (s *ConversationService) HandleUtterance(ctx context.Context, session *entities.Session, audio []byte) (entities.Reply, error) {
	logger := s.logger.With(zap.String("sessionID", session.ID), zap.String("transport", string(session.Transport)))
	logger.Info("Processing utterance", zap.Int("audioSize", len(audio)))

	transcript, err := s.speechToText.TranscribeAudio(ctx, audio, s.profiles[session.Transport].Audio)
	if err == nil {
		transcript = strings.TrimSpace(transcript)
		if transcript == "" {
			err = domain.ErrNoSpeech
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entities.Reply{}, ctxErr
	}
	if err != nil {
		logProviderError(logger, domain.StepTranscription, err)
		return entities.Reply{}, domain.NewStepError(domain.StepTranscription, err)
	}

	logger.Info("Transcription completed", zap.String("text", transcript))

	return s.HandleTranscript(ctx, session, transcript)
}

// HandleTranscript runs the pipeline from an already recognised transcript.
func (s *ConversationService) HandleTranscript(ctx context.Context, session *entities.Session, transcript string) (entities.Reply, error) {
	logger := s.logger.With(zap.String("sessionID", session.ID), zap.String("transport", string(session.Transport)))

	emotion, err := s.classifier.ClassifyEmotion(ctx, transcript)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entities.Reply{}, ctxErr
	}
	if err != nil {
		logProviderError(logger, domain.StepEmotion, err)
		emotion = entities.NeutralEmotion()
	} else {
		emotion = emotion.Clamp()
	}

	if err := session.RecordUtterance(transcript); err != nil {
		return entities.Reply{}, fmt.Errorf("failed to record utterance: %w", err)
	}

	replyText, err := s.llm.GenerateReply(ctx, session.History(), emotion)
	if err == nil {
		replyText = strings.TrimSpace(replyText)
		if replyText == "" {
			err = domain.ErrEmptyReply
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entities.Reply{}, ctxErr
	}
	if err != nil {
		logProviderError(logger, domain.StepGeneration, err)
		return entities.Reply{}, domain.NewStepError(domain.StepGeneration, err)
	}

	logger.Info("AI response generated",
		zap.String("response", replyText),
		zap.String("emotion", emotion.Label),
		zap.Float64("intensity", emotion.Intensity))

	voice := s.profiles[session.Transport].Voice
	audio, err := s.textToSpeech.SynthesizeAudio(ctx, replyText, voice)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entities.Reply{}, ctxErr
	}
	if err != nil {
		logProviderError(logger, domain.StepSynthesis, err)
		audio = nil
	}

	turn := entities.Turn{
		Transcript: transcript,
		Emotion:    emotion,
		ReplyText:  replyText,
		AudioSize:  len(audio),
	}
	if len(audio) > 0 {
		turn.AudioFormat = voice.OutputFormat
	}
	if err := session.AppendTurn(turn); err != nil {
		return entities.Reply{}, fmt.Errorf("failed to record turn: %w", err)
	}

	logger.Info("Turn completed", zap.Int("turn", session.TurnCount()), zap.Int("audioSize", len(audio)))

	return entities.Reply{
		Transcript: transcript,
		Text:       replyText,
		Emotion:    emotion,
		Audio:      audio,
	}, nil
}

func logProviderError(logger *zap.Logger, step domain.Step, err error) {
	fields := []zap.Field{zap.String("step", string(step)), zap.Error(err)}
	if provider := domain.ProviderOf(err); provider != "" {
		fields = append(fields, zap.String("provider", provider))
	}
	if kind, ok := domain.KindOf(err); ok {
		fields = append(fields, zap.String("kind", string(kind)))
	}

	switch step {
	case domain.StepEmotion, domain.StepSynthesis:
		logger.Warn("Pipeline step degraded", fields...)
	default:
		logger.Error("Pipeline step failed", fields...)
	}
}
