package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const googleProvider = "google-speech"

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client recognizer
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText dials Google Cloud Speech. An empty apiKey falls back
// to application default credentials.
func NewGoogleSpeechToText(ctx context.Context, apiKey string, logger *zap.Logger) (*GoogleSpeechToText, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{client: client, logger: logger}, nil
}

// TranscribeAudio converts audio data to text using Google Cloud Speech-to-Text (non-streaming)
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", domain.NewProviderError(googleProvider, domain.KindInvalidInput, 0, "no audio data received", nil)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", domain.NewProviderError(googleProvider, domain.KindInvalidInput, 0, "", err)
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(config.SampleRate),
		LanguageCode:               config.Language,
		EnableAutomaticPunctuation: true,
	}
	if config.Encoding == repositories.EncodingMulaw {
		recognitionConfig.Model = "phone_call"
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", classifyGRPCError(err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
				parts = append(parts, text)
			}
		}
	}

	transcript := strings.Join(parts, " ")
	if transcript == "" {
		return "", domain.NewProviderError(googleProvider, domain.KindInvalidInput, 0, "", domain.ErrNoSpeech)
	}

	g.logger.Debug("Google transcription completed", zap.Int("transcriptLength", len(transcript)))
	return transcript, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

func classifyGRPCError(err error) error {
	st, _ := status.FromError(err)
	var kind domain.ErrorKind
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		kind = domain.KindAuthentication
	case codes.ResourceExhausted:
		kind = domain.KindRateLimit
	case codes.InvalidArgument, codes.OutOfRange, codes.FailedPrecondition:
		kind = domain.KindInvalidInput
	default:
		kind = domain.KindTransient
	}
	return domain.NewProviderError(googleProvider, kind, int(st.Code()), st.Message(), err)
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "":
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, nil
	case repositories.EncodingWAV, repositories.EncodingLinear16:
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case repositories.EncodingMulaw:
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case repositories.EncodingOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case repositories.EncodingWebmOpus:
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
