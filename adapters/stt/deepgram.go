package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const (
	deepgramProvider       = "deepgram"
	defaultDeepgramBaseURL = "https://api.deepgram.com/v1"
	defaultDeepgramModel   = "nova-2"
	maxDeepgramErrorBytes  = 4 << 10
)

// DeepgramConfig holds configuration for the Deepgram prerecorded API
type DeepgramConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// DeepgramSpeechToText implements SpeechToText with Deepgram's prerecorded endpoint
type DeepgramSpeechToText struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ repositories.SpeechToText = (*DeepgramSpeechToText)(nil)

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func NewDeepgramSpeechToText(config DeepgramConfig, logger *zap.Logger) (*DeepgramSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: deepgram API key is required", domain.ErrConfiguration)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultDeepgramBaseURL
	}

	model := config.Model
	if model == "" {
		model = defaultDeepgramModel
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &DeepgramSpeechToText{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  client,
		logger:  logger,
	}, nil
}

// TranscribeAudio sends one complete utterance and returns the best transcript
func (d *DeepgramSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", domain.NewProviderError(deepgramProvider, domain.KindInvalidInput, 0, "no audio data received", nil)
	}

	params := url.Values{}
	params.Set("model", d.model)
	params.Set("smart_format", "true")
	if config.Language != "" {
		params.Set("language", config.Language)
	}

	contentType := containerContentType(config.Encoding)
	if raw := rawEncoding(config.Encoding); raw != "" {
		params.Set("encoding", raw)
		if config.SampleRate > 0 {
			params.Set("sample_rate", strconv.Itoa(config.SampleRate))
		}
		params.Set("channels", "1")
		contentType = "application/octet-stream"
	}

	endpoint := fmt.Sprintf("%s/listen?%s", d.baseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audioData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+d.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", domain.NetworkError(deepgramProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxDeepgramErrorBytes))
		return "", domain.HTTPStatusError(deepgramProvider, resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	var result deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", domain.NewProviderError(deepgramProvider, domain.KindTransient, resp.StatusCode, "failed to decode response", err)
	}

	var transcript string
	var confidence float64
	if channels := result.Results.Channels; len(channels) > 0 && len(channels[0].Alternatives) > 0 {
		transcript = strings.TrimSpace(channels[0].Alternatives[0].Transcript)
		confidence = channels[0].Alternatives[0].Confidence
	}
	if transcript == "" {
		return "", domain.NewProviderError(deepgramProvider, domain.KindInvalidInput, resp.StatusCode, "", domain.ErrNoSpeech)
	}

	d.logger.Debug("Deepgram transcription completed",
		zap.Int("audioSize", len(audioData)),
		zap.Float64("confidence", confidence))

	return transcript, nil
}

// rawEncoding returns Deepgram's name for headerless encodings, or "" when
// the payload carries its own container header.
func rawEncoding(encoding string) string {
	switch encoding {
	case repositories.EncodingMulaw:
		return "mulaw"
	case repositories.EncodingLinear16:
		return "linear16"
	default:
		return ""
	}
}

func containerContentType(encoding string) string {
	switch encoding {
	case repositories.EncodingWebmOpus:
		return "audio/webm"
	case repositories.EncodingOggOpus:
		return "audio/ogg"
	case repositories.EncodingWAV:
		return "audio/wav"
	case repositories.EncodingMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
