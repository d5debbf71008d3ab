// Package gemini holds the genai client plumbing shared by the response
// generator and the emotion classifier.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/domain"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.0-flash"
)

// ClientConfig holds what is needed to reach the Gemini API
type ClientConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a local test server.
	BaseURL string
}

// NewClient creates a genai client for the Gemini API backend
func NewClient(ctx context.Context, config ClientConfig) (*genai.Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrConfiguration)
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// ClassifyError maps a genai failure onto the provider error taxonomy.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NetworkError(ProviderName, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(ProviderName, domain.ClassifyHTTPStatus(apiErr.Code), apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return domain.NewProviderError(ProviderName, domain.ClassifyHTTPStatus(apiErrPtr.Code), apiErrPtr.Code, apiErrPtr.Message, err)
	}

	return domain.NetworkError(ProviderName, err)
}
