package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/satriahrh/voicebridge/domain"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"unauthenticated", genai.APIError{Code: 401, Message: "API key not valid"}, domain.KindAuthentication},
		{"forbidden", genai.APIError{Code: 403}, domain.KindAuthentication},
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, domain.KindRateLimit},
		{"bad request", fmt.Errorf("generate: %w", genai.APIError{Code: 400}), domain.KindInvalidInput},
		{"unavailable", genai.APIError{Code: 503}, domain.KindTransient},
		{"network", errors.New("connection reset by peer"), domain.KindTransient},
		{"cancelled", context.Canceled, domain.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError(tt.err)
			if kind, _ := domain.KindOf(err); kind != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, kind, err)
			}
			if domain.ProviderOf(err) != ProviderName {
				t.Errorf("Expected provider %s", ProviderName)
			}
		})
	}

	if ClassifyError(nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "That's "}, {Text: "wonderful! "}}},
		}},
	}
	if got := ResponseText(resp); got != "That's wonderful!" {
		t.Errorf("Unexpected text %q", got)
	}

	if got := ResponseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
	if got := ResponseText(nil); got != "" {
		t.Errorf("Expected empty text for nil response, got %q", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ClientConfig{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}
