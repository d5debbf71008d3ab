package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Pipeline and process-level error taxonomy.
var (
	ErrTranscription = errors.New("transcription failed")
	ErrEmotion       = errors.New("emotion classification failed")
	ErrGeneration    = errors.New("response generation failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
	ErrTransport     = errors.New("transport error")
	ErrConfiguration = errors.New("configuration error")

	// ErrNoSpeech is returned by a transcription provider that recognised nothing.
	ErrNoSpeech = errors.New("no speech recognized")
	// ErrEmptyReply is returned by a language model that produced no text.
	ErrEmptyReply = errors.New("empty reply from model")
)

// ErrorKind classifies a provider-side failure.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindRateLimit      ErrorKind = "rate_limit"
	KindTransient      ErrorKind = "transient"
	KindInvalidInput   ErrorKind = "invalid_input"
)

// ProviderError is the classified error every provider adapter returns.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, kind ErrorKind, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// HTTPStatusError classifies a non-2xx provider response.
func HTTPStatusError(provider string, statusCode int, body string) *ProviderError {
	return NewProviderError(provider, ClassifyHTTPStatus(statusCode), statusCode, body, nil)
}

// NetworkError wraps a failed round-trip (dial, timeout, reset) as transient.
func NetworkError(provider string, err error) *ProviderError {
	return NewProviderError(provider, KindTransient, 0, "request failed", err)
}

// ClassifyHTTPStatus maps a provider HTTP status code onto an ErrorKind.
func ClassifyHTTPStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimit
	case statusCode == http.StatusRequestTimeout, statusCode >= 500:
		return KindTransient
	case statusCode >= 400:
		return KindInvalidInput
	default:
		return KindTransient
	}
}

// KindOf returns the ErrorKind of the first ProviderError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// ProviderOf returns the provider name recorded in err's chain, if any.
func ProviderOf(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Provider
	}
	return ""
}

func IsAuthentication(err error) bool { return isKind(err, KindAuthentication) }
func IsRateLimit(err error) bool      { return isKind(err, KindRateLimit) }
func IsTransient(err error) bool      { return isKind(err, KindTransient) }
func IsInvalidInput(err error) bool   { return isKind(err, KindInvalidInput) }

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Step names a stage of the per-utterance pipeline.
type Step string

const (
	StepTranscription Step = "transcription"
	StepEmotion       Step = "emotion"
	StepGeneration    Step = "generation"
	StepSynthesis     Step = "synthesis"
)

var stepSentinels = map[Step]error{
	StepTranscription: ErrTranscription,
	StepEmotion:       ErrEmotion,
	StepGeneration:    ErrGeneration,
	StepSynthesis:     ErrSynthesis,
}

// StepError ties a provider failure to the pipeline step it happened in.
// errors.Is matches the step's sentinel; errors.As still reaches the
// underlying ProviderError.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", stepSentinels[e.Step], e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return stepSentinels[e.Step] == target
}

// NewStepError wraps err for the given step. A nil err yields nil.
func NewStepError(step Step, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
