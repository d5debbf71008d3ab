package repositories

import "context"

// CallBridge abstracts the telephony provider's call control surface
type CallBridge interface {
	// StreamInstructions returns call-control markup that greets the caller and
	// connects the call audio to the media stream at streamURL.
	StreamInstructions(greeting, streamURL string, params map[string]string) (string, error)
	// HangupInstructions returns markup that speaks message and ends the call.
	HangupInstructions(message string) (string, error)
	// PlaceCall dials to and returns the provider call id.
	PlaceCall(ctx context.Context, to string) (string, error)
	// ValidateWebhook checks the provider signature of an inbound webhook.
	ValidateWebhook(url string, params map[string]string, signature string) bool
}

// Call status values reported by the telephony provider
const (
	CallStatusQueued     = "queued"
	CallStatusInitiated  = "initiated"
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusBusy       = "busy"
	CallStatusFailed     = "failed"
	CallStatusNoAnswer   = "no-answer"
	CallStatusCanceled   = "canceled"
)

// IsTerminalCallStatus reports whether status means the call is over.
func IsTerminalCallStatus(status string) bool {
	switch status {
	case CallStatusCompleted, CallStatusBusy, CallStatusFailed, CallStatusNoAnswer, CallStatusCanceled:
		return true
	}
	return false
}
