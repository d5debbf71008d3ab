// Package twilio implements the call bridge on top of Twilio: TwiML call
// control, outbound calls, webhook signatures and the Media Streams protocol.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"sort"

	twilio "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

const (
	providerName    = "twilio"
	defaultVoice    = "Polly.Amy"
	defaultLanguage = "en-US"
)

// BridgeConfig holds the Twilio account and the public address of this server
type BridgeConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	PublicBaseURL string
	Voice         string
	Language      string
}

type callCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// Bridge implements repositories.CallBridge with twilio-go
type Bridge struct {
	calls     callCreator
	validator client.RequestValidator
	config    BridgeConfig
	logger    *zap.Logger
}

var _ repositories.CallBridge = (*Bridge)(nil)

func NewBridge(config BridgeConfig, logger *zap.Logger) (*Bridge, error) {
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, fmt.Errorf("%w: twilio account sid and auth token are required", domain.ErrConfiguration)
	}
	if config.Voice == "" {
		config.Voice = defaultVoice
	}
	if config.Language == "" {
		config.Language = defaultLanguage
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})

	return &Bridge{
		calls:     rest.Api,
		validator: client.NewRequestValidator(config.AuthToken),
		config:    config,
		logger:    logger,
	}, nil
}

// StreamInstructions greets the caller and connects the call audio to streamURL
func (b *Bridge) StreamInstructions(greeting, streamURL string, params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parameters := make([]twiml.Element, 0, len(keys))
	for _, k := range keys {
		parameters = append(parameters, &twiml.VoiceParameter{Name: k, Value: params[k]})
	}

	var verbs []twiml.Element
	if greeting != "" {
		verbs = append(verbs, b.say(greeting))
	}
	verbs = append(verbs, &twiml.VoiceConnect{
		InnerElements: []twiml.Element{
			&twiml.VoiceStream{Url: streamURL, InnerElements: parameters},
		},
	})

	return twiml.Voice(verbs)
}

// HangupInstructions speaks message and ends the call
func (b *Bridge) HangupInstructions(message string) (string, error) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, b.say(message))
	}
	verbs = append(verbs, &twiml.VoiceHangup{})
	return twiml.Voice(verbs)
}

func (b *Bridge) say(message string) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: message, Voice: b.config.Voice, Language: b.config.Language}
}

// PlaceCall dials to; the answered call is routed back through /voice and its
// lifecycle reported to /call-status.
func (b *Bridge) PlaceCall(ctx context.Context, to string) (string, error) {
	if to == "" {
		return "", domain.NewProviderError(providerName, domain.KindInvalidInput, 0, "destination number is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(b.config.FromNumber)
	params.SetUrl(b.config.PublicBaseURL + "/voice")
	params.SetMethod("POST")
	params.SetStatusCallback(b.config.PublicBaseURL + "/call-status")
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})

	call, err := b.calls.CreateCall(params)
	if err != nil {
		return "", classifyError(err)
	}
	if call == nil || call.Sid == nil {
		return "", domain.NewProviderError(providerName, domain.KindTransient, 0, "call created without sid", nil)
	}

	b.logger.Info("Outbound call placed", zap.String("callSID", *call.Sid), zap.String("to", to))
	return *call.Sid, nil
}

// ValidateWebhook checks the X-Twilio-Signature of an inbound webhook
func (b *Bridge) ValidateWebhook(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	return b.validator.Validate(url, params, signature)
}

func classifyError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return domain.NewProviderError(providerName, domain.ClassifyHTTPStatus(restErr.Status), restErr.Status, restErr.Message, err)
	}
	return domain.NetworkError(providerName, err)
}
