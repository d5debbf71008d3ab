// Package telephony is the phone-call transport: Twilio webhooks, outbound
// calls and the Media Streams socket that carries call audio.
package telephony

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
	"github.com/satriahrh/voicebridge/internal/audio"
	"github.com/satriahrh/voicebridge/internal/auth"
	"github.com/satriahrh/voicebridge/internal/session"
)

const (
	signatureHeader = "X-Twilio-Signature"
	unavailableText = "Sorry, the assistant is unavailable right now. Please try again later."
)

// Options configures the phone transport
type Options struct {
	PublicBaseURL     string
	Greeting          string
	ValidateSignature bool
	APIKey            string // bearer key for /make-call; empty disables the route
	Voice             repositories.VoiceConfig
	Segmenter         audio.SegmenterConfig
}

// Handler serves the telephony webhooks and media streams
type Handler struct {
	sessions *session.Manager
	bridge   repositories.CallBridge
	signer   *auth.Signer
	tts      repositories.TextToSpeech
	options  Options
	logger   *zap.Logger
}

func NewHandler(
	sessions *session.Manager,
	bridge repositories.CallBridge,
	signer *auth.Signer,
	tts repositories.TextToSpeech,
	options Options,
	logger *zap.Logger,
) *Handler {
	options.PublicBaseURL = strings.TrimRight(options.PublicBaseURL, "/")
	return &Handler{
		sessions: sessions,
		bridge:   bridge,
		signer:   signer,
		tts:      tts,
		options:  options,
		logger:   logger,
	}
}

// Register mounts the phone routes on e
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/voice", h.Voice, h.verifySignature)
	e.POST("/call-status", h.CallStatus, h.verifySignature)
	e.GET("/media", h.Media)

	if h.options.APIKey == "" {
		h.logger.Warn("Outbound calls disabled: no API key configured")
		return
	}
	e.POST("/make-call", h.MakeCall, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(h.options.APIKey)) == 1, nil
		},
	}))
}

// Voice answers an inbound (or freshly connected outbound) call
func (h *Handler) Voice(c echo.Context) error {
	callSID := c.FormValue("CallSid")
	status := c.FormValue("CallStatus")
	if callSID == "" {
		return c.String(http.StatusBadRequest, "missing CallSid")
	}

	h.logger.Info("Incoming call",
		zap.String("callSID", callSID),
		zap.String("from", c.FormValue("From")),
		zap.String("to", c.FormValue("To")),
		zap.String("status", status))

	worker, err := h.sessions.Open(callSID, entities.TransportPhone, newPhoneSink(h.tts, h.options.Voice, h.logger))
	if errors.Is(err, session.ErrSessionExists) {
		worker, _ = h.sessions.Get(callSID)
	} else if err != nil {
		h.logger.Error("Failed to open call session", zap.String("callSID", callSID), zap.Error(err))
		return h.hangup(c, unavailableText)
	}
	if worker != nil && status != "" {
		worker.Session().SetCallStatus(status)
	}

	token, err := h.signer.IssueStreamToken(callSID)
	if err != nil {
		h.logger.Error("Failed to issue stream token", zap.String("callSID", callSID), zap.Error(err))
		h.sessions.Close(callSID, "token error")
		return h.hangup(c, unavailableText)
	}

	twiml, err := h.bridge.StreamInstructions(h.options.Greeting, h.streamURL(), map[string]string{"token": token})
	if err != nil {
		h.logger.Error("Failed to build call instructions", zap.String("callSID", callSID), zap.Error(err))
		h.sessions.Close(callSID, "instructions error")
		return h.hangup(c, unavailableText)
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, []byte(twiml))
}

func (h *Handler) hangup(c echo.Context, message string) error {
	twiml, err := h.bridge.HangupInstructions(message)
	if err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, []byte(twiml))
}

// CallStatus records lifecycle notifications and tears the session down
// once the call is over.
func (h *Handler) CallStatus(c echo.Context) error {
	callSID := c.FormValue("CallSid")
	status := c.FormValue("CallStatus")

	h.logger.Info("Call status update",
		zap.String("callSID", callSID),
		zap.String("status", status),
		zap.String("duration", c.FormValue("CallDuration")))

	if worker, ok := h.sessions.Get(callSID); ok {
		worker.Session().SetCallStatus(status)
	}
	if repositories.IsTerminalCallStatus(status) {
		h.sessions.Close(callSID, status)
	}

	return c.NoContent(http.StatusNoContent)
}

// MakeCallRequest accepts JSON or form input
type MakeCallRequest struct {
	ToNumber string `json:"to_number" form:"to_number"`
}

type MakeCallResponse struct {
	Status  string `json:"status"`
	CallSID string `json:"call_sid,omitempty"`
	Message string `json:"message,omitempty"`
}

// MakeCall places an outbound call that is answered by /voice
func (h *Handler) MakeCall(c echo.Context) error {
	var req MakeCallRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind make-call request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, MakeCallResponse{Status: "error", Message: "Invalid request format"})
	}

	req.ToNumber = strings.TrimSpace(req.ToNumber)
	if req.ToNumber == "" {
		return c.JSON(http.StatusBadRequest, MakeCallResponse{Status: "error", Message: "to_number is required"})
	}

	callSID, err := h.bridge.PlaceCall(c.Request().Context(), req.ToNumber)
	if err != nil {
		h.logger.Error("Failed to place call",
			zap.String("to", req.ToNumber),
			zap.String("provider", domain.ProviderOf(err)),
			zap.Error(err))

		code := http.StatusBadGateway
		if domain.IsInvalidInput(err) {
			code = http.StatusBadRequest
		}
		return c.JSON(code, MakeCallResponse{Status: "error", Message: err.Error()})
	}

	return c.JSON(http.StatusOK, MakeCallResponse{Status: "success", CallSID: callSID})
}

// verifySignature rejects webhooks that were not signed by the provider
func (h *Handler) verifySignature(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.options.ValidateSignature {
			return next(c)
		}

		if _, err := c.FormParams(); err != nil {
			return c.String(http.StatusBadRequest, "invalid form")
		}
		params := make(map[string]string)
		for key, values := range c.Request().PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		url := h.options.PublicBaseURL + c.Request().RequestURI
		if !h.bridge.ValidateWebhook(url, params, c.Request().Header.Get(signatureHeader)) {
			h.logger.Warn("Rejected unsigned webhook", zap.String("path", c.Path()), zap.String("url", url))
			return c.String(http.StatusForbidden, "invalid signature")
		}
		return next(c)
	}
}

// streamURL is the public WebSocket address of /media
func (h *Handler) streamURL() string {
	base := h.options.PublicBaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/media"
}
