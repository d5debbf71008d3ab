package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeConnectionResponse MessageType = "connection_response"
	MessageTypeAudioData          MessageType = "audio_data"
	MessageTypeAssistantResponse  MessageType = "assistant_response"
	MessageTypePing               MessageType = "ping"
	MessageTypePong               MessageType = "pong"
	MessageTypeError              MessageType = "error"
)

// InboundMessage is any JSON message sent by the browser
type InboundMessage struct {
	Type  MessageType `json:"type"`
	Audio string      `json:"audio,omitempty"` // base64 encoded
	Data  string      `json:"data,omitempty"`
}

// ConnectionResponse is sent once the session is ready
type ConnectionResponse struct {
	Type      MessageType `json:"type"`
	Data      string      `json:"data"`
	SessionID string      `json:"session_id"`
	Timestamp string      `json:"timestamp"`
}

// AssistantResponse carries one completed turn back to the browser.
// Audio is null when synthesis failed.
type AssistantResponse struct {
	Type             MessageType `json:"type"`
	Text             string      `json:"text"`
	Transcript       string      `json:"transcript,omitempty"`
	Emotion          string      `json:"emotion"`
	EmotionIntensity float64     `json:"emotion_intensity"`
	Audio            *string     `json:"audio"`
	AudioFormat      string      `json:"audio_format,omitempty"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type PongMessage struct {
	Type      MessageType `json:"type"`
	Data      string      `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ParseInboundMessage decodes and validates a browser message.
// Failures are transport errors: they are reported to the client and the
// session carries on.
func ParseInboundMessage(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON format: %v", domain.ErrTransport, err)
	}

	switch msg.Type {
	case MessageTypeAudioData:
		if msg.Audio == "" {
			return nil, fmt.Errorf("%w: audio is required", domain.ErrTransport)
		}
	case MessageTypePing:
	case "":
		return nil, fmt.Errorf("%w: message missing type field", domain.ErrTransport)
	default:
		return nil, fmt.Errorf("%w: unsupported message type: %s", domain.ErrTransport, msg.Type)
	}

	return &msg, nil
}

// DecodeAudio returns the raw bytes of an audio_data message
func (m *InboundMessage) DecodeAudio() ([]byte, error) {
	audio, err := base64.StdEncoding.DecodeString(m.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: audio is not valid base64: %v", domain.ErrTransport, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: audio is empty", domain.ErrTransport)
	}
	return audio, nil
}

func NewConnectionResponse(sessionID string) *ConnectionResponse {
	return &ConnectionResponse{
		Type:      MessageTypeConnectionResponse,
		Data:      "Connected",
		SessionID: sessionID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func NewAssistantResponse(reply entities.Reply, audioFormat string) *AssistantResponse {
	msg := &AssistantResponse{
		Type:             MessageTypeAssistantResponse,
		Text:             reply.Text,
		Transcript:       reply.Transcript,
		Emotion:          reply.Emotion.Label,
		EmotionIntensity: reply.Emotion.Intensity,
	}
	if len(reply.Audio) > 0 {
		encoded := base64.StdEncoding.EncodeToString(reply.Audio)
		msg.Audio = &encoded
		msg.AudioFormat = audioFormat
	}
	return msg
}

func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{Type: MessageTypeError, Message: message}
}

func NewPongMessage(data string) *PongMessage {
	return &PongMessage{
		Type:      MessageTypePong,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
