package twilio

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Media Streams event names
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
	EventDTMF      = "dtmf"
)

const (
	// mu-law 8 kHz: 3200 bytes is 400ms of audio per outbound media message
	outboundChunkSize = 3200
	writeWait         = 10 * time.Second
)

// MediaEvent is one inbound Media Streams message
type MediaEvent struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSid      string        `json:"streamSid,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
	Mark           *MarkPayload  `json:"mark,omitempty"`
	Stop           *StopPayload  `json:"stop,omitempty"`
	DTMF           *DTMFPayload  `json:"dtmf,omitempty"`
}

type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	AccountSid       string            `json:"accountSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// DTMFPayload carries one key press on the caller's keypad
type DTMFPayload struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // base64-encoded mulaw audio
}

type MarkPayload struct {
	Name string `json:"name"`
}

type StopPayload struct {
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
}

// Audio decodes the base64 mu-law payload of a media event.
func (e *MediaEvent) Audio() ([]byte, error) {
	if e.Media == nil {
		return nil, fmt.Errorf("event %q carries no media", e.Event)
	}
	return base64.StdEncoding.DecodeString(e.Media.Payload)
}

type outboundMessage struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid"`
	Media     *MediaPayload `json:"media,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// frameConn is the part of *websocket.Conn a MediaStream needs
type frameConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// MediaStream speaks the Media Streams protocol over one call's WebSocket.
// Reads must come from a single goroutine; writes are serialised internally.
type MediaStream struct {
	conn frameConn

	mu        sync.Mutex
	streamSid string
	closed    bool
}

func NewMediaStream(conn frameConn) *MediaStream {
	return &MediaStream{conn: conn}
}

// ReadEvent blocks for the next inbound event. The stream id from the
// start event is remembered for outbound messages.
func (m *MediaStream) ReadEvent() (*MediaEvent, error) {
	for {
		messageType, data, err := m.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event MediaEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal media stream message: %w", err)
		}

		if event.Event == EventStart && event.Start != nil {
			m.mu.Lock()
			m.streamSid = event.Start.StreamSid
			m.mu.Unlock()
		}
		return &event, nil
	}
}

func (m *MediaStream) StreamSid() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamSid
}

// SendAudio writes mu-law audio back into the call as media messages.
func (m *MediaStream) SendAudio(mulaw []byte) error {
	for start := 0; start < len(mulaw); start += outboundChunkSize {
		end := start + outboundChunkSize
		if end > len(mulaw) {
			end = len(mulaw)
		}
		msg := outboundMessage{
			Event: EventMedia,
			Media: &MediaPayload{Payload: base64.StdEncoding.EncodeToString(mulaw[start:end])},
		}
		if err := m.write(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendMark asks the provider to echo name back once playback reaches it.
func (m *MediaStream) SendMark(name string) error {
	return m.write(outboundMessage{Event: EventMark, Mark: &MarkPayload{Name: name}})
}

// Clear drops any audio still buffered for playback.
func (m *MediaStream) Clear() error {
	return m.write(outboundMessage{Event: EventClear})
}

func (m *MediaStream) write(msg outboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return websocket.ErrCloseSent
	}
	if m.streamSid == "" {
		return fmt.Errorf("media stream not started")
	}
	msg.StreamSid = m.streamSid

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Event, err)
	}

	_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return m.conn.WriteMessage(websocket.TextMessage, data)
}

func (m *MediaStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.conn.Close()
}
