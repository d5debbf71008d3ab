package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/internal/session"
)

var errClientClosed = errors.New("client connection closed")

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and its session
// worker. It is the browser implementation of session.Sink.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; done signals shutdown.
	send chan WriteData
	done chan struct{}

	closeOnce sync.Once

	sessionID string
	worker    *session.Worker

	logger *zap.Logger
}

var _ session.Sink = (*Client)(nil)

func newClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		done:      make(chan struct{}),
		sessionID: sessionID,
		logger:    hub.logger.With(zap.String("sessionID", sessionID)),
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// SendResponse relays a completed turn as an assistant_response event
func (c *Client) SendResponse(_ context.Context, _ *entities.Session, reply entities.Reply) error {
	return c.sendJSON(NewAssistantResponse(reply, c.hub.audioFormat))
}

// SendError relays a failed turn as an error event
func (c *Client) SendError(_ context.Context, _ *entities.Session, message string) error {
	return c.sendJSON(NewErrorMessage(message))
}

func (c *Client) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case <-c.done:
		return errClientClosed
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return nil
	}
}

// readPump pumps messages from the websocket connection to the session worker.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			// raw recorded audio, same as an audio_data event
			c.submitAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles one JSON message from the browser
func (c *Client) processMessage(message []byte) {
	msg, err := ParseInboundMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		_ = c.sendJSON(NewErrorMessage(err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		_ = c.sendJSON(NewPongMessage(msg.Data))

	case MessageTypeAudioData:
		audio, err := msg.DecodeAudio()
		if err != nil {
			c.logger.Warn("Rejected audio", zap.Error(err))
			_ = c.sendJSON(NewErrorMessage(err.Error()))
			return
		}
		c.submitAudio(audio)
	}
}

func (c *Client) submitAudio(audio []byte) {
	if c.worker == nil {
		return
	}

	c.logger.Debug("Received audio", zap.Int("size", len(audio)))

	if err := c.worker.Submit(audio); err != nil {
		c.logger.Warn("Dropping audio for closed session", zap.Error(err))
	}
}
