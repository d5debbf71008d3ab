package telephony

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/adapters/twilio"
	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/internal/audio"
	"github.com/satriahrh/voicebridge/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Media upgrades the provider's media-stream connection and serves it until
// the call stops or the socket drops.
func (h *Handler) Media(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("Media stream upgrade failed", zap.Error(err))
		return err
	}

	h.serveMediaStream(twilio.NewMediaStream(conn))
	return nil
}

func (h *Handler) serveMediaStream(stream *twilio.MediaStream) {
	defer stream.Close()

	var (
		callSID   string
		worker    *session.Worker
		sink      *phoneSink
		segmenter = audio.NewSegmenter(h.options.Segmenter)
		frames    int
	)

	defer func() {
		if callSID != "" {
			h.sessions.Close(callSID, "media stream closed")
		}
	}()

	for {
		event, err := stream.ReadEvent()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Media stream error", zap.String("callSID", callSID), zap.Error(err))
			}
			return
		}

		switch event.Event {
		case twilio.EventConnected:
			h.logger.Debug("Media stream connected")

		case twilio.EventStart:
			if event.Start == nil {
				h.logger.Warn("Start event without payload")
				return
			}
			worker, sink, err = h.attach(event.Start, stream)
			if err != nil {
				h.logger.Warn("Rejected media stream",
					zap.String("callSID", event.Start.CallSid),
					zap.Error(err))
				return
			}
			callSID = event.Start.CallSid
			h.logger.Info("Media stream started",
				zap.String("callSID", callSID),
				zap.String("streamSID", event.Start.StreamSid),
				zap.String("encoding", event.Start.MediaFormat.Encoding),
				zap.Int("sampleRate", event.Start.MediaFormat.SampleRate))

		case twilio.EventMedia:
			if worker == nil || event.Media == nil {
				continue
			}
			if event.Media.Track != "" && event.Media.Track != "inbound" {
				continue
			}
			frame, err := event.Audio()
			if err != nil {
				h.logger.Warn("Undecodable media frame", zap.String("callSID", callSID), zap.Error(err))
				continue
			}
			frames++

			if utterance := segmenter.Push(frame); utterance != nil {
				h.logger.Debug("Utterance detected",
					zap.String("callSID", callSID),
					zap.Int("bytes", len(utterance)),
					zap.Int("frames", frames))
				// the caller spoke over the previous reply
				if cleared, err := sink.interrupt(); err != nil {
					h.logger.Warn("Failed to interrupt playback", zap.String("callSID", callSID), zap.Error(err))
				} else if cleared {
					h.logger.Debug("Playback interrupted", zap.String("callSID", callSID))
				}
				if err := worker.Submit(utterance); err != nil {
					return
				}
			}

		case twilio.EventMark:
			if event.Mark != nil && sink != nil {
				sink.markReached(event.Mark.Name)
				h.logger.Debug("Playback reached mark", zap.String("callSID", callSID), zap.String("mark", event.Mark.Name))
			}

		case twilio.EventDTMF:
			if event.DTMF != nil {
				h.logger.Info("Caller pressed key", zap.String("callSID", callSID), zap.String("digit", event.DTMF.Digit))
			}

		case twilio.EventStop:
			h.logger.Info("Media stream stopped", zap.String("callSID", callSID), zap.Int("frames", frames))
			return

		default:
			h.logger.Debug("Ignoring media stream event", zap.String("event", event.Event))
		}
	}
}

// attach checks the stream token and connects the stream to the call's sink
func (h *Handler) attach(start *twilio.StartPayload, stream *twilio.MediaStream) (*session.Worker, *phoneSink, error) {
	claims, err := h.signer.ValidateStreamToken(start.CustomParameters["token"])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if claims.CallSID != start.CallSid {
		return nil, nil, fmt.Errorf("%w: token issued for another call", domain.ErrTransport)
	}

	worker, ok := h.sessions.Get(start.CallSid)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no session for call", domain.ErrTransport)
	}
	sink, ok := worker.Sink().(*phoneSink)
	if !ok {
		return nil, nil, errors.New("session is not a phone session")
	}

	sink.attach(stream)
	return worker, sink, nil
}
