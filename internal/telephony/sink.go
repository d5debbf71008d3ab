package telephony

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/domain/repositories"
	"github.com/satriahrh/voicebridge/internal/session"
)

var errNoStream = errors.New("media stream not attached")

// mediaWriter is the outbound half of a media stream
type mediaWriter interface {
	SendAudio(mulaw []byte) error
	SendMark(name string) error
	Clear() error
}

// phoneSink plays turn results into the call. A caller cannot see an error
// event, so failures are spoken instead.
type phoneSink struct {
	mu     sync.Mutex
	stream mediaWriter
	// marks sent whose playback the provider has not confirmed yet
	pending map[string]int

	tts    repositories.TextToSpeech
	voice  repositories.VoiceConfig
	logger *zap.Logger
}

var _ session.Sink = (*phoneSink)(nil)

func newPhoneSink(tts repositories.TextToSpeech, voice repositories.VoiceConfig, logger *zap.Logger) *phoneSink {
	return &phoneSink{tts: tts, voice: voice, logger: logger, pending: make(map[string]int)}
}

func (p *phoneSink) attach(stream mediaWriter) {
	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
}

func (p *phoneSink) writer() mediaWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

func (p *phoneSink) SendResponse(_ context.Context, session *entities.Session, reply entities.Reply) error {
	if len(reply.Audio) == 0 {
		p.logger.Warn("Reply has no audio to play",
			zap.String("callSID", session.ID),
			zap.String("text", reply.Text))
		return nil
	}
	return p.play(session, reply.Audio, fmt.Sprintf("turn-%d", session.TurnCount()))
}

func (p *phoneSink) SendError(ctx context.Context, session *entities.Session, message string) error {
	audio, err := p.tts.SynthesizeAudio(ctx, message, p.voice)
	if err != nil {
		return fmt.Errorf("failed to synthesize apology: %w", err)
	}
	return p.play(session, audio, "error")
}

func (p *phoneSink) play(session *entities.Session, audio []byte, mark string) error {
	stream := p.writer()
	if stream == nil {
		return errNoStream
	}

	if err := stream.SendAudio(audio); err != nil {
		return fmt.Errorf("failed to stream audio: %w", err)
	}
	p.mu.Lock()
	p.pending[mark]++
	p.mu.Unlock()
	if err := stream.SendMark(mark); err != nil {
		p.markReached(mark)
		return fmt.Errorf("failed to send mark: %w", err)
	}

	p.logger.Debug("Audio sent to call",
		zap.String("callSID", session.ID),
		zap.Int("bytes", len(audio)),
		zap.String("mark", mark))
	return nil
}

// markReached records that playback up to mark has finished
func (p *phoneSink) markReached(mark string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[mark] > 1 {
		p.pending[mark]--
		return
	}
	delete(p.pending, mark)
}

// interrupt drops audio still queued for playback. It reports whether a
// clear was sent.
func (p *phoneSink) interrupt() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || len(p.pending) == 0 {
		return false, nil
	}
	clear(p.pending)
	if err := p.stream.Clear(); err != nil {
		return false, fmt.Errorf("failed to clear playback: %w", err)
	}
	return true, nil
}
