// Package session runs one goroutine per live conversation. Transports hand
// inbound utterances to a Worker as messages; the Worker drives them through
// the pipeline in arrival order and hands the outcome to the transport's Sink.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/entities"
)

var (
	ErrSessionExists = errors.New("session already exists")
	ErrSessionClosed = errors.New("session closed")
)

const inboxSize = 32

// Pipeline turns one utterance into a reply
type Pipeline interface {
	HandleUtterance(ctx context.Context, session *entities.Session, audio []byte) (entities.Reply, error)
}

// Sink delivers the outcome of a turn back through the originating transport
type Sink interface {
	SendResponse(ctx context.Context, session *entities.Session, reply entities.Reply) error
	SendError(ctx context.Context, session *entities.Session, message string) error
}

// Worker owns a single Session and processes its utterances sequentially
type Worker struct {
	session  *entities.Session
	sink     Sink
	pipeline Pipeline
	logger   *zap.Logger

	inbox     chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newWorker(session *entities.Session, sink Sink, pipeline Pipeline, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		session:  session,
		sink:     sink,
		pipeline: pipeline,
		logger:   logger.With(zap.String("sessionID", session.ID), zap.String("transport", string(session.Transport))),
		inbox:    make(chan []byte, inboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) Session() *entities.Session {
	return w.session
}

func (w *Worker) Sink() Sink {
	return w.sink
}

// Submit queues an utterance. It blocks while the inbox is full and returns
// ErrSessionClosed once the worker has been closed.
func (w *Worker) Submit(audio []byte) error {
	if w.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case <-w.ctx.Done():
		return ErrSessionClosed
	case w.inbox <- audio:
		return nil
	}
}

// Close cancels the in-flight turn and ends the session. It does not wait
// for the goroutine; use Done for that.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.session.End()
		w.cancel()
	})
}

// Done is closed once the worker goroutine has exited
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return
		case audio := <-w.inbox:
			w.process(audio)
		}
	}
}

func (w *Worker) process(audio []byte) {
	if w.ctx.Err() != nil {
		return
	}

	reply, err := w.pipeline.HandleUtterance(w.ctx, w.session, audio)
	// Close ends the session before cancelling, so a turn finishing in
	// between sees ErrSessionEnded with a live context.
	if w.ctx.Err() != nil || errors.Is(err, entities.ErrSessionEnded) {
		w.logger.Info("Discarding turn of closed session")
		return
	}

	if err != nil {
		if sendErr := w.sink.SendError(w.ctx, w.session, UserMessage(err)); sendErr != nil {
			w.logger.Error("Failed to deliver error event", zap.Error(sendErr))
		}
		return
	}

	if err := w.sink.SendResponse(w.ctx, w.session, reply); err != nil {
		w.logger.Error("Failed to deliver response", zap.Error(err))
	}
}

// UserMessage is the client-facing text for a failed turn
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoSpeech):
		return "Sorry, I didn't catch that. Could you say it again?"
	case errors.Is(err, domain.ErrTranscription):
		return "Sorry, I couldn't understand the audio. Please try again."
	case errors.Is(err, domain.ErrGeneration):
		return "Sorry, I couldn't come up with a response right now."
	default:
		return "Something went wrong while processing your message."
	}
}
