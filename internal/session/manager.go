package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/domain/entities"
)

// Manager is the process-wide registry of live session workers
type Manager struct {
	mu       sync.RWMutex
	workers  map[string]*Worker
	pipeline Pipeline
	logger   *zap.Logger
}

func NewManager(pipeline Pipeline, logger *zap.Logger) *Manager {
	return &Manager{
		workers:  make(map[string]*Worker),
		pipeline: pipeline,
		logger:   logger,
	}
}

// Open creates a session and starts its worker
func (m *Manager) Open(id string, transport entities.Transport, sink Sink) (*Worker, error) {
	session := entities.NewSession(id, transport)
	if err := session.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workers[id]; ok {
		return nil, ErrSessionExists
	}

	worker := newWorker(session, sink, m.pipeline, m.logger)
	m.workers[id] = worker

	m.logger.Info("Session opened",
		zap.String("sessionID", id),
		zap.String("transport", string(transport)),
		zap.Int("activeSessions", len(m.workers)))

	return worker, nil
}

func (m *Manager) Get(id string) (*Worker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	worker, ok := m.workers[id]
	return worker, ok
}

// Close removes the session and cancels its in-flight turn. It reports
// whether the session existed.
func (m *Manager) Close(id, reason string) bool {
	m.mu.Lock()
	worker, ok := m.workers[id]
	if ok {
		delete(m.workers, id)
	}
	remaining := len(m.workers)
	m.mu.Unlock()

	if !ok {
		return false
	}

	worker.Close()
	m.logger.Info("Session closed",
		zap.String("sessionID", id),
		zap.String("reason", reason),
		zap.Int("turns", worker.Session().TurnCount()),
		zap.Int("activeSessions", remaining))
	return true
}

// CloseAll closes every session and waits for the workers to exit or ctx to expire.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	workers := m.workers
	m.workers = make(map[string]*Worker)
	m.mu.Unlock()

	for _, worker := range workers {
		worker.Close()
	}
	for id, worker := range workers {
		select {
		case <-worker.Done():
		case <-ctx.Done():
			m.logger.Warn("Session worker did not stop in time", zap.String("sessionID", id))
			return ctx.Err()
		}
	}

	m.logger.Info("All sessions closed", zap.Int("count", len(workers)))
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}
