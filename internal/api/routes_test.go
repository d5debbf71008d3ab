package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicebridge/domain/entities"
	"github.com/satriahrh/voicebridge/internal/session"
	"github.com/satriahrh/voicebridge/internal/websocket"
)

type nopPipeline struct{}

func (nopPipeline) HandleUtterance(context.Context, *entities.Session, []byte) (entities.Reply, error) {
	return entities.Reply{}, nil
}

type nopSink struct{}

func (nopSink) SendResponse(context.Context, *entities.Session, entities.Reply) error { return nil }
func (nopSink) SendError(context.Context, *entities.Session, string) error            { return nil }

func setupRoutes(t *testing.T) (*echo.Echo, *session.Manager) {
	logger := zaptest.NewLogger(t)
	manager := session.NewManager(nopPipeline{}, logger)
	hub := websocket.NewHub(manager, "mp3_44100_128", logger)

	e := echo.New()
	InitRoutes(e, manager, hub, nil, logger)
	return e, manager
}

func TestHealth(t *testing.T) {
	e, manager := setupRoutes(t)
	if _, err := manager.Open("CA1", entities.TransportPhone, nopSink{}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != "ok" || resp.ActiveSessions != 1 || resp.BrowserClients != 0 {
		t.Errorf("Unexpected health %+v", resp)
	}
}

func TestTelephonyRoutesDisabled(t *testing.T) {
	e, _ := setupRoutes(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/voice", nil))

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected phone routes to be absent, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Errorf("Expected an ErrorResponse body, got %s", rec.Body.String())
	}
}
