package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicebridge/internal/session"
	"github.com/satriahrh/voicebridge/internal/telephony"
	"github.com/satriahrh/voicebridge/internal/websocket"
)

const serviceName = "voicebridge"

// InitRoutes initializes all API routes. phone may be nil when telephony
// is not configured.
func InitRoutes(e *echo.Echo, sessions *session.Manager, hub *websocket.Hub, phone *telephony.Handler, logger *zap.Logger) {
	e.HTTPErrorHandler = errorHandler(logger)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Service:        serviceName,
			ActiveSessions: sessions.Count(),
			BrowserClients: hub.ClientCount(),
		})
	})

	// Browser audio sessions
	e.GET("/ws", hub.HandleWebSocket)

	// Phone calls
	if phone != nil {
		phone.Register(e)
	} else {
		logger.Warn("Telephony routes disabled")
	}
}

// errorHandler renders echo errors as ErrorResponse
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{Error: http.StatusText(code), Message: message})
	}
}
