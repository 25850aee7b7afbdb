package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// FromContext returns the request-scoped logger set by Middleware. Outside
// a logged request it falls back to the global logger tagged with whatever
// request id can still be recovered.
func FromContext(c echo.Context) *zap.Logger {
	if requestLogger, ok := c.Get("logger").(*zap.Logger); ok {
		return requestLogger
	}

	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		requestID = c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}

	return GetLogger().With(zap.String("request_id", requestID))
}
