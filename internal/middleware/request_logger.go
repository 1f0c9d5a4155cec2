package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/utils"
)

// RequestLogger logs one structured line per request, including the client
// device parsed from its User-Agent
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		device := utils.ParseUserAgent(c.Request.UserAgent())
		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"ip":          utils.GetRealIP(c),
			"device_type": device.DeviceType,
			"os":          device.OS,
			"browser":     device.Browser,
		})
		if user, ok := GetUserContext(c); ok {
			entry = entry.WithField("user_id", user.UserID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		case device.IsBot:
			entry.Debug("Request served")
		default:
			entry.Info("Request served")
		}
	}
}
