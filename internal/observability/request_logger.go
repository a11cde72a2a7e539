package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProfileIDLocal is the fiber locals key under which auth middleware stores the caller id.
const ProfileIDLocal = "profile_id"

// RequestLogger logs one structured line per request and feeds request metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		metrics.RecordRequest(route, c.Method(), status, duration)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", duration),
		}
		if id, ok := c.Locals(ProfileIDLocal).(string); ok && id != "" {
			fields = append(fields, zap.String("profile_id", id))
		}
		logger.Info("request", fields...)
		return err
	}
}
