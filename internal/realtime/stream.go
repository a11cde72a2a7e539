package realtime

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Stream bridges broker subjects to websocket clients.
type Stream struct {
	broker Broker
	logger *zap.Logger
}

// NewStream builds a stream.
func NewStream(broker Broker, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{broker: broker, logger: logger}
}

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves a websocket that relays every message published on the subject
// chosen by subject. Authorization happens in earlier middleware.
func (s *Stream) Handler(subject func(*websocket.Conn) string) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		topic := subject(conn)
		var writeMu sync.Mutex

		unsubscribe, err := s.broker.Subscribe(topic, func(payload []byte) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("websocket write failed", zap.String("subject", topic), zap.Error(err))
			}
		})
		if err != nil {
			s.logger.Error("websocket subscribe failed", zap.String("subject", topic), zap.Error(err))
			_ = conn.Close()
			return
		}
		defer unsubscribe()

		s.logger.Debug("websocket connected", zap.String("subject", topic))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("websocket closed unexpectedly", zap.String("subject", topic), zap.Error(err))
				}
				return
			}
		}
	})
}
