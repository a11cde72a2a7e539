package persistence

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// NATS wraps the realtime broker connection.
type NATS struct {
	Conn         *nats.Conn
	drainTimeout time.Duration
	logger       *zap.Logger
}

// NewNATS connects when a URL is configured. An empty URL yields a nil connection
// and the caller falls back to the in-process broker.
func NewNATS(cfg config.NATSConfig, appName string, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		logger.Warn("NATS_URL not provided; realtime events stay in-process")
		return &NATS{logger: logger}, nil
	}

	opts := []nats.Option{
		nats.Name(appName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.PingInterval(cfg.PingInterval),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed", zap.Error(nc.LastError()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Error("nats subscription error", zap.String("subject", sub.Subject), zap.Error(err))
				return
			}
			logger.Error("nats async error", zap.Error(err))
		}),
	}
	if !cfg.AllowReconnect {
		opts = append(opts, nats.NoReconnect())
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn, drainTimeout: cfg.DrainTimeout, logger: logger}, nil
}

// Close drains subscriptions, forcing the connection shut after the drain timeout.
func (n *NATS) Close() {
	if n == nil || n.Conn == nil {
		return
	}
	if err := n.Conn.Drain(); err != nil {
		n.logger.Warn("nats drain failed", zap.Error(err))
		n.Conn.Close()
		return
	}
	deadline := time.Now().Add(n.drainTimeout)
	for !n.Conn.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if !n.Conn.IsClosed() {
		n.logger.Warn("nats drain timeout exceeded; forcing close")
		n.Conn.Close()
	}
}
