package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestNewRedisAppliesPoolSettings(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{
		Addr:        mr.Addr(),
		PoolSize:    7,
		DialTimeout: time.Second,
		PingTimeout: time.Second,
	}, nil)
	defer r.Close()

	if got := r.Client.Options().PoolSize; got != 7 {
		t.Fatalf("pool size = %d", got)
	}
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewRedisDoesNotBlockOnDeadServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	r := NewRedis(context.Background(), config.RedisConfig{
		Addr:        addr,
		DialTimeout: 100 * time.Millisecond,
		PingTimeout: 200 * time.Millisecond,
	}, nil)
	defer r.Close()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("startup blocked for %s", elapsed)
	}
	if err := r.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error against a stopped server")
	}
}

func TestNilRedisPingFails(t *testing.T) {
	var r *Redis
	if err := r.Ping(context.Background()); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
	r.Close()
}
