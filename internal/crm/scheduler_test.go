package crm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingSyncer struct {
	calls int
}

func (c *countingSyncer) SyncTickets(context.Context, int, ListFilters) (int, error) {
	c.calls++
	return 3, nil
}

func TestRunOnceTakesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	syncer := &countingSyncer{}
	s := NewScheduler(syncer, rdb, time.Minute, nil)

	if !s.RunOnce(context.Background()) {
		t.Fatalf("expected sync to run")
	}
	if syncer.calls != 1 {
		t.Fatalf("expected 1 call, got %d", syncer.calls)
	}
	if mr.Exists(syncLockKey) {
		t.Fatalf("lock should be released after the run")
	}
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	if err := mr.Set(syncLockKey, "other-instance"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	syncer := &countingSyncer{}
	s := NewScheduler(syncer, rdb, time.Minute, nil)
	if s.RunOnce(context.Background()) {
		t.Fatalf("expected sync to be skipped")
	}
	if syncer.calls != 0 {
		t.Fatalf("syncer must not run while locked")
	}
	if v, _ := mr.Get(syncLockKey); v != "other-instance" {
		t.Fatalf("foreign lock must be left alone, got %q", v)
	}
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, nil, 0, nil)
	if err := s.Register("not a schedule"); err == nil {
		t.Fatalf("expected error for bad schedule")
	}
	if err := s.Register("@every 5m"); err != nil {
		t.Fatalf("register: %v", err)
	}
}
