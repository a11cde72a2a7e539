package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const syncLockKey = "crm:sync:lock"

// releaseScript deletes the lock only when this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Syncer runs one sync pass.
type Syncer interface {
	SyncTickets(ctx context.Context, page int, filters ListFilters) (int, error)
}

// Scheduler runs periodic syncs. A redis lock keeps concurrent instances from syncing together.
type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	redis    redis.Cmdable
	lockTTL  time.Duration
	instance string
	logger   *zap.Logger
}

// NewScheduler builds a scheduler. A nil redis client disables locking.
func NewScheduler(syncer Syncer, rdb redis.Cmdable, lockTTL time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 4 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		syncer:   syncer,
		redis:    rdb,
		lockTTL:  lockTTL,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

// Register adds the sync job on spec, e.g. "@every 5m".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("register crm sync %q: %w", spec, err)
	}
	s.logger.Info("crm sync scheduled", zap.String("schedule", spec))
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("crm sync still running at shutdown")
	}
}

// RunOnce syncs the first page unless another instance holds the lock. It reports whether a sync ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	acquired, err := s.acquire(ctx)
	if err != nil {
		s.logger.Warn("crm sync lock failed", zap.Error(err))
		return false
	}
	if !acquired {
		s.logger.Debug("crm sync already running elsewhere")
		return false
	}
	defer s.release()

	started := time.Now()
	upserted, err := s.syncer.SyncTickets(ctx, 1, ListFilters{})
	if err != nil {
		s.logger.Warn("scheduled crm sync failed", zap.Error(err))
		return true
	}
	s.logger.Info("scheduled crm sync finished",
		zap.Int("upserted", upserted),
		zap.Duration("took", time.Since(started)))
	return true
}

func (s *Scheduler) acquire(ctx context.Context) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	return s.redis.SetNX(ctx, syncLockKey, s.instance, s.lockTTL).Result()
}

func (s *Scheduler) release() {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, s.redis, []string{syncLockKey}, s.instance).Err(); err != nil && err != redis.Nil {
		s.logger.Warn("crm sync lock release failed", zap.Error(err))
	}
}
