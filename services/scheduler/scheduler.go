package scheduler

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"donationhub/pkg/task"
	"donationhub/pkg/taskname"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Start),
)

// Scheduler enqueues the daily maintenance tasks: the campaign expiry sweep
// and the ledger audit.
type Scheduler struct {
	enqueuer task.Enqueuer
	cancel   context.CancelFunc
}

func New(enqueuer task.Enqueuer) *Scheduler {
	return &Scheduler{enqueuer: enqueuer}
}

func Start(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if s.cancel != nil {
				s.cancel()
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started daily maintenance scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, 1, 0)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)
		select {
		case <-time.After(next.Sub(now)):
			s.runDaily()
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily() {
	start := time.Now()

	if _, err := s.enqueuer.Enqueue(
		asynq.NewTask(taskname.CampaignExpireSweep, nil),
		asynq.Queue("critical"),
	); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue expiry sweep", zap.Error(err))
	}

	if _, err := s.enqueuer.Enqueue(
		asynq.NewTask(taskname.LedgerAudit, nil),
		asynq.Queue("low"),
	); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue ledger audit", zap.Error(err))
	}

	zap.L().Info("[Scheduler] daily maintenance enqueued",
		zap.Duration("duration", time.Since(start)),
	)
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
