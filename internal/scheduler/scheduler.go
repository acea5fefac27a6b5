package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	obsmetrics "github.com/smallbiznis/mailroom/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobFeeRecalculation = "fee_recalculation"

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Fees    feedomain.Service
	Locker  Locker                       `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
	Config  Config                       `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	fees    feedomain.Service
	locker  Locker
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Fees == nil {
		return nil, ErrInvalidConfig
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		fees:    p.Fees,
		locker:  p.Locker,
		metrics: m,
	}, nil
}

// runJob executes fn under a timeout. With a locker configured, the job is
// skipped when another replica holds its lock. Deadline errors are logged
// and swallowed so one slow run does not fail the loop.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	if s.locker != nil {
		key := s.cfg.LockPrefix + name
		token, ok, err := s.locker.TryLock(parent, key, s.cfg.LockTTL)
		if err != nil {
			s.metrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLockFailure)
			s.log.Warn("scheduler lock failed", zap.String("job", name), zap.Error(err))
			return nil
		}
		if !ok {
			s.metrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLockHeld)
			s.log.Debug("scheduler lock held elsewhere", zap.String("job", name))
			return nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.Release(releaseCtx, key, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		s.logJobFinish(ctx, run, nil)
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logJobFinish(ctx, run, nil)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.logJobFinish(ctx, run, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobFeeRecalculation, s.cfg.RecalcTimeout, s.FeeRecalculationJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

// FeeRecalculationJob refreshes every pending fee across tenants.
func (s *Scheduler) FeeRecalculationJob(ctx context.Context) error {
	summary, err := s.fees.RecalculateAll(ctx, feedomain.RecalculateRequest{})
	if err != nil {
		return err
	}

	run := jobRunFromContext(ctx)
	run.AddProcessed(summary.Updated)
	run.AddSkipped(summary.Skipped)
	run.AddErrors(summary.Errors)

	s.metrics.AddFeeRows("updated", summary.Updated)
	s.metrics.AddFeeRows("skipped", summary.Skipped)
	s.metrics.AddFeeRows("error", summary.Errors)
	return nil
}
