package scheduler

import (
	"context"
	"time"

	"vwaptrader/internal/logger"
)

// Task runs one cycle and returns how long to wait before the next one.
// A non-positive wait falls back to the scheduler interval.
type Task func(ctx context.Context) time.Duration

// CadenceScheduler runs a task on a fixed cadence. Unlike a ticker the
// next wait is measured from the end of the previous run, so a slow cycle
// never queues up a burst of catch-up runs.
type CadenceScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	nowFn   func() time.Time
	afterFn func(d time.Duration) (<-chan time.Time, func() bool)
}

func NewCadenceScheduler(name string, interval time.Duration) *CadenceScheduler {
	return &CadenceScheduler{
		Name:           name,
		Interval:       interval,
		RunImmediately: true,
		nowFn:          time.Now,
		afterFn:        newTimer,
	}
}

func newTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Start blocks until ctx is done.
func (s *CadenceScheduler) Start(ctx context.Context, task Task) {
	if s == nil {
		return
	}
	prefix := "CadenceScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", prefix)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", prefix, s.Interval)
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.afterFn == nil {
		s.afterFn = newTimer
	}

	startAt := s.nowFn()
	logger.Infof("%s: started interval=%s run_immediately=%v at=%s",
		prefix, s.Interval, s.RunImmediately, startAt.Format(time.RFC3339))

	wait := s.Interval
	if s.RunImmediately {
		wait = s.run(ctx, task)
	}
	for {
		if ctx.Err() != nil {
			logger.Infof("%s: ctx done, exit | uptime=%s", prefix, s.nowFn().Sub(startAt).Truncate(time.Second))
			return
		}
		logger.Debugf("%s: next run in %s", prefix, wait)
		ch, stop := s.afterFn(wait)
		select {
		case <-ctx.Done():
			stop()
			logger.Infof("%s: ctx done, exit | uptime=%s", prefix, s.nowFn().Sub(startAt).Truncate(time.Second))
			return
		case <-ch:
		}
		wait = s.run(ctx, task)
	}
}

func (s *CadenceScheduler) run(ctx context.Context, task Task) time.Duration {
	wait := task(ctx)
	if wait <= 0 {
		wait = s.Interval
	}
	return wait
}

// Backoff returns min(base*2^(failures-1), max). Zero failures means no
// backoff.
func Backoff(base, max time.Duration, failures int) time.Duration {
	if failures <= 0 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
