package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/indicator"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/market"
	"vwaptrader/internal/pkg/circuit"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/scheduler"
	"vwaptrader/internal/store"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

// Engine is the decision loop. It owns the trading state, polls the broker
// on a fixed cadence and applies entry and exit decisions. Broker calls are
// made without the state lock; results are applied under it.
type Engine struct {
	opts     Options
	broker   broker.Broker
	recorder store.Recorder
	window   *scheduler.SessionWindow
	breakers *circuit.Set

	mu    sync.Mutex
	st    *state
	cycle int64

	failures int
	snap     atomic.Pointer[Snapshot]
	orderSeq atomic.Int64

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) error
}

// New builds an engine. recorder may be nil, in which case nothing is
// persisted.
func New(opts Options, b broker.Broker, recorder store.Recorder, window *scheduler.SessionWindow) *Engine {
	e := &Engine{
		opts:     opts,
		broker:   b,
		recorder: recorder,
		window:   window,
		breakers: circuit.NewSet(opts.BreakerThreshold, opts.BreakerTimeout),
		st:       newState(opts, indicator.NewEngine(opts.EMASpan, window.Location())),
		nowFn:    time.Now,
		sleepFn:  sleepCtx,
	}
	e.snap.Store(&Snapshot{})
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetInstruments replaces the traded universe.
func (e *Engine) SetInstruments(insts []market.Instrument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.setInstruments(insts)
}

func (e *Engine) instruments() []market.Instrument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]market.Instrument(nil), e.st.instruments...)
}

// Snapshot returns the last published snapshot. Never nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Series returns a copy of the symbol's indicator series.
func (e *Engine) Series(symbol string) ([]indicator.Point, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.st.bySymbol[symbol]; !ok {
		return nil, fmt.Errorf("series %s: %w", symbol, ErrUnknownInstrument)
	}
	return e.st.indicators.Points(symbol), nil
}

// RequestManualExit queues a manual close for the symbol's open position.
// The loop executes it on its next quote for the symbol. A position whose
// exit is already pending is refused with position.ErrExitPending.
func (e *Engine) RequestManualExit(symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.st.positions.Get(symbol)
	if !ok {
		return fmt.Errorf("manual exit %s: %w", symbol, position.ErrNoPosition)
	}
	if pos.PendingExit != nil {
		return fmt.Errorf("manual exit %s (%s pending): %w", symbol, pos.PendingExit.Reason, position.ErrExitPending)
	}
	e.st.manual[symbol] = true
	logger.Infof("Engine: manual exit requested for %s", symbol)
	return nil
}

// UpdateRisk applies hot-reloaded risk limits.
func (e *Engine) UpdateRisk(cfg risk.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.governor.Update(cfg)
	e.opts.Risk = cfg
}

// Run drives cycles until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	s := scheduler.NewCadenceScheduler("engine", e.opts.Interval)
	s.Start(ctx, e.RunCycle)
	e.persistSession(context.Background(), e.Snapshot().Session)
	return nil
}

// RunCycle runs one pass over the universe and returns the wait before the
// next pass.
func (e *Engine) RunCycle(ctx context.Context) time.Duration {
	now := e.nowFn()
	e.rollover(ctx, now)
	phase := e.window.Phase(now)

	e.mu.Lock()
	hasOpen := len(e.st.positions.OpenPositions()) > 0
	e.mu.Unlock()
	if phase == scheduler.PhaseClosed && !hasOpen {
		e.publish(now, phase)
		idle := e.opts.IdleInterval
		if idle <= 0 {
			idle = e.opts.Interval
		}
		return idle
	}

	failed := false
	var samples []savedSample
	for _, inst := range e.instruments() {
		if ctx.Err() != nil {
			break
		}
		out, err := e.pollInstrument(ctx, inst, now, phase)
		if err != nil {
			failed = true
			continue
		}
		if out.sample != nil {
			samples = append(samples, savedSample{symbol: inst.Symbol, sample: *out.sample})
		}
		if out.entry != nil && ctx.Err() == nil {
			if err := e.tryEnter(ctx, inst, *out.entry); err != nil {
				failed = true
			}
		}
	}
	if e.processExits(ctx, now) {
		failed = true
	}
	e.persistSamples(ctx, samples)

	if failed {
		e.failures++
	} else {
		e.failures = 0
	}
	e.publish(now, phase)
	return e.opts.Interval + scheduler.Backoff(e.opts.BackoffBase, e.opts.BackoffMax, e.failures)
}

type savedSample struct {
	symbol string
	sample market.Sample
}

// rollover starts a new session when the trading date changes.
func (e *Engine) rollover(ctx context.Context, now time.Time) {
	key := e.window.Key(now)
	e.mu.Lock()
	prev := e.st.session
	if prev == key {
		e.mu.Unlock()
		return
	}
	prevSummary := e.st.governor.Summary()
	e.st.governor.Rollover(key)
	e.st.debouncer.Reset()
	clear(e.st.manual)
	e.st.session = key
	e.mu.Unlock()

	if prev != "" {
		logger.Infof("Engine: session rollover %s -> %s (pnl=%.2f trades=%d)", prev, key, prevSummary.DailyPnL, prevSummary.ClosedTrades)
		e.saveSession(ctx, prev, prevSummary)
	}
}

func (e *Engine) publish(now time.Time, phase scheduler.Phase) {
	feeds := e.breakers.States()
	e.mu.Lock()
	e.cycle++
	snap := e.st.buildSnapshot(e.cycle, now, string(phase), feeds, e.failures)
	e.mu.Unlock()
	e.snap.Store(snap)
}

func (e *Engine) persistSamples(ctx context.Context, samples []savedSample) {
	if e.recorder == nil {
		return
	}
	for _, s := range samples {
		if err := e.recorder.SaveSamples(ctx, s.symbol, []market.Sample{s.sample}); err != nil {
			logger.Warnf("Engine: persist sample %s failed: %v", s.symbol, err)
		}
	}
}

func (e *Engine) persistTrade(ctx context.Context, trade position.ClosedTrade) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SaveTrade(ctx, trade); err != nil {
		logger.Warnf("Engine: persist trade %s failed: %v", trade.Instrument.Symbol, err)
	}
}

func (e *Engine) persistSession(ctx context.Context, key string) {
	if key == "" {
		return
	}
	e.mu.Lock()
	summary := e.st.governor.Summary()
	e.mu.Unlock()
	e.saveSession(ctx, key, summary)
}

func (e *Engine) saveSession(ctx context.Context, key string, summary risk.Summary) {
	if e.recorder == nil {
		return
	}
	snap := e.Snapshot()
	extras := map[string]any{
		"open_positions": len(snap.Positions),
		"open_mtm":       snap.OpenMTM,
		"instruments":    len(snap.Instruments),
	}
	if err := e.recorder.SaveSession(ctx, key, summary, extras); err != nil {
		logger.Warnf("Engine: persist session %s failed: %v", key, err)
	}
}
