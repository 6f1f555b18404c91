package engine

import (
	"context"

	"vwaptrader/internal/logger"
	"vwaptrader/internal/market"
	"vwaptrader/internal/scheduler"
)

// Backfill warms the indicator series before the first cycle: today's
// stored samples first, then broker candles covering the configured number
// of previous trading days up to now. Failures are logged per instrument.
func (e *Engine) Backfill(ctx context.Context) {
	now := e.nowFn()
	today := e.window.Key(now)
	start := e.window.OpenAt(now)
	if days := e.window.PreviousTradingDays(now, e.opts.BackfillDays); len(days) > 0 {
		start = e.window.OpenAt(days[0])
	}
	interval := "1"
	if d, ok := scheduler.ParseCandleInterval(e.opts.CandleInterval); ok {
		interval = scheduler.BrokerMinutes(d)
	}

	for _, inst := range e.instruments() {
		if ctx.Err() != nil {
			return
		}
		restored := 0
		if e.recorder != nil {
			stored, err := e.recorder.LoadSamples(ctx, inst.Symbol, today)
			if err != nil {
				logger.Warnf("Engine: load stored samples %s failed: %v", inst.Symbol, err)
			} else {
				restored = e.appendBatch(inst.Symbol, stored)
			}
		}
		if e.opts.BackfillDays <= 0 {
			continue
		}
		candles, err := e.broker.Candles(ctx, inst, start, now, interval)
		if err != nil {
			logger.Warnf("Engine: backfill %s failed: %v", inst.Symbol, err)
			continue
		}
		n := e.appendBatch(inst.Symbol, candles)
		logger.Infof("Engine: backfill %s restored=%d candles=%d since %s", inst.Symbol, restored, n, start.Format("2006-01-02 15:04"))
		if e.recorder != nil && len(candles) > 0 {
			if err := e.recorder.SaveSamples(ctx, inst.Symbol, candles); err != nil {
				logger.Warnf("Engine: persist backfill %s failed: %v", inst.Symbol, err)
			}
		}
	}
	e.publish(now, e.window.Phase(now))
}

func (e *Engine) appendBatch(symbol string, samples []market.Sample) int {
	if len(samples) == 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.indicators.AppendBatch(symbol, samples)
}
