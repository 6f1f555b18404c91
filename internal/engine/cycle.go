package engine

import (
	"context"
	"fmt"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/market"
	"vwaptrader/internal/position"
	"vwaptrader/internal/scheduler"
	"vwaptrader/internal/signal"
)

type pollOutcome struct {
	sample *market.Sample
	entry  *signal.Signal
}

// pollInstrument fetches one quote and applies it. Outside the session only
// instruments with an open position are polled.
func (e *Engine) pollInstrument(ctx context.Context, inst market.Instrument, now time.Time, phase scheduler.Phase) (pollOutcome, error) {
	inSession := phase == scheduler.PhaseOpen
	e.mu.Lock()
	held := e.st.positions.Has(inst.Symbol)
	e.mu.Unlock()
	if !inSession && !held {
		return pollOutcome{}, nil
	}

	cb := e.breakers.For(inst.Symbol)
	if !cb.Allow() {
		logger.Debugf("Engine: %s feed breaker open, skip", inst.Symbol)
		return pollOutcome{}, nil
	}
	q, err := e.broker.Quote(ctx, inst)
	if err != nil {
		cb.RecordFailure()
		logger.Warnf("Engine: quote %s failed: %v", inst.Symbol, err)
		return pollOutcome{}, err
	}
	cb.RecordSuccess()
	if q.Time.IsZero() {
		q.Time = now
	}
	return e.apply(inst, q, now, inSession), nil
}

// apply folds a quote into the state: sample, signal, position tick and exit
// evaluation. An exit decision is queued as pending; an entry candidate is
// returned for the caller to confirm and execute.
func (e *Engine) apply(inst market.Instrument, q market.Quote, now time.Time, inSession bool) pollOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.st
	sym := inst.Symbol
	st.lastQuote[sym] = q

	var out pollOutcome
	var sig signal.Signal
	var fired bool
	if inSession {
		sample := q.Sample()
		s, ok, err := st.ingest(sym, sample)
		if err != nil {
			logger.Warnf("Engine: %s sample rejected: %v", sym, err)
		} else {
			out.sample = &sample
			sig, fired = s, ok
			if fired {
				logger.Infof("Engine: %s signal %s @ %.2f", sym, sig.Direction, sig.Price)
			}
		}
	}

	mark := position.MarkAt(q.LastPrice, q.Time)
	if pos, held := st.positions.Tick(sym, mark); held {
		exitCtx := position.ExitContext{
			InSession:       inSession,
			ManualRequested: st.manual[sym],
			Opposing:        e.opts.SignalChangeExit && fired && sig.Direction != pos.Direction,
		}
		if d, hit := st.positions.EvaluateExit(sym, mark, exitCtx); hit {
			if d.At.IsZero() {
				d.At = now
			}
			if err := st.positions.MarkExitPending(sym, d); err == nil {
				delete(st.manual, sym)
				logger.Infof("Engine: %s exit %s queued @ %.2f", sym, d.Reason, d.Price)
			}
		}
		return out
	}

	if !fired || !inSession {
		return out
	}
	if !st.debouncer.Permit(sig, true) {
		logger.Debugf("Engine: %s signal %s suppressed, last acted %s", sym, sig.Direction, st.debouncer.Last(sym))
		return out
	}
	if dec := st.governor.Evaluate(); !dec.Allowed {
		logger.Infof("Engine: %s entry refused by risk governor: %s (pnl=%.2f limit=%.2f)", sym, dec.Reason, dec.DailyPnL, dec.Limit)
		return out
	}
	out.entry = &sig
	return out
}

// tryEnter confirms and executes an entry. A rejected order abandons the
// entry for this cycle.
func (e *Engine) tryEnter(ctx context.Context, inst market.Instrument, sig signal.Signal) error {
	if e.opts.EntryDelay > 0 {
		if err := e.confirmEntry(ctx, inst); err != nil {
			logger.Infof("Engine: %s entry confirmation interrupted: %v", inst.Symbol, err)
			return nil
		}
	}

	now := e.nowFn()
	e.mu.Lock()
	flat := !e.st.positions.Has(inst.Symbol)
	dec := e.st.governor.Evaluate()
	e.mu.Unlock()
	switch {
	case ctx.Err() != nil:
		return nil
	case !flat:
		return nil
	case !dec.Allowed:
		logger.Infof("Engine: %s entry refused after confirmation: %s", inst.Symbol, dec.Reason)
		return nil
	case !e.window.InSession(now):
		logger.Infof("Engine: %s entry skipped, session closed during confirmation", inst.Symbol)
		return nil
	}

	qty := inst.LotSize
	ack, err := e.placeOrder(ctx, inst, broker.SideBuy, qty)
	if err != nil {
		logger.Errorf("Engine: %s entry abandoned: %v", inst.Symbol, err)
		return err
	}

	e.mu.Lock()
	pos, err := e.st.positions.Open(sig, inst, sig.Price, qty, ack.OrderID)
	if err == nil {
		e.st.debouncer.Acted(sig)
	}
	e.mu.Unlock()
	if err != nil {
		logger.Errorf("Engine: %s order %s filled but position not recorded: %v", inst.Symbol, ack.OrderID, err)
		return err
	}
	logger.WithFields(logger.Fields{
		"trade_no": pos.TradeNo,
		"symbol":   inst.Symbol,
		"side":     pos.Direction,
		"entry":    pos.EntryPrice,
		"qty":      pos.Qty,
		"sl":       pos.CurrentSL,
		"tp":       pos.TakeProfit,
		"order_id": ack.OrderID,
	}).Info("position opened")
	return nil
}

// confirmEntry re-polls the instrument until the entry delay has elapsed.
// Samples keep flowing into the indicator series meanwhile.
func (e *Engine) confirmEntry(ctx context.Context, inst market.Instrument) error {
	poll := e.opts.EntryPoll
	if poll <= 0 {
		poll = time.Second
	}
	deadline := e.nowFn().Add(e.opts.EntryDelay)
	var samples []savedSample
	defer func() { e.persistSamples(context.Background(), samples) }()
	for e.nowFn().Before(deadline) {
		if err := e.sleepFn(ctx, poll); err != nil {
			return err
		}
		q, err := e.broker.Quote(ctx, inst)
		if err != nil {
			logger.Debugf("Engine: %s confirmation quote failed: %v", inst.Symbol, err)
			continue
		}
		if q.Time.IsZero() {
			q.Time = e.nowFn()
		}
		sample := q.Sample()
		e.mu.Lock()
		e.st.lastQuote[inst.Symbol] = q
		_, _, err = e.st.ingest(inst.Symbol, sample)
		e.mu.Unlock()
		if err == nil {
			samples = append(samples, savedSample{symbol: inst.Symbol, sample: sample})
		}
	}
	return nil
}

// processExits attempts every pending exit once. Past the exit cutoff the
// position is flagged as stuck and kept. No order is sent while the market
// is closed; a stuck exit is retried from the next session's open.
func (e *Engine) processExits(ctx context.Context, now time.Time) (failed bool) {
	e.mu.Lock()
	pending := e.st.positions.PendingExits()
	e.mu.Unlock()
	marketClosed := e.window.Phase(now) == scheduler.PhaseClosed

	for _, pos := range pending {
		if ctx.Err() != nil {
			return failed
		}
		sym := pos.Instrument.Symbol
		if e.window.PastCutoff(now) {
			e.mu.Lock()
			if !e.st.stuck[sym] {
				e.st.stuck[sym] = true
				logger.Errorf("Engine: %s exit %s still unfilled after cutoff, position left open", sym, pos.PendingExit.Reason)
			}
			e.mu.Unlock()
			continue
		}
		if marketClosed {
			logger.Debugf("Engine: %s exit %s waits for market open", sym, pos.PendingExit.Reason)
			continue
		}

		ack, err := e.placeOrder(ctx, pos.Instrument, broker.SideSell, pos.Qty)
		if err != nil {
			logger.Errorf("Engine: %s exit %s rejected, retrying next cycle: %v", sym, pos.PendingExit.Reason, err)
			failed = true
			continue
		}
		e.refreshExitQuote(ctx, pos, ack)

		e.mu.Lock()
		price := e.exitPrice(pos, ack)
		trade, err := e.st.positions.Close(sym, price, pos.PendingExit.Reason, ack.OrderID)
		if err == nil {
			e.st.governor.Record(trade.PnL)
			delete(e.st.stuck, sym)
			delete(e.st.manual, sym)
		}
		session := e.st.session
		e.mu.Unlock()
		if err != nil {
			logger.Errorf("Engine: %s close failed: %v", sym, err)
			continue
		}
		logger.WithFields(logger.Fields{
			"trade_no": trade.TradeNo,
			"symbol":   sym,
			"reason":   trade.Reason,
			"entry":    trade.EntryPrice,
			"exit":     trade.ExitPrice,
			"pnl":      fmt.Sprintf("%.2f", trade.PnL),
			"order_id": ack.OrderID,
		}).Info("position closed")
		e.persistTrade(ctx, trade)
		e.persistSession(ctx, session)
	}
	return failed
}

// refreshExitQuote fetches one quote after a filled sell so a mark-priced
// exit books at a price seen after the order. Best effort: on failure the
// last known quote stands.
func (e *Engine) refreshExitQuote(ctx context.Context, pos position.Position, ack broker.OrderAck) {
	switch pos.PendingExit.Reason {
	case position.ExitSL, position.ExitTP:
		return
	}
	if ack.FillPrice > 0 {
		return
	}
	q, err := e.broker.Quote(ctx, pos.Instrument)
	if err != nil || q.LastPrice <= 0 {
		logger.Debugf("Engine: %s post-exit quote unavailable, using last quote: %v", pos.Instrument.Symbol, err)
		return
	}
	if q.Time.IsZero() {
		q.Time = e.nowFn()
	}
	e.mu.Lock()
	e.st.lastQuote[pos.Instrument.Symbol] = q
	e.mu.Unlock()
}

// exitPrice picks the price a filled exit is booked at: the level for stop
// and target exits, otherwise the broker fill, then the latest quote. Caller
// holds e.mu.
func (e *Engine) exitPrice(pos position.Position, ack broker.OrderAck) float64 {
	d := pos.PendingExit
	switch d.Reason {
	case position.ExitSL, position.ExitTP:
		return d.Price
	}
	if ack.FillPrice > 0 {
		return ack.FillPrice
	}
	if q, ok := e.st.lastQuote[pos.Instrument.Symbol]; ok && q.LastPrice > 0 {
		return q.LastPrice
	}
	return d.Price
}

func (e *Engine) placeOrder(ctx context.Context, inst market.Instrument, side broker.Side, qty int) (broker.OrderAck, error) {
	if e.opts.DryRun {
		id := fmt.Sprintf("DRY-%d", e.orderSeq.Add(1))
		logger.Infof("Engine: dry run %s %s qty=%d id=%s", side, inst.Symbol, qty, id)
		return broker.OrderAck{OrderID: id}, nil
	}
	return e.broker.PlaceOrder(ctx, broker.OrderRequest{Instrument: inst, Side: side, Qty: qty})
}
