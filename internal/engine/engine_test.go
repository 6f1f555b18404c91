package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/broker/brokertest"
	"vwaptrader/internal/market"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/scheduler"
	"vwaptrader/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// crossUp ends with a bullish EMA/VWAP crossover on its last sample.
var crossUp = []float64{100, 99, 98, 97, 96, 110}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testInstrument(symbol string) market.Instrument {
	return market.Instrument{Symbol: symbol, Underlying: "NIFTY", Strike: 24000, OptionType: market.OptionCall, LotSize: 75, Token: symbol, Exchange: "NFO"}
}

func testOptions() Options {
	return Options{
		EMASpan:          5,
		Params:           position.Params{TPPct: 0.6, TrailingPct: 0.3, CommissionRate: 0.0003},
		LedgerSize:       20,
		Interval:         5 * time.Second,
		IdleInterval:     time.Minute,
		BackoffBase:      2 * time.Second,
		BackoffMax:       30 * time.Second,
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
		CandleInterval:   "1",
		Risk:             risk.Config{MaxDailyLoss: 5000},
	}
}

type recorderStub struct {
	mu       sync.Mutex
	samples  map[string][]market.Sample
	trades   []position.ClosedTrade
	sessions map[string]risk.Summary
}

func newRecorderStub() *recorderStub {
	return &recorderStub{samples: map[string][]market.Sample{}, sessions: map[string]risk.Summary{}}
}

func (r *recorderStub) SaveSamples(_ context.Context, symbol string, samples []market.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[symbol] = append(r.samples[symbol], samples...)
	return nil
}

func (r *recorderStub) SaveTrade(_ context.Context, trade position.ClosedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
	return nil
}

func (r *recorderStub) SaveSession(_ context.Context, date string, summary risk.Summary, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[date] = summary
	return nil
}

func (r *recorderStub) LoadSamples(_ context.Context, symbol, _ string) ([]market.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]market.Sample(nil), r.samples[symbol]...), nil
}

func (r *recorderStub) ListTrades(context.Context, string) ([]position.ClosedTrade, error) {
	return nil, nil
}

func (r *recorderStub) Close() error { return nil }

type harness struct {
	t     *testing.T
	eng   *Engine
	b     *brokertest.MockBroker
	rec   *recorderStub
	clock *testClock
	start time.Time
}

func newHarness(t *testing.T, opts Options, insts ...market.Instrument) *harness {
	t.Helper()
	window, err := scheduler.NewSessionWindow("Asia/Kolkata", "09:15", "15:30", "15:40")
	require.NoError(t, err)
	start := time.Date(2025, 11, 3, 10, 0, 0, 0, window.Location())
	clock := &testClock{t: start}
	b := new(brokertest.MockBroker)
	rec := newRecorderStub()
	eng := New(opts, b, rec, window)
	eng.nowFn = clock.Now
	eng.SetInstruments(insts)
	return &harness{t: t, eng: eng, b: b, rec: rec, clock: clock, start: start}
}

// quoteAt returns a quote carrying only a last price, stamped n cadence
// steps after the harness start.
func (h *harness) quoteAt(symbol string, price float64, n int) market.Quote {
	return market.Quote{Symbol: symbol, LastPrice: price, Volume: 1000, Time: h.start.Add(time.Duration(n) * 5 * time.Second)}
}

func (h *harness) expectQuotes(inst market.Instrument, from int, prices ...float64) {
	for i, p := range prices {
		h.b.On("Quote", mock.Anything, inst).Return(h.quoteAt(inst.Symbol, p, from+i), nil).Once()
	}
}

func (h *harness) cycle() time.Duration {
	wait := h.eng.RunCycle(context.Background())
	h.clock.Advance(5 * time.Second)
	return wait
}

func isSide(side broker.Side) any {
	return mock.MatchedBy(func(r broker.OrderRequest) bool { return r.Side == side })
}

func (h *harness) openOnCrossUp(inst market.Instrument) {
	h.t.Helper()
	h.expectQuotes(inst, 0, crossUp...)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideBuy)).Return(broker.OrderAck{OrderID: "B1"}, nil).Once()
	for range crossUp {
		h.cycle()
	}
	snap := h.eng.Snapshot()
	require.Len(h.t, snap.Positions, 1)
	require.Equal(h.t, inst.Symbol, snap.Positions[0].Instrument.Symbol)
}

func TestEntryOnCrossoverThenStopExit(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	pos := h.eng.Snapshot().Positions[0]
	assert.Equal(t, signal.BuyCall, pos.Direction)
	assert.InDelta(t, 110, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 55, pos.CurrentSL, 1e-9)
	assert.InDelta(t, 176, pos.TakeProfit, 1e-9)
	assert.Equal(t, 75, pos.Qty)
	assert.Equal(t, ViewOpen, pos.State)

	h.expectQuotes(inst, len(crossUp), 50)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1", FillPrice: 49}, nil).Once()
	wait := h.cycle()
	assert.Equal(t, 5*time.Second, wait)

	snap := h.eng.Snapshot()
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Trades, 1)
	trade := snap.Trades[0]
	assert.Equal(t, position.ExitSL, trade.Reason)
	assert.Equal(t, "SL_HIT", trade.Status)
	assert.InDelta(t, 55, trade.ExitPrice, 1e-9, "stop exits book at the stop level")
	assert.InDelta(t, -4128.7125, trade.PnL, 1e-6)
	assert.InDelta(t, -4128.7125, snap.Risk.DailyPnL, 1e-6)

	require.Len(t, h.rec.trades, 1)
	assert.Len(t, h.rec.samples[inst.Symbol], len(crossUp)+1)
	assert.Contains(t, h.rec.sessions, "2025-11-03")
	h.b.AssertExpectations(t)
}

func TestRejectedExitIsRetriedUntilFilled(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.expectQuotes(inst, len(crossUp), 50, 60)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).
		Return(broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Side: broker.SideSell, Qty: 75, Reason: "RMS"}).Once()
	wait := h.cycle()
	assert.Equal(t, 7*time.Second, wait, "cadence plus first backoff step")

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, ViewExitPending, snap.Positions[0].State)
	require.NotNil(t, snap.Positions[0].PendingExit)
	assert.Equal(t, position.ExitSL, snap.Positions[0].PendingExit.Reason)

	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S2"}, nil).Once()
	wait = h.cycle()
	assert.Equal(t, 5*time.Second, wait)

	snap = h.eng.Snapshot()
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, position.ExitSL, snap.Trades[0].Reason)
	assert.InDelta(t, 55, snap.Trades[0].ExitPrice, 1e-9)
	h.b.AssertExpectations(t)
}

func TestPendingExitStuckAfterCutoff(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.expectQuotes(inst, len(crossUp), 50)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).
		Return(broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Reason: "RMS"}).Once()
	h.cycle()

	h.clock.Set(time.Date(2025, 11, 3, 15, 45, 0, 0, h.start.Location()))
	h.b.On("Quote", mock.Anything, inst).Return(h.quoteAt(inst.Symbol, 52, 100), nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1, "an unfilled exit is never dropped")
	assert.Equal(t, ViewExitStuck, snap.Positions[0].State)
	h.b.AssertNumberOfCalls(t, "PlaceOrder", 2)
}

func TestStuckExitWaitsForNextSession(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.expectQuotes(inst, len(crossUp), 50)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).
		Return(broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Reason: "RMS"}).Once()
	h.cycle()

	loc := h.start.Location()
	h.clock.Set(time.Date(2025, 11, 3, 15, 45, 0, 0, loc))
	h.expectQuotes(inst, 100, 52)
	h.cycle()

	for _, hour := range []int{0, 2, 9} {
		h.clock.Set(time.Date(2025, 11, 4, hour, 0, 0, 0, loc))
		h.expectQuotes(inst, 200+hour, 52)
		wait := h.cycle()
		assert.Equal(t, 5*time.Second, wait)
		assert.Equal(t, string(scheduler.PhaseClosed), h.eng.Snapshot().Phase)
	}
	h.b.AssertNumberOfCalls(t, "PlaceOrder", 2)
	require.Len(t, h.eng.Snapshot().Positions, 1)

	h.clock.Set(time.Date(2025, 11, 4, 9, 16, 0, 0, loc))
	h.expectQuotes(inst, 300, 53)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S3"}, nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, position.ExitSL, snap.Trades[0].Reason)
	h.b.AssertExpectations(t)
}

func TestEndOfDayExitBooksPostOrderQuote(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.clock.Set(time.Date(2025, 11, 3, 15, 31, 0, 0, h.start.Location()))
	h.expectQuotes(inst, 100, 118, 120)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1"}, nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, position.ExitEOD, snap.Trades[0].Reason)
	assert.InDelta(t, 120, snap.Trades[0].ExitPrice, 1e-9, "books the quote fetched after the sell")
	assert.InDelta(t, 744.825, snap.Trades[0].PnL, 1e-6)
	assert.Equal(t, string(scheduler.PhaseAfterBell), snap.Phase)
	h.b.AssertExpectations(t)
}

func TestEndOfDayExitFallsBackToLastQuote(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.clock.Set(time.Date(2025, 11, 3, 15, 31, 0, 0, h.start.Location()))
	h.expectQuotes(inst, 100, 120)
	h.b.On("Quote", mock.Anything, inst).Return(market.Quote{}, &broker.TransientFeedError{Symbol: inst.Symbol, Op: "quote"}).Once()
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1"}, nil).Once()
	wait := h.cycle()

	snap := h.eng.Snapshot()
	require.Len(t, snap.Trades, 1)
	assert.InDelta(t, 120, snap.Trades[0].ExitPrice, 1e-9)
	assert.Equal(t, 5*time.Second, wait, "a failed confirmation quote is not a cycle failure")
	h.b.AssertExpectations(t)
}

func TestManualExitRequest(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)

	assert.ErrorIs(t, h.eng.RequestManualExit(inst.Symbol), position.ErrNoPosition)

	h.openOnCrossUp(inst)
	require.NoError(t, h.eng.RequestManualExit(inst.Symbol))

	h.expectQuotes(inst, len(crossUp), 112)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1", FillPrice: 111.5}, nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, position.ExitManual, snap.Trades[0].Reason)
	assert.Equal(t, "MANUAL_CLOSE", snap.Trades[0].Status)
	assert.InDelta(t, 111.5, snap.Trades[0].ExitPrice, 1e-9, "mark-priced exits use the broker fill")
}

func TestManualExitRefusedWhileExitPending(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.expectQuotes(inst, len(crossUp), 50, 60)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).
		Return(broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Reason: "RMS"}).Once()
	h.cycle()

	err := h.eng.RequestManualExit(inst.Symbol)
	assert.ErrorIs(t, err, position.ErrExitPending)

	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S2"}, nil).Once()
	h.cycle()
	require.Empty(t, h.eng.Snapshot().Positions)
	assert.Empty(t, h.eng.st.manual)

	// a later position on the same instrument is not closed by the refused request
	h.eng.mu.Lock()
	_, err = h.eng.st.positions.Open(signal.Signal{Symbol: inst.Symbol, Direction: signal.BuyCall, Price: 100, Time: h.clock.Now()}, inst, 100, 75, "B2")
	h.eng.mu.Unlock()
	require.NoError(t, err)

	h.expectQuotes(inst, len(crossUp)+2, 101)
	h.cycle()

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, ViewOpen, snap.Positions[0].State)
	assert.Len(t, snap.Trades, 1)
	h.b.AssertNumberOfCalls(t, "PlaceOrder", 3)
}

func TestRiskGovernorBlocksEntry(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.eng.UpdateRisk(risk.Config{MaxDailyLoss: 5000, KillSwitch: true})

	h.expectQuotes(inst, 0, crossUp...)
	for range crossUp {
		h.cycle()
	}

	snap := h.eng.Snapshot()
	assert.Empty(t, snap.Positions)
	assert.False(t, snap.Entries.Allowed)
	assert.Equal(t, risk.ReasonKillSwitch, snap.Entries.Reason)
	assert.Equal(t, signal.BuyCall, snap.Instruments[0].Signal)
	h.b.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRejectedEntryIsAbandoned(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.expectQuotes(inst, 0, crossUp...)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideBuy)).
		Return(broker.OrderAck{}, &broker.OrderRejectedError{Symbol: inst.Symbol, Reason: "margin"}).Once()

	var wait time.Duration
	for range crossUp {
		wait = h.cycle()
	}
	assert.Empty(t, h.eng.Snapshot().Positions)
	assert.Equal(t, 7*time.Second, wait)
	h.b.AssertExpectations(t)
}

func TestTransientFailureDoesNotHaltOtherInstruments(t *testing.T) {
	bad := testInstrument("NIFTY06NOV25C24050")
	good := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), bad, good)

	h.b.On("Quote", mock.Anything, bad).Return(market.Quote{}, &broker.TransientFeedError{Symbol: bad.Symbol, Op: "quote"})
	h.expectQuotes(good, 0, crossUp...)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideBuy)).Return(broker.OrderAck{OrderID: "B1"}, nil).Once()

	var waits []time.Duration
	for range crossUp {
		waits = append(waits, h.cycle())
	}

	assert.Equal(t, []time.Duration{7 * time.Second, 9 * time.Second, 13 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second}, waits,
		"backoff grows while the feed fails, then the breaker opens and skips it")
	h.b.AssertNumberOfCalls(t, "Quote", len(crossUp)+3)

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, good.Symbol, snap.Positions[0].Instrument.Symbol)
	assert.Equal(t, "OPEN", snap.Instruments[0].Feed)
	assert.Equal(t, "CLOSED", snap.Instruments[1].Feed)
}

func TestOppositeSignalEntersOnceFlat(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	require.NoError(t, h.eng.RequestManualExit(inst.Symbol))
	h.expectQuotes(inst, len(crossUp), 100, 100)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1"}, nil).Once()
	h.cycle()
	require.Empty(t, h.eng.Snapshot().Positions)

	h.expectQuotes(inst, len(crossUp)+1, 90)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideBuy)).Return(broker.OrderAck{OrderID: "B2"}, nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, signal.BuyPut, snap.Positions[0].Direction)
	assert.InDelta(t, 90, snap.Positions[0].EntryPrice, 1e-9)
	assert.Equal(t, 2, snap.Positions[0].TradeNo)
	h.b.AssertNumberOfCalls(t, "PlaceOrder", 3)
}

func TestEntryConfirmationRepolls(t *testing.T) {
	opts := testOptions()
	opts.EntryDelay = 3 * time.Second
	opts.EntryPoll = time.Second
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, opts, inst)
	h.eng.sleepFn = func(_ context.Context, d time.Duration) error {
		h.clock.Advance(d)
		return nil
	}

	h.expectQuotes(inst, 0, crossUp...)
	for i := 1; i <= 3; i++ {
		q := h.quoteAt(inst.Symbol, 111, len(crossUp)-1)
		q.Time = q.Time.Add(time.Duration(i) * time.Second)
		h.b.On("Quote", mock.Anything, inst).Return(q, nil).Once()
	}
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideBuy)).Return(broker.OrderAck{OrderID: "B1"}, nil).Once()
	for range crossUp {
		h.cycle()
	}

	snap := h.eng.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 110, snap.Positions[0].EntryPrice, 1e-9, "entry is committed at the signal price")
	assert.Equal(t, len(crossUp)+3, snap.Instruments[0].Samples)
	h.b.AssertExpectations(t)
}

func TestIdleOutsideSession(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.clock.Set(time.Date(2025, 11, 8, 11, 0, 0, 0, h.start.Location()))

	wait := h.cycle()
	assert.Equal(t, time.Minute, wait)
	assert.Equal(t, string(scheduler.PhaseClosed), h.eng.Snapshot().Phase)
	h.b.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestSessionRolloverResetsRisk(t *testing.T) {
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, testOptions(), inst)
	h.openOnCrossUp(inst)

	h.expectQuotes(inst, len(crossUp), 50)
	h.b.On("PlaceOrder", mock.Anything, isSide(broker.SideSell)).Return(broker.OrderAck{OrderID: "S1"}, nil).Once()
	h.cycle()
	require.Less(t, h.eng.Snapshot().Risk.DailyPnL, 0.0)

	h.clock.Set(time.Date(2025, 11, 4, 9, 20, 0, 0, h.start.Location()))
	h.b.On("Quote", mock.Anything, inst).Return(h.quoteAt(inst.Symbol, 100, 20000), nil).Once()
	h.cycle()

	snap := h.eng.Snapshot()
	assert.Equal(t, "2025-11-04", snap.Session)
	assert.Zero(t, snap.Risk.DailyPnL)
	assert.Len(t, snap.Trades, 1, "the ledger spans sessions")
	require.Contains(t, h.rec.sessions, "2025-11-03")
	assert.InDelta(t, -4128.7125, h.rec.sessions["2025-11-03"].DailyPnL, 1e-6)
}

func TestBackfillWarmsSeries(t *testing.T) {
	opts := testOptions()
	opts.BackfillDays = 1
	inst := testInstrument("NIFTY06NOV25C24000")
	h := newHarness(t, opts, inst)

	bars := make([]market.Sample, 0, 10)
	base := time.Date(2025, 10, 31, 9, 15, 0, 0, h.start.Location())
	for i := 0; i < 10; i++ {
		p := 100 + float64(i)
		bars = append(bars, market.Sample{Time: base.Add(time.Duration(i) * time.Minute), Open: p, High: p, Low: p, Close: p, Volume: 10})
	}
	h.b.On("Candles", mock.Anything, inst, base, h.start, "1").Return(bars, nil).Once()

	h.eng.Backfill(context.Background())

	snap := h.eng.Snapshot()
	require.Len(t, snap.Instruments, 1)
	assert.True(t, snap.Instruments[0].Ready)
	assert.Equal(t, 10, snap.Instruments[0].Samples)
	assert.Len(t, h.rec.samples[inst.Symbol], 10)
	h.b.AssertExpectations(t)
}

func TestSeriesUnknownInstrument(t *testing.T) {
	h := newHarness(t, testOptions(), testInstrument("A"))
	_, err := h.eng.Series("B")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
	pts, err := h.eng.Series("A")
	require.NoError(t, err)
	assert.Empty(t, pts)
}
