package position

import (
	"fmt"
	"time"

	"vwaptrader/internal/market"
	"vwaptrader/internal/signal"
)

type Status string

const (
	StatusPendingEntry Status = "PENDING_ENTRY"
	StatusOpen         Status = "OPEN"
	StatusClosed       Status = "CLOSED"
)

type ExitReason string

const (
	ExitSL           ExitReason = "SL"
	ExitTP           ExitReason = "TP"
	ExitEOD          ExitReason = "EOD"
	ExitManual       ExitReason = "MANUAL"
	ExitSignalChange ExitReason = "SIGNAL_CHANGE"
)

// Label is the ledger status shown for a close with this reason.
func (r ExitReason) Label() string {
	switch r {
	case ExitSL:
		return "SL_HIT"
	case ExitTP:
		return "TGT_HIT"
	case ExitEOD:
		return "EOD_CLOSE"
	case ExitManual:
		return "MANUAL_CLOSE"
	case ExitSignalChange:
		return "SIGNAL_CLOSE"
	default:
		return "CLOSED"
	}
}

// Params are the exit rules applied to every position.
type Params struct {
	SLPct          float64
	TPPct          float64
	TrailingPct    float64
	CommissionRate float64
}

// TrailingEnabled is true only when both a base stop and a trailing
// percentage are configured.
func (p Params) TrailingEnabled() bool {
	return p.SLPct > 0 && p.TrailingPct > 0
}

// Mark is one price observation applied to an open position. High and Low
// are the extremes seen since the previous mark.
type Mark struct {
	Price float64
	High  float64
	Low   float64
	Time  time.Time
}

// MarkAt builds a mark where the only observation is price.
func MarkAt(price float64, at time.Time) Mark {
	return Mark{Price: price, High: price, Low: price, Time: at}
}

// ExitContext carries the conditions outside the price path.
type ExitContext struct {
	InSession       bool
	ManualRequested bool
	Opposing        bool
}

type ExitDecision struct {
	Reason ExitReason `json:"reason"`
	Price  float64    `json:"price"`
	At     time.Time  `json:"at"`
}

type Position struct {
	ID           string            `json:"id"`
	TradeNo      int               `json:"trade_no"`
	Instrument   market.Instrument `json:"instrument"`
	Direction    signal.Direction  `json:"direction"`
	Status       Status            `json:"status"`
	Qty          int               `json:"qty"`
	EntryPrice   float64           `json:"entry_price"`
	EntryTime    time.Time         `json:"entry_time"`
	EntryOrderID string            `json:"entry_order_id"`
	StopLoss     float64           `json:"stop_loss"`
	TakeProfit   float64           `json:"take_profit"`
	HighWater    float64           `json:"high_water"`
	LowWater     float64           `json:"low_water"`
	CurrentSL    float64           `json:"current_sl"`
	LastPrice    float64           `json:"last_price"`
	MaxMTM       float64           `json:"max_mtm"`
	MinMTM       float64           `json:"min_mtm"`

	PendingExit *ExitDecision `json:"pending_exit,omitempty"`

	ExitReason  ExitReason `json:"exit_reason,omitempty"`
	ExitPrice   float64    `json:"exit_price,omitempty"`
	ExitTime    time.Time  `json:"exit_time,omitempty"`
	ExitOrderID string     `json:"exit_order_id,omitempty"`
	PnL         float64    `json:"pnl"`
}

// newPending creates a position awaiting its entry fill.
func newPending(id string, tradeNo int, sig signal.Signal, inst market.Instrument, qty int) *Position {
	return &Position{
		ID:         id,
		TradeNo:    tradeNo,
		Instrument: inst,
		Direction:  sig.Direction,
		Status:     StatusPendingEntry,
		Qty:        qty,
	}
}

// open fixes entry price and the initial stop and target. They are never
// recomputed afterwards.
func (p *Position) open(price float64, orderID string, at time.Time, params Params) error {
	if p.Status != StatusPendingEntry {
		return fmt.Errorf("position %s: open from status %s", p.ID, p.Status)
	}
	if price <= 0 {
		return fmt.Errorf("position %s: entry price must be > 0", p.ID)
	}
	p.Status = StatusOpen
	p.EntryPrice = price
	p.EntryTime = at
	p.EntryOrderID = orderID
	p.StopLoss = initialStop(price, params.SLPct)
	p.TakeProfit = levelAbove(price, params.TPPct)
	p.CurrentSL = p.StopLoss
	p.HighWater = price
	p.LowWater = price
	p.LastPrice = price
	return nil
}

// tick folds a mark into the water marks, the MTM extremes and the
// trailing stop. The stop only ever moves up.
func (p *Position) tick(m Mark, params Params) {
	if p.Status != StatusOpen {
		return
	}
	if m.High > p.HighWater {
		p.HighWater = m.High
	}
	if m.Low > 0 && m.Low < p.LowWater {
		p.LowWater = m.Low
	}
	if v := markToMarket(p.EntryPrice, p.HighWater, p.Qty); v > p.MaxMTM {
		p.MaxMTM = v
	}
	if v := markToMarket(p.EntryPrice, p.LowWater, p.Qty); v < p.MinMTM {
		p.MinMTM = v
	}
	if params.TrailingEnabled() {
		if cand := levelBelow(p.HighWater, params.TrailingPct); shouldRaiseStop(cand, p.CurrentSL) {
			p.CurrentSL = cand
		}
	}
	if m.Price > 0 {
		p.LastPrice = m.Price
	}
}

// evaluateExit applies the exit rules in priority order; the first match
// wins.
func (p *Position) evaluateExit(m Mark, ctx ExitContext) (ExitDecision, bool) {
	if p.Status != StatusOpen {
		return ExitDecision{}, false
	}
	switch {
	case m.Low > 0 && decimalLTE(m.Low, p.CurrentSL):
		return ExitDecision{Reason: ExitSL, Price: p.CurrentSL, At: m.Time}, true
	case m.High > 0 && decimalGTE(m.High, p.TakeProfit):
		return ExitDecision{Reason: ExitTP, Price: p.TakeProfit, At: m.Time}, true
	case !ctx.InSession:
		return ExitDecision{Reason: ExitEOD, Price: m.Price, At: m.Time}, true
	case ctx.ManualRequested:
		return ExitDecision{Reason: ExitManual, Price: m.Price, At: m.Time}, true
	case ctx.Opposing:
		return ExitDecision{Reason: ExitSignalChange, Price: m.Price, At: m.Time}, true
	}
	return ExitDecision{}, false
}

// MarkToMarket is the unrealised PnL at the last observed price.
func (p Position) MarkToMarket() float64 {
	if p.Status != StatusOpen {
		return 0
	}
	return markToMarket(p.EntryPrice, p.LastPrice, p.Qty)
}

// ClosedTrade is a ledger entry.
type ClosedTrade struct {
	TradeNo      int               `json:"trade_no"`
	PositionID   string            `json:"position_id"`
	Instrument   market.Instrument `json:"instrument"`
	Direction    signal.Direction  `json:"direction"`
	Qty          int               `json:"qty"`
	EntryPrice   float64           `json:"entry_price"`
	EntryTime    time.Time         `json:"entry_time"`
	ExitPrice    float64           `json:"exit_price"`
	ExitTime     time.Time         `json:"exit_time"`
	Reason       ExitReason        `json:"reason"`
	Status       string            `json:"status"`
	PnL          float64           `json:"pnl"`
	GrossMTM     float64           `json:"gross_mtm"`
	MaxMTM       float64           `json:"max_mtm"`
	MinMTM       float64           `json:"min_mtm"`
	EntryOrderID string            `json:"entry_order_id"`
	ExitOrderID  string            `json:"exit_order_id"`
}

func (p *Position) close(exitPrice float64, reason ExitReason, orderID string, at time.Time, params Params) (ClosedTrade, error) {
	if p.Status != StatusOpen {
		return ClosedTrade{}, fmt.Errorf("position %s: close from status %s", p.ID, p.Status)
	}
	if exitPrice <= 0 {
		return ClosedTrade{}, fmt.Errorf("position %s: exit price must be > 0", p.ID)
	}
	p.Status = StatusClosed
	p.ExitReason = reason
	p.ExitPrice = exitPrice
	p.ExitTime = at
	p.ExitOrderID = orderID
	p.PendingExit = nil
	p.PnL = realizedPnL(p.EntryPrice, exitPrice, p.Qty, params.CommissionRate)
	return ClosedTrade{
		TradeNo:      p.TradeNo,
		PositionID:   p.ID,
		Instrument:   p.Instrument,
		Direction:    p.Direction,
		Qty:          p.Qty,
		EntryPrice:   p.EntryPrice,
		EntryTime:    p.EntryTime,
		ExitPrice:    exitPrice,
		ExitTime:     at,
		Reason:       reason,
		Status:       reason.Label(),
		PnL:          p.PnL,
		GrossMTM:     markToMarket(p.EntryPrice, exitPrice, p.Qty),
		MaxMTM:       p.MaxMTM,
		MinMTM:       p.MinMTM,
		EntryOrderID: p.EntryOrderID,
		ExitOrderID:  orderID,
	}, nil
}
