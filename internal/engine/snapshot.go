package engine

import (
	"time"

	"vwaptrader/internal/pkg/circuit"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/signal"
)

// Position display states beyond the lifecycle status.
const (
	ViewOpen        = "OPEN"
	ViewExitPending = "EXIT_PENDING"
	ViewExitStuck   = "EXIT_STUCK"
)

// InstrumentView is the per-instrument indicator snapshot.
type InstrumentView struct {
	Symbol     string           `json:"symbol"`
	Underlying string           `json:"underlying"`
	Strike     int              `json:"strike"`
	OptionType string           `json:"option_type"`
	LotSize    int              `json:"lot_size"`
	LastPrice  float64          `json:"last_price"`
	VWAP       float64          `json:"vwap"`
	EMA        float64          `json:"ema"`
	Ready      bool             `json:"ready"`
	Samples    int              `json:"samples"`
	Signal     signal.Direction `json:"current_signal,omitempty"`
	Feed       string           `json:"feed"`
	QuoteTime  time.Time        `json:"quote_time,omitempty"`
}

type PositionView struct {
	position.Position
	MTM   float64 `json:"mark_to_market"`
	State string  `json:"state"`
}

// Snapshot is an immutable copy of the engine state published after every
// cycle. Readers never see a partially applied cycle.
type Snapshot struct {
	Cycle       int64                  `json:"cycle"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Session     string                 `json:"session"`
	Phase       string                 `json:"phase"`
	Instruments []InstrumentView       `json:"instruments"`
	Positions   []PositionView         `json:"positions"`
	Trades      []position.ClosedTrade `json:"trades"`
	Risk        risk.Summary           `json:"risk"`
	Entries     risk.Decision          `json:"entries"`
	OpenMTM     float64                `json:"open_mtm"`
	Failures    int                    `json:"consecutive_failures"`
}

// buildSnapshot copies the state. Caller holds Engine.mu.
func (s *state) buildSnapshot(cycle int64, at time.Time, phase string, feeds map[string]circuit.State, failures int) *Snapshot {
	snap := &Snapshot{
		Cycle:     cycle,
		UpdatedAt: at,
		Session:   s.session,
		Phase:     phase,
		Risk:      s.governor.Summary(),
		Entries:   s.governor.Evaluate(),
		Trades:    s.positions.Ledger(0),
		Failures:  failures,
	}
	for _, inst := range s.instruments {
		v := InstrumentView{
			Symbol:     inst.Symbol,
			Underlying: inst.Underlying,
			Strike:     inst.Strike,
			OptionType: string(inst.OptionType),
			LotSize:    inst.LotSize,
			Samples:    s.indicators.Len(inst.Symbol),
			Ready:      s.indicators.Ready(inst.Symbol),
			Feed:       circuit.StateClosed.String(),
		}
		if st, ok := feeds[inst.Symbol]; ok {
			v.Feed = st.String()
		}
		if q, ok := s.lastQuote[inst.Symbol]; ok {
			v.LastPrice = q.LastPrice
			v.QuoteTime = q.Time
		}
		if pt, err := s.indicators.Latest(inst.Symbol); err == nil {
			v.VWAP, v.EMA = pt.VWAP, pt.EMA
		}
		if sig, ok := s.lastSignal[inst.Symbol]; ok {
			v.Signal = sig.Direction
		}
		snap.Instruments = append(snap.Instruments, v)
	}
	for _, pos := range s.positions.OpenPositions() {
		view := PositionView{Position: pos, MTM: pos.MarkToMarket(), State: ViewOpen}
		if pos.PendingExit != nil {
			view.State = ViewExitPending
			if s.stuck[pos.Instrument.Symbol] {
				view.State = ViewExitStuck
			}
		}
		snap.OpenMTM += view.MTM
		snap.Positions = append(snap.Positions, view)
	}
	return snap
}
