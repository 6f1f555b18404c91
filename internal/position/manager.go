package position

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"vwaptrader/internal/market"
	"vwaptrader/internal/signal"

	"github.com/google/uuid"
)

var (
	ErrPositionExists = errors.New("instrument already has an open position")
	ErrNoPosition     = errors.New("no open position for instrument")
	ErrExitPending    = errors.New("exit already pending for instrument")
)

// Manager owns the open-position set and the closed-trade ledger. At most
// one OPEN position exists per instrument. Not safe for concurrent use.
type Manager struct {
	params Params
	open   map[string]*Position
	ledger *Ledger
	nextNo int

	nowFn func() time.Time
	newID func() string
}

func NewManager(params Params, ledgerSize int) *Manager {
	return &Manager{
		params: params,
		open:   make(map[string]*Position),
		ledger: NewLedger(ledgerSize),
		nextNo: 1,
		nowFn:  time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (m *Manager) Params() Params { return m.params }

// Open records a filled entry for sig on inst. The position passes through
// PENDING_ENTRY and is OPEN on return.
func (m *Manager) Open(sig signal.Signal, inst market.Instrument, price float64, qty int, orderID string) (Position, error) {
	if _, exists := m.open[inst.Symbol]; exists {
		return Position{}, fmt.Errorf("open %s: %w", inst.Symbol, ErrPositionExists)
	}
	if qty <= 0 {
		return Position{}, fmt.Errorf("open %s: quantity must be > 0", inst.Symbol)
	}
	pos := newPending(m.newID(), m.nextNo, sig, inst, qty)
	if err := pos.open(price, orderID, m.nowFn(), m.params); err != nil {
		return Position{}, err
	}
	m.nextNo++
	m.open[inst.Symbol] = pos
	return *pos, nil
}

func (m *Manager) Has(symbol string) bool {
	_, ok := m.open[symbol]
	return ok
}

func (m *Manager) Get(symbol string) (Position, bool) {
	pos, ok := m.open[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// OpenPositions returns copies ordered by trade number.
func (m *Manager) OpenPositions() []Position {
	out := make([]Position, 0, len(m.open))
	for _, pos := range m.open {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeNo < out[j].TradeNo })
	return out
}

// Tick applies a mark to the symbol's open position.
func (m *Manager) Tick(symbol string, mark Mark) (Position, bool) {
	pos, ok := m.open[symbol]
	if !ok {
		return Position{}, false
	}
	pos.tick(mark, m.params)
	return *pos, true
}

// EvaluateExit checks the exit rules for the symbol's open position. A
// position with an exit already pending is not re-evaluated.
func (m *Manager) EvaluateExit(symbol string, mark Mark, ctx ExitContext) (ExitDecision, bool) {
	pos, ok := m.open[symbol]
	if !ok || pos.PendingExit != nil {
		return ExitDecision{}, false
	}
	return pos.evaluateExit(mark, ctx)
}

// MarkExitPending keeps the decision on the position until the exit fills.
func (m *Manager) MarkExitPending(symbol string, d ExitDecision) error {
	pos, ok := m.open[symbol]
	if !ok {
		return fmt.Errorf("mark exit %s: %w", symbol, ErrNoPosition)
	}
	if pos.PendingExit == nil {
		dec := d
		pos.PendingExit = &dec
	}
	return nil
}

// PendingExits returns the positions awaiting an exit fill.
func (m *Manager) PendingExits() []Position {
	var out []Position
	for _, pos := range m.open {
		if pos.PendingExit != nil {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeNo < out[j].TradeNo })
	return out
}

// Close finalises the symbol's position at exitPrice, appends it to the
// ledger and removes it from the open set.
func (m *Manager) Close(symbol string, exitPrice float64, reason ExitReason, orderID string) (ClosedTrade, error) {
	pos, ok := m.open[symbol]
	if !ok {
		return ClosedTrade{}, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}
	trade, err := pos.close(exitPrice, reason, orderID, m.nowFn(), m.params)
	if err != nil {
		return ClosedTrade{}, err
	}
	delete(m.open, symbol)
	m.ledger.Add(trade)
	return trade, nil
}

// Ledger returns up to n recent closed trades, newest first.
func (m *Manager) Ledger(n int) []ClosedTrade {
	return m.ledger.Recent(n)
}
