package engine

import (
	"vwaptrader/internal/indicator"
	"vwaptrader/internal/market"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/signal"
)

// state is everything the decision loop mutates. It is owned by one Engine
// and only touched with Engine.mu held.
type state struct {
	instruments []market.Instrument
	bySymbol    map[string]market.Instrument

	indicators *indicator.Engine
	positions  *position.Manager
	governor   *risk.Governor
	debouncer  *signal.Debouncer
	detector   signal.Detector

	session    string
	lastQuote  map[string]market.Quote
	lastSignal map[string]signal.Signal
	manual     map[string]bool
	stuck      map[string]bool
}

func newState(opts Options, ind *indicator.Engine) *state {
	return &state{
		bySymbol:   make(map[string]market.Instrument),
		indicators: ind,
		positions:  position.NewManager(opts.Params, opts.LedgerSize),
		governor:   risk.NewGovernor(opts.Risk),
		debouncer:  signal.NewDebouncer(opts.AllowSameSignalReentry),
		lastQuote:  make(map[string]market.Quote),
		lastSignal: make(map[string]signal.Signal),
		manual:     make(map[string]bool),
		stuck:      make(map[string]bool),
	}
}

func (s *state) setInstruments(insts []market.Instrument) {
	s.instruments = append([]market.Instrument(nil), insts...)
	s.bySymbol = make(map[string]market.Instrument, len(insts))
	for _, inst := range insts {
		s.bySymbol[inst.Symbol] = inst
	}
}

// ingest appends a sample and re-evaluates the crossover. It returns the
// fresh signal, if any.
func (s *state) ingest(symbol string, sample market.Sample) (signal.Signal, bool, error) {
	if err := s.indicators.Append(symbol, sample); err != nil {
		return signal.Signal{}, false, err
	}
	window, err := s.indicators.Window(symbol, 2)
	if err != nil {
		return signal.Signal{}, false, nil
	}
	sig, ok := s.detector.Evaluate(symbol, window)
	if ok {
		s.lastSignal[symbol] = sig
	} else {
		delete(s.lastSignal, symbol)
	}
	return sig, ok, nil
}
