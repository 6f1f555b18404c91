package signal

// Debouncer remembers the last acted-on direction per instrument.
// Not safe for concurrent use.
type Debouncer struct {
	allowSameWhenFlat bool
	last              map[string]Direction
}

// NewDebouncer builds a debouncer. With allowSameWhenFlat the same
// direction may be acted on again once the instrument is flat; otherwise a
// repeat needs an intervening opposite entry.
func NewDebouncer(allowSameWhenFlat bool) *Debouncer {
	return &Debouncer{allowSameWhenFlat: allowSameWhenFlat, last: make(map[string]Direction)}
}

// Permit reports whether sig may open a position. flat is true when the
// instrument has no open position.
func (d *Debouncer) Permit(sig Signal, flat bool) bool {
	if !flat {
		return false
	}
	if d.allowSameWhenFlat {
		return true
	}
	return d.last[sig.Symbol] != sig.Direction
}

// Acted records sig as the last direction acted on for its instrument.
func (d *Debouncer) Acted(sig Signal) {
	d.last[sig.Symbol] = sig.Direction
}

func (d *Debouncer) Last(symbol string) Direction {
	return d.last[symbol]
}

// Reset clears all state, used at session rollover.
func (d *Debouncer) Reset() {
	d.last = make(map[string]Direction)
}
