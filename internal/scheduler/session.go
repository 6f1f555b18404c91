package scheduler

import (
	"fmt"
	"time"
)

// Phase is where a moment falls relative to the trading day.
type Phase string

const (
	PhaseClosed    Phase = "CLOSED"     // weekend, before open or after the exit cutoff
	PhaseOpen      Phase = "OPEN"       // open..close inclusive
	PhaseAfterBell Phase = "AFTER_BELL" // after close, exits still allowed until cutoff
)

// SessionWindow 交易时段：工作日 open..close（含端点），收盘后到 cutoff 之间只允许平仓。
type SessionWindow struct {
	loc    *time.Location
	open   time.Duration
	close  time.Duration
	cutoff time.Duration
}

func NewSessionWindow(timezone, open, closeAt, cutoff string) (*SessionWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("session timezone %q: %w", timezone, err)
	}
	w := &SessionWindow{loc: loc}
	if w.open, err = clockOffset(open); err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	if w.close, err = clockOffset(closeAt); err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if w.cutoff, err = clockOffset(cutoff); err != nil {
		return nil, fmt.Errorf("session exit cutoff: %w", err)
	}
	if w.close <= w.open {
		return nil, fmt.Errorf("session close %s must be after open %s", closeAt, open)
	}
	if w.cutoff < w.close {
		w.cutoff = w.close
	}
	return w, nil
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", hhmm)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (w *SessionWindow) Location() *time.Location { return w.loc }

func (w *SessionWindow) Phase(t time.Time) Phase {
	local := t.In(w.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return PhaseClosed
	}
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, w.loc)
	offset := local.Sub(midnight)
	switch {
	case offset < w.open:
		return PhaseClosed
	case offset <= w.close:
		return PhaseOpen
	case offset <= w.cutoff:
		return PhaseAfterBell
	default:
		return PhaseClosed
	}
}

// InSession reports whether t is within open..close on a weekday.
func (w *SessionWindow) InSession(t time.Time) bool {
	return w.Phase(t) == PhaseOpen
}

// PastCutoff reports whether the exit cutoff has passed for t's trading day.
func (w *SessionWindow) PastCutoff(t time.Time) bool {
	local := t.In(w.loc)
	y, m, d := local.Date()
	return local.Sub(time.Date(y, m, d, 0, 0, 0, 0, w.loc)) > w.cutoff
}

// Key identifies the trading session t belongs to (its local date).
func (w *SessionWindow) Key(t time.Time) string {
	return t.In(w.loc).Format("2006-01-02")
}

// OpenAt returns the session open on t's local date.
func (w *SessionWindow) OpenAt(t time.Time) time.Time {
	y, m, d := t.In(w.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.loc).Add(w.open)
}

// CloseAt returns the session close on t's local date.
func (w *SessionWindow) CloseAt(t time.Time) time.Time {
	y, m, d := t.In(w.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.loc).Add(w.close)
}

// PreviousTradingDays returns the local dates of the n weekdays before t,
// oldest first.
func (w *SessionWindow) PreviousTradingDays(t time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	y, m, d := t.In(w.loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, w.loc)
	out := make([]time.Time, 0, n)
	for len(out) < n {
		day = day.AddDate(0, 0, -1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, day)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
