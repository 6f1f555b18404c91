package position

// Ledger is a fixed-capacity ring of the most recent closed trades.
type Ledger struct {
	buf   []ClosedTrade
	next  int
	count int
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = 20
	}
	return &Ledger{buf: make([]ClosedTrade, capacity)}
}

func (l *Ledger) Add(t ClosedTrade) {
	l.buf[l.next] = t
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

func (l *Ledger) Len() int { return l.count }

func (l *Ledger) Cap() int { return len(l.buf) }

// Recent returns up to n trades, newest first. n <= 0 returns all.
func (l *Ledger) Recent(n int) []ClosedTrade {
	if n <= 0 || n > l.count {
		n = l.count
	}
	out := make([]ClosedTrade, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}
