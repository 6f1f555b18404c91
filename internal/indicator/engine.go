package indicator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"vwaptrader/internal/market"
)

// ErrNotReady is returned while an instrument has too little history for
// its indicators to be meaningful. It is a normal state, not a failure.
var ErrNotReady = errors.New("indicator not ready")

// Engine maintains one series per instrument. It is not safe for
// concurrent use; the owner serialises access.
type Engine struct {
	span   int
	k      float64
	warmup int
	loc    *time.Location
	series map[string]*series
}

// NewEngine builds an engine for the given EMA span. Session boundaries
// for VWAP are calendar dates in loc (UTC when nil).
func NewEngine(span int, loc *time.Location) *Engine {
	if span < 1 {
		span = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		span:   span,
		k:      Alpha(span),
		warmup: span,
		loc:    loc,
		series: make(map[string]*series),
	}
}

func (e *Engine) Span() int { return e.span }

// Append inserts s into the symbol's series by timestamp. A sample with an
// existing timestamp replaces the stored one, so re-ingestion is idempotent.
func (e *Engine) Append(symbol string, s market.Sample) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("append %s: %w", symbol, err)
	}
	sr := e.series[symbol]
	if sr == nil {
		sr = &series{}
		e.series[symbol] = sr
	}
	from := sr.upsert(s)
	sr.recompute(from, e.k, e.loc)
	return nil
}

// AppendBatch appends samples in timestamp order and recomputes once.
// Invalid samples are skipped; the count of accepted samples is returned.
func (e *Engine) AppendBatch(symbol string, samples []market.Sample) int {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]market.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Validate() == nil {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	sr := e.series[symbol]
	if sr == nil {
		sr = &series{}
		e.series[symbol] = sr
	}
	from := -1
	for _, s := range sorted {
		idx := sr.upsert(s)
		if from < 0 || idx < from {
			from = idx
		}
	}
	if from >= 0 {
		sr.recompute(from, e.k, e.loc)
	}
	return len(sorted)
}

func (e *Engine) Len(symbol string) int {
	if sr := e.series[symbol]; sr != nil {
		return len(sr.points)
	}
	return 0
}

func (e *Engine) Ready(symbol string) bool {
	return e.Len(symbol) >= e.warmup
}

// Latest returns the most recent point, or ErrNotReady during warm-up.
func (e *Engine) Latest(symbol string) (Point, error) {
	if !e.Ready(symbol) {
		return Point{}, ErrNotReady
	}
	pts := e.series[symbol].points
	return pts[len(pts)-1], nil
}

// Window returns a copy of the last n points, or ErrNotReady when the
// series is warming up or shorter than n.
func (e *Engine) Window(symbol string, n int) ([]Point, error) {
	if n <= 0 || !e.Ready(symbol) || e.Len(symbol) < n {
		return nil, ErrNotReady
	}
	pts := e.series[symbol].points
	out := make([]Point, n)
	copy(out, pts[len(pts)-n:])
	return out, nil
}

// Points returns a copy of the whole series.
func (e *Engine) Points(symbol string) []Point {
	sr := e.series[symbol]
	if sr == nil {
		return nil
	}
	out := make([]Point, len(sr.points))
	copy(out, sr.points)
	return out
}

func (e *Engine) Reset(symbol string) {
	delete(e.series, symbol)
}
