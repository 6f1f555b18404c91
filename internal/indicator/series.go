package indicator

import (
	"math"
	"time"

	"vwaptrader/internal/market"

	talib "github.com/markcheno/go-talib"
)

// Point is a sample with the indicators derived at that position.
type Point struct {
	market.Sample
	VWAP float64 `json:"vwap"`
	EMA  float64 `json:"ema"`

	session string
	cumTPV  float64
	cumVol  float64
}

// series is an append-only, timestamp-ordered sequence with running
// indicator state carried on each point.
type series struct {
	points []Point
}

// upsert places s by timestamp and returns the first index whose
// indicators must be recomputed.
func (sr *series) upsert(s market.Sample) int {
	n := len(sr.points)
	if n == 0 || s.Time.After(sr.points[n-1].Time) {
		sr.points = append(sr.points, Point{Sample: s})
		return n
	}
	idx := sr.search(s.Time)
	if idx < n && sr.points[idx].Time.Equal(s.Time) {
		sr.points[idx] = Point{Sample: s}
		return idx
	}
	sr.points = append(sr.points, Point{})
	copy(sr.points[idx+1:], sr.points[idx:])
	sr.points[idx] = Point{Sample: s}
	return idx
}

// search returns the first index with Time >= t.
func (sr *series) search(t time.Time) int {
	lo, hi := 0, len(sr.points)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if sr.points[mid].Time.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// recompute rebuilds VWAP and EMA from index from to the end, continuing
// from the state stored on points[from-1].
func (sr *series) recompute(from int, k float64, loc *time.Location) {
	if from < 0 {
		from = 0
	}
	tail := sr.points[from:]
	if len(tail) == 0 {
		return
	}
	highs := make([]float64, len(tail))
	lows := make([]float64, len(tail))
	closes := make([]float64, len(tail))
	for i, p := range tail {
		highs[i], lows[i], closes[i] = p.High, p.Low, p.Close
	}
	typical := talib.TypPrice(highs, lows, closes)

	var prev *Point
	if from > 0 {
		prev = &sr.points[from-1]
	}
	for i := range tail {
		p := &tail[i]
		p.session = sessionKey(p.Time, loc)
		vol := p.Volume
		if vol <= 0 {
			vol = 1
		}
		if prev == nil || prev.session != p.session {
			p.cumTPV = typical[i] * vol
			p.cumVol = vol
		} else {
			p.cumTPV = prev.cumTPV + typical[i]*vol
			p.cumVol = prev.cumVol + vol
		}
		p.VWAP = p.cumTPV / p.cumVol
		if prev == nil {
			p.EMA = p.Close
		} else {
			p.EMA = prev.EMA + k*(p.Close-prev.EMA)
		}
		prev = p
	}
}

func sessionKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02")
}

// SessionVWAP is the batch form of the session VWAP used by the engine:
// typical price weighted by volume (zero volume counts as 1), reset
// whenever the calendar date in loc changes.
func SessionVWAP(samples []market.Sample, loc *time.Location) []float64 {
	out := make([]float64, len(samples))
	var cumTPV, cumVol float64
	last := ""
	for i, s := range samples {
		day := sessionKey(s.Time, loc)
		if day != last {
			cumTPV, cumVol, last = 0, 0, day
		}
		vol := s.Volume
		if vol <= 0 {
			vol = 1
		}
		cumTPV += (s.High + s.Low + s.Close) / 3 * vol
		cumVol += vol
		out[i] = cumTPV / cumVol
	}
	return out
}

// EMA seeds from the first finite close and applies
// ema[t] = ema[t-1] + k*(close[t]-ema[t-1]) with k = 2/(span+1).
// Leading positions without a value are back-filled with the first
// computed value; a non-finite close in the middle carries the previous value.
func EMA(closes []float64, span int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 || span < 1 {
		return out
	}
	k := Alpha(span)
	first := -1
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			if first >= 0 {
				out[i] = out[i-1]
			}
			continue
		}
		if first < 0 {
			first = i
			out[i] = c
			continue
		}
		out[i] = out[i-1] + k*(c-out[i-1])
	}
	if first < 0 {
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out
}

// Alpha is the EMA smoothing factor for span.
func Alpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}
