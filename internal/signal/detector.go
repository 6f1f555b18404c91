package signal

import (
	"time"

	"vwaptrader/internal/indicator"
)

type Direction string

const (
	BuyCall Direction = "BUY_CALL"
	BuyPut  Direction = "BUY_PUT"
)

func (d Direction) Opposite() Direction {
	switch d {
	case BuyCall:
		return BuyPut
	case BuyPut:
		return BuyCall
	default:
		return ""
	}
}

// Signal is an ephemeral crossover event on one instrument.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Time      time.Time `json:"time"`
}

// Detector evaluates the EMA/VWAP crossover on the last two points.
type Detector struct{}

// Evaluate returns at most one signal. A bullish crossover needs EMA to
// move from at-or-below VWAP to above it, with the close above both lines;
// the bearish case mirrors it.
func (Detector) Evaluate(symbol string, window []indicator.Point) (Signal, bool) {
	if len(window) < 2 {
		return Signal{}, false
	}
	prev, curr := window[len(window)-2], window[len(window)-1]
	var dir Direction
	switch {
	case prev.EMA <= prev.VWAP && curr.EMA > curr.VWAP &&
		curr.Close > curr.VWAP && curr.Close > curr.EMA:
		dir = BuyCall
	case prev.EMA >= prev.VWAP && curr.EMA < curr.VWAP &&
		curr.Close < curr.VWAP && curr.Close < curr.EMA:
		dir = BuyPut
	default:
		return Signal{}, false
	}
	return Signal{Symbol: symbol, Direction: dir, Price: curr.Close, Time: curr.Time}, true
}

// Scan evaluates every adjacent pair and returns signals keyed by the index
// of the current point.
func (d Detector) Scan(symbol string, points []indicator.Point) map[int]Signal {
	out := make(map[int]Signal)
	for i := 1; i < len(points); i++ {
		if sig, ok := d.Evaluate(symbol, points[i-1:i+1]); ok {
			out[i] = sig
		}
	}
	return out
}
