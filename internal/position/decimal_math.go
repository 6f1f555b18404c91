package position

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne      = decimal.NewFromInt(1)
	decimalEps  = decimal.NewFromFloat(1e-8)
	decimalZero = decimal.Zero
	floorFactor = decimal.NewFromFloat(0.5)
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// levelBelow returns base*(1-pct).
func levelBelow(base, pct float64) float64 {
	if base <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(base).Mul(decOne.Sub(decFromFloat(pct))))
}

// levelAbove returns base*(1+pct).
func levelAbove(base, pct float64) float64 {
	if base <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(base).Mul(decOne.Add(decFromFloat(pct))))
}

// initialStop is entry*(1-slPct), or half the entry when no stop is set.
func initialStop(entry, slPct float64) float64 {
	if slPct > 0 {
		return levelBelow(entry, slPct)
	}
	return decToFloat(decFromFloat(entry).Mul(floorFactor))
}

// shouldRaiseStop reports whether candidate tightens a long stop.
func shouldRaiseStop(candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	return decFromFloat(candidate).Cmp(decFromFloat(current).Add(decimalEps)) > 0
}

// markToMarket is (price-entry)*qty.
func markToMarket(entry, price float64, qty int) float64 {
	return decToFloat(decFromFloat(price).Sub(decFromFloat(entry)).Mul(decimal.NewFromInt(int64(qty))))
}

// realizedPnL is (exit-entry)*qty minus (entry+exit)*qty*rate.
func realizedPnL(entry, exit float64, qty int, rate float64) float64 {
	q := decimal.NewFromInt(int64(qty))
	en, ex := decFromFloat(entry), decFromFloat(exit)
	gross := ex.Sub(en).Mul(q)
	commission := en.Add(ex).Mul(q).Mul(decFromFloat(rate))
	return decToFloat(gross.Sub(commission))
}
