package market

import (
	"fmt"
	"math"
	"time"
)

// Sample is one OHLCV observation. Quote polling produces one per cycle,
// backfill produces one per broker candle.
type Sample struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

func (s Sample) Validate() error {
	if s.Time.IsZero() {
		return fmt.Errorf("sample has zero timestamp")
	}
	for _, v := range []float64{s.Open, s.High, s.Low, s.Close, s.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sample at %s has non-finite value", s.Time.Format(time.RFC3339))
		}
	}
	if s.Close <= 0 || s.High <= 0 || s.Low <= 0 {
		return fmt.Errorf("sample at %s has non-positive price", s.Time.Format(time.RFC3339))
	}
	if s.High < s.Low {
		return fmt.Errorf("sample at %s has high %.2f below low %.2f", s.Time.Format(time.RFC3339), s.High, s.Low)
	}
	if s.Volume < 0 {
		return fmt.Errorf("sample at %s has negative volume", s.Time.Format(time.RFC3339))
	}
	return nil
}

// Quote is a validated last-price snapshot. High and Low are the session
// extremes reported by the broker, not the extremes since the last poll.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LastPrice float64   `json:"last_price"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Time      time.Time `json:"time"`
}

// Sample converts the quote into a series sample stamped at the quote time.
// The bar's close is the last price; missing fields fall back to it.
func (q Quote) Sample() Sample {
	s := Sample{
		Time:   q.Time,
		Open:   q.Open,
		High:   q.High,
		Low:    q.Low,
		Close:  q.LastPrice,
		Volume: q.Volume,
	}
	if s.Open <= 0 {
		s.Open = q.LastPrice
	}
	if s.High <= 0 {
		s.High = q.LastPrice
	}
	if s.Low <= 0 {
		s.Low = q.LastPrice
	}
	return s
}
