package store

import (
	"context"

	"vwaptrader/internal/market"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
)

// Recorder persists the per-instrument sample stream, closed trades and
// session summaries. Callers treat failures as non-fatal.
type Recorder interface {
	SaveSamples(ctx context.Context, symbol string, samples []market.Sample) error
	SaveTrade(ctx context.Context, trade position.ClosedTrade) error
	SaveSession(ctx context.Context, date string, summary risk.Summary, extras map[string]any) error
	LoadSamples(ctx context.Context, symbol, date string) ([]market.Sample, error)
	ListTrades(ctx context.Context, date string) ([]position.ClosedTrade, error)
	Close() error
}
