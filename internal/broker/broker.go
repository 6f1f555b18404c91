package broker

import (
	"context"
	"time"

	"vwaptrader/internal/market"
)

type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "S"
)

type OrderRequest struct {
	Instrument market.Instrument
	Side       Side
	Qty        int
}

// OrderAck is returned once the broker accepted the order. FillPrice is
// zero when the broker does not report a fill.
type OrderAck struct {
	OrderID   string
	FillPrice float64
}

// Contract is one row of an instrument search result.
type Contract struct {
	Exchange string
	Symbol   string
	Token    string
	LotSize  int
}

// Feed supplies quotes and historical candles.
type Feed interface {
	Quote(ctx context.Context, inst market.Instrument) (market.Quote, error)
	IndexQuote(ctx context.Context, exchange, token string) (market.Quote, error)
	Candles(ctx context.Context, inst market.Instrument, start, end time.Time, interval string) ([]market.Sample, error)
}

type OrderEntry interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
}

type InstrumentSearch interface {
	SearchInstrument(ctx context.Context, exchange, text string) ([]Contract, error)
}

// Broker is the full collaborator surface used by the engine.
type Broker interface {
	Feed
	OrderEntry
	InstrumentSearch
}
