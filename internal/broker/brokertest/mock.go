// Package brokertest provides a testify mock of the broker ports.
package brokertest

import (
	"context"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/market"

	"github.com/stretchr/testify/mock"
)

type MockBroker struct {
	mock.Mock
}

var _ broker.Broker = (*MockBroker)(nil)

func (m *MockBroker) Quote(ctx context.Context, inst market.Instrument) (market.Quote, error) {
	args := m.Called(ctx, inst)
	return args.Get(0).(market.Quote), args.Error(1)
}

func (m *MockBroker) IndexQuote(ctx context.Context, exchange, token string) (market.Quote, error) {
	args := m.Called(ctx, exchange, token)
	return args.Get(0).(market.Quote), args.Error(1)
}

func (m *MockBroker) Candles(ctx context.Context, inst market.Instrument, start, end time.Time, interval string) ([]market.Sample, error) {
	args := m.Called(ctx, inst, start, end, interval)
	var out []market.Sample
	if v := args.Get(0); v != nil {
		out = v.([]market.Sample)
	}
	return out, args.Error(1)
}

func (m *MockBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderAck), args.Error(1)
}

func (m *MockBroker) SearchInstrument(ctx context.Context, exchange, text string) ([]broker.Contract, error) {
	args := m.Called(ctx, exchange, text)
	var out []broker.Contract
	if v := args.Get(0); v != nil {
		out = v.([]broker.Contract)
	}
	return out, args.Error(1)
}
