package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/broker/brokertest"
	"vwaptrader/internal/config"
	"vwaptrader/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestATMStrikes(t *testing.T) {
	assert.Equal(t, []int{24000}, ATMStrikes(24012.4, 50, 0))
	assert.Equal(t, []int{23950, 24000, 24050}, ATMStrikes(24024.9, 50, 1))
	assert.Equal(t, []int{24050}, ATMStrikes(24025, 50, 0), "half rounds away from zero")
	assert.Equal(t, []int{51900, 52000, 52100}, ATMStrikes(52049, 100, 1))
	assert.Nil(t, ATMStrikes(0, 50, 1))
}

func TestWeeklyExpiry(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "06NOV25", WeeklyExpiry(time.Date(2025, 11, 3, 10, 0, 0, 0, ist), ist))
	assert.Equal(t, "06NOV25", WeeklyExpiry(time.Date(2025, 11, 6, 10, 0, 0, 0, ist), ist))
	assert.Equal(t, "13NOV25", WeeklyExpiry(time.Date(2025, 11, 7, 10, 0, 0, 0, ist), ist))
}

func testConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{Exchange: "NFO", IndexExchange: "NSE"},
		Universe: config.UniverseConfig{Underlyings: []config.UnderlyingConfig{
			{Name: "NIFTY", IndexToken: "26000", StrikeStep: 50, LotSize: 75, Expiry: "06NOV25", StrikesCount: 0},
		}},
	}
}

func TestResolveBuildsCallAndPut(t *testing.T) {
	b := new(brokertest.MockBroker)
	ctx := context.Background()
	b.On("IndexQuote", ctx, "NSE", "26000").Return(market.Quote{LastPrice: 24010}, nil)
	b.On("SearchInstrument", ctx, "NFO", "NIFTY06NOV25C24000").
		Return([]broker.Contract{{Exchange: "NFO", Symbol: "nifty06nov25c24000", Token: "43210", LotSize: 75}}, nil)
	b.On("SearchInstrument", ctx, "NFO", "NIFTY06NOV25P24000").
		Return([]broker.Contract{{Exchange: "NFO", Symbol: "NIFTY06NOV25P24000", Token: "43211"}}, nil)

	r := NewResolver(b, b, testConfig(), time.UTC)
	insts, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "NIFTY06NOV25C24000", insts[0].Symbol)
	assert.Equal(t, market.OptionCall, insts[0].OptionType)
	assert.Equal(t, "43210", insts[0].Token)
	assert.Equal(t, 75, insts[1].LotSize, "falls back to configured lot size")
	assert.Equal(t, market.OptionPut, insts[1].OptionType)
	b.AssertExpectations(t)
}

func TestResolveSkipsMissingAndFailsWhenEmpty(t *testing.T) {
	b := new(brokertest.MockBroker)
	ctx := context.Background()
	b.On("IndexQuote", ctx, "NSE", "26000").Return(market.Quote{LastPrice: 24010}, nil)
	b.On("SearchInstrument", ctx, "NFO", mock.Anything).
		Return([]broker.Contract{{Symbol: "NIFTY06NOV25C24500", Token: "1"}}, nil)

	_, err := NewResolver(b, b, testConfig(), time.UTC).Resolve(ctx)
	require.Error(t, err)
}

func TestResolveIndexQuoteFailure(t *testing.T) {
	b := new(brokertest.MockBroker)
	ctx := context.Background()
	b.On("IndexQuote", ctx, "NSE", "26000").Return(market.Quote{}, errors.New("timeout"))

	_, err := NewResolver(b, b, testConfig(), time.UTC).Resolve(ctx)
	require.Error(t, err)
	b.AssertNotCalled(t, "SearchInstrument", mock.Anything, mock.Anything, mock.Anything)
}
