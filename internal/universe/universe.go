package universe

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/config"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/market"
)

// ATMStrikes returns the at-the-money strike for ltp and count strikes on
// each side of it, ascending.
func ATMStrikes(ltp float64, step, count int) []int {
	if step <= 0 || ltp <= 0 {
		return nil
	}
	if count < 0 {
		count = 0
	}
	atm := int(math.Round(ltp/float64(step))) * step
	out := make([]int, 0, 2*count+1)
	for i := -count; i <= count; i++ {
		if s := atm + i*step; s > 0 {
			out = append(out, s)
		}
	}
	return out
}

// WeeklyExpiry returns the nearest Thursday on or after now, formatted the
// way option symbols carry it (e.g. 06NOV25).
func WeeklyExpiry(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	days := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	return strings.ToUpper(now.AddDate(0, 0, days).Format("02Jan06"))
}

type Resolver struct {
	feed          broker.Feed
	search        broker.InstrumentSearch
	underlyings   []config.UnderlyingConfig
	exchange      string
	indexExchange string
	loc           *time.Location
	nowFn         func() time.Time
}

func NewResolver(feed broker.Feed, search broker.InstrumentSearch, cfg *config.Config, loc *time.Location) *Resolver {
	return &Resolver{
		feed:          feed,
		search:        search,
		underlyings:   cfg.Universe.Underlyings,
		exchange:      cfg.Broker.Exchange,
		indexExchange: cfg.Broker.IndexExchange,
		loc:           loc,
		nowFn:         time.Now,
	}
}

// Resolve builds the instrument universe from the current index levels.
// Contracts the broker cannot find are logged and skipped; an empty result
// is an error.
func (r *Resolver) Resolve(ctx context.Context) ([]market.Instrument, error) {
	var out []market.Instrument
	for _, u := range r.underlyings {
		insts, err := r.resolveUnderlying(ctx, u)
		if err != nil {
			logger.Errorf("Universe: %s 解析失败: %v", u.Name, err)
			continue
		}
		out = append(out, insts...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("universe: no instrument could be resolved")
	}
	return out, nil
}

func (r *Resolver) resolveUnderlying(ctx context.Context, u config.UnderlyingConfig) ([]market.Instrument, error) {
	q, err := r.feed.IndexQuote(ctx, r.indexExchange, u.IndexToken)
	if err != nil {
		return nil, fmt.Errorf("index quote: %w", err)
	}
	expiry := u.Expiry
	if strings.EqualFold(expiry, config.ExpiryAuto) {
		expiry = WeeklyExpiry(r.nowFn(), r.loc)
	}
	strikes := ATMStrikes(q.LastPrice, u.StrikeStep, u.StrikesCount)
	logger.Infof("Universe: %s ltp=%.2f expiry=%s strikes=%v", u.Name, q.LastPrice, expiry, strikes)

	var out []market.Instrument
	for _, strike := range strikes {
		for _, typ := range []market.OptionType{market.OptionCall, market.OptionPut} {
			symbol := market.OptionSymbol(u.Name, expiry, typ, strike)
			inst, err := r.lookup(ctx, u, symbol, strike, typ)
			if err != nil {
				logger.Warnf("Universe: %v", err)
				continue
			}
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *Resolver) lookup(ctx context.Context, u config.UnderlyingConfig, symbol string, strike int, typ market.OptionType) (market.Instrument, error) {
	contracts, err := r.search.SearchInstrument(ctx, r.exchange, symbol)
	if err != nil {
		return market.Instrument{}, fmt.Errorf("search %s: %w", symbol, err)
	}
	for _, c := range contracts {
		if !strings.EqualFold(c.Symbol, symbol) {
			continue
		}
		lot := c.LotSize
		if lot <= 0 {
			lot = u.LotSize
		}
		exch := c.Exchange
		if exch == "" {
			exch = r.exchange
		}
		inst := market.Instrument{
			Symbol:     strings.ToUpper(c.Symbol),
			Underlying: u.Name,
			Strike:     strike,
			OptionType: typ,
			LotSize:    lot,
			Token:      c.Token,
			Exchange:   exch,
		}
		if err := inst.Validate(); err != nil {
			return market.Instrument{}, err
		}
		return inst, nil
	}
	return market.Instrument{}, &broker.MissingInstrumentError{Symbol: symbol}
}
