package noren

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/market"

	"github.com/tidwall/gjson"
)

const seriesTimeLayout = "02-01-2006 15:04:05"

func (c *Client) Quote(ctx context.Context, inst market.Instrument) (market.Quote, error) {
	return c.quote(ctx, inst.Symbol, inst.Exchange, inst.Token)
}

func (c *Client) IndexQuote(ctx context.Context, exchange, token string) (market.Quote, error) {
	return c.quote(ctx, token, exchange, token)
}

func (c *Client) quote(ctx context.Context, symbol, exchange, token string) (market.Quote, error) {
	res, err := c.post(ctx, endpointQuotes, map[string]string{"exch": exchange, "token": token})
	if err != nil {
		return market.Quote{}, &broker.TransientFeedError{Symbol: symbol, Op: "quote", Err: err}
	}
	q := market.Quote{
		Symbol:    symbol,
		LastPrice: res.Get("lp").Float(),
		Open:      res.Get("o").Float(),
		High:      res.Get("h").Float(),
		Low:       res.Get("l").Float(),
		Volume:    res.Get("v").Float(),
		Time:      c.nowFn(),
	}
	if q.LastPrice <= 0 {
		return market.Quote{}, &broker.TransientFeedError{Symbol: symbol, Op: "quote", Err: errors.New("missing last price")}
	}
	return q, nil
}

// Candles fetches historical bars between start and end, oldest first.
// Rows that cannot be parsed are skipped.
func (c *Client) Candles(ctx context.Context, inst market.Instrument, start, end time.Time, interval string) ([]market.Sample, error) {
	res, err := c.post(ctx, endpointSeries, map[string]string{
		"exch":  inst.Exchange,
		"token": inst.Token,
		"st":    strconv.FormatInt(start.Unix(), 10),
		"et":    strconv.FormatInt(end.Unix(), 10),
		"intrv": interval,
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && strings.Contains(strings.ToLower(se.message), "no data") {
			return nil, nil
		}
		return nil, &broker.TransientFeedError{Symbol: inst.Symbol, Op: "candles", Err: err}
	}
	if !res.IsArray() {
		return nil, &broker.TransientFeedError{Symbol: inst.Symbol, Op: "candles", Err: fmt.Errorf("unexpected payload")}
	}
	var out []market.Sample
	res.ForEach(func(_, row gjson.Result) bool {
		if s, ok := c.parseCandle(row); ok {
			out = append(out, s)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (c *Client) parseCandle(row gjson.Result) (market.Sample, bool) {
	var ts time.Time
	if raw := row.Get("time").String(); raw != "" {
		t, err := time.ParseInLocation(seriesTimeLayout, raw, c.loc)
		if err != nil {
			return market.Sample{}, false
		}
		ts = t
	} else if epoch := row.Get("ssboe").Int(); epoch > 0 {
		ts = time.Unix(epoch, 0).In(c.loc)
	} else {
		return market.Sample{}, false
	}
	vol := row.Get("intv")
	if !vol.Exists() {
		vol = row.Get("v")
	}
	s := market.Sample{
		Time:   ts,
		Open:   row.Get("into").Float(),
		High:   row.Get("inth").Float(),
		Low:    row.Get("intl").Float(),
		Close:  row.Get("intc").Float(),
		Volume: vol.Float(),
	}
	if s.Validate() != nil {
		return market.Sample{}, false
	}
	return s, true
}

// SearchInstrument returns the contracts matching text. A "no data" answer
// is an empty result.
func (c *Client) SearchInstrument(ctx context.Context, exchange, text string) ([]broker.Contract, error) {
	res, err := c.post(ctx, endpointSearch, map[string]string{"exch": exchange, "stext": text})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, nil
		}
		return nil, &broker.TransientFeedError{Symbol: text, Op: "search", Err: err}
	}
	var out []broker.Contract
	res.Get("values").ForEach(func(_, v gjson.Result) bool {
		out = append(out, broker.Contract{
			Exchange: v.Get("exch").String(),
			Symbol:   v.Get("tsym").String(),
			Token:    v.Get("token").String(),
			LotSize:  int(v.Get("ls").Int()),
		})
		return true
	})
	return out, nil
}
