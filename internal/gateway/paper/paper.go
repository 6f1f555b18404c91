// Package paper is an in-memory broker for dry runs. Quotes follow a
// seeded random walk per symbol and every order fills at the last quote.
package paper

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/market"
)

// indexBase seeds the walk for the well-known index tokens.
var indexBase = map[string]float64{
	"26000": 24000,
	"26009": 52000,
}

type walk struct {
	rng    *rand.Rand
	price  float64
	open   float64
	high   float64
	low    float64
	volume float64
}

type Broker struct {
	mu      sync.Mutex
	seed   int64
	walks  map[string]*walk
	orders int
	nowFn  func() time.Time
}

var _ broker.Broker = (*Broker)(nil)

// New builds a paper broker. The same seed replays the same price paths.
func New(seed int64) *Broker {
	return &Broker{
		seed:  seed,
		walks: make(map[string]*walk),
		nowFn: time.Now,
	}
}

func symbolHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & math.MaxInt64)
}

func (b *Broker) walkFor(key string, base float64) *walk {
	w, ok := b.walks[key]
	if !ok {
		rng := rand.New(rand.NewSource(b.seed ^ symbolHash(key)))
		if base <= 0 {
			base = 80 + rng.Float64()*120
		}
		w = &walk{rng: rng, price: base, open: base, high: base, low: base}
		b.walks[key] = w
	}
	return w
}

// step moves the walk by up to ±1% and returns the quote.
func (w *walk) step(symbol string, at time.Time) market.Quote {
	w.price *= 1 + (w.rng.Float64()-0.5)*0.02
	w.price = math.Round(w.price*20) / 20
	if w.price < 0.05 {
		w.price = 0.05
	}
	w.high = math.Max(w.high, w.price)
	w.low = math.Min(w.low, w.price)
	w.volume += float64(w.rng.Intn(5000) + 100)
	return market.Quote{
		Symbol:    symbol,
		LastPrice: w.price,
		Open:      w.open,
		High:      w.high,
		Low:       w.low,
		Volume:    w.volume,
		Time:      at,
	}
}

func (b *Broker) Quote(ctx context.Context, inst market.Instrument) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, &broker.TransientFeedError{Symbol: inst.Symbol, Op: "quote", Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.walkFor(inst.Symbol, 0).step(inst.Symbol, b.nowFn()), nil
}

func (b *Broker) IndexQuote(ctx context.Context, exchange, token string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, &broker.TransientFeedError{Symbol: token, Op: "quote", Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.walkFor(exchange+":"+token, indexBase[token]).step(token, b.nowFn()), nil
}

// Candles synthesises one bar per interval between start and end from a
// walk that is independent of the live quote path.
func (b *Broker) Candles(ctx context.Context, inst market.Instrument, start, end time.Time, interval string) ([]market.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &broker.TransientFeedError{Symbol: inst.Symbol, Op: "candles", Err: err}
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(interval))
	if err != nil || minutes <= 0 {
		return nil, fmt.Errorf("paper candles: unsupported interval %q", interval)
	}
	step := time.Duration(minutes) * time.Minute

	b.mu.Lock()
	defer b.mu.Unlock()
	rng := rand.New(rand.NewSource(b.seed ^ symbolHash("candles:"+inst.Symbol)))
	price := b.walkFor(inst.Symbol, 0).open
	var out []market.Sample
	for t := start; !t.After(end); t = t.Add(step) {
		open := price
		price *= 1 + (rng.Float64()-0.5)*0.02
		hi := math.Max(open, price) * (1 + rng.Float64()*0.003)
		lo := math.Min(open, price) * (1 - rng.Float64()*0.003)
		out = append(out, market.Sample{
			Time: t, Open: open, High: hi, Low: lo, Close: price,
			Volume: float64(rng.Intn(5000) + 100),
		})
	}
	return out, nil
}

// PlaceOrder fills immediately at the symbol's last price.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderAck{}, &broker.OrderRejectedError{Symbol: req.Instrument.Symbol, Side: req.Side, Qty: req.Qty, Err: err}
	}
	if req.Qty <= 0 {
		return broker.OrderAck{}, &broker.OrderRejectedError{Symbol: req.Instrument.Symbol, Side: req.Side, Qty: req.Qty, Reason: "quantity must be > 0"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.walkFor(req.Instrument.Symbol, 0)
	b.orders++
	id := fmt.Sprintf("PAPER-%06d", b.orders)
	logger.Infof("Paper: filled %s %s qty=%d @ %.2f id=%s", req.Side, req.Instrument.Symbol, req.Qty, w.price, id)
	return broker.OrderAck{OrderID: id, FillPrice: w.price}, nil
}

// SearchInstrument resolves any text to a single contract. The lot size
// is left to configuration.
func (b *Broker) SearchInstrument(_ context.Context, exchange, text string) ([]broker.Contract, error) {
	symbol := strings.ToUpper(strings.TrimSpace(text))
	if symbol == "" {
		return nil, nil
	}
	return []broker.Contract{{
		Exchange: exchange,
		Symbol:   symbol,
		Token:    strconv.FormatInt(symbolHash(symbol)%1000000, 10),
	}}, nil
}
