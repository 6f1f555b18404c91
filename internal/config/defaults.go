package config

import (
	"strings"
	"time"
)

// 默认值常量
const (
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultBrokerKind       = "noren"
	defaultBrokerExchange   = "NFO"
	defaultIndexExchange    = "NSE"
	defaultBrokerTimeout    = 10 * time.Second
	defaultBrokerRate       = 8.0
	defaultBrokerBurst      = 4
	defaultProductType      = "M"
	defaultPriceType        = "MKT"
	defaultStrikesCount     = 1
	defaultEMASpan          = 5
	defaultSLPct            = 0.0
	defaultTPPct            = 0.60
	defaultTrailingPct      = 0.30
	defaultCommissionRate   = 0.0003
	defaultEntryDelay       = 30 * time.Second
	defaultEntryPoll        = time.Second
	defaultLedgerSize       = 20
	defaultCandleInterval   = "1"
	defaultBackfillDays     = 3
	defaultMaxDailyLoss     = 5000.0
	defaultTimezone         = "Asia/Kolkata"
	defaultSessionOpen      = "09:15"
	defaultSessionClose     = "15:30"
	defaultExitCutoff       = "15:40"
	defaultLoopInterval     = 5 * time.Second
	defaultIdleInterval     = time.Minute
	defaultBackoffBase      = 2 * time.Second
	defaultBackoffMax       = 30 * time.Second
	defaultBreakerThreshold = 3
	defaultBreakerTimeout   = time.Minute
	defaultStorePath        = "data/vwaptrader.db"
	defaultHTTPAddr         = ":8080"
)

// ExpiryAuto 表示使用最近的周四周度到期日。
const ExpiryAuto = "auto"

// DefaultUnderlyings NIFTY/BANKNIFTY 指数期权，token 为 NSE 指数行情 token。
func DefaultUnderlyings() []UnderlyingConfig {
	return []UnderlyingConfig{
		{Name: "NIFTY", IndexToken: "26000", StrikeStep: 50, LotSize: 75, Expiry: ExpiryAuto, StrikesCount: defaultStrikesCount},
		{Name: "BANKNIFTY", IndexToken: "26009", StrikeStep: 100, LotSize: 25, Expiry: ExpiryAuto, StrikesCount: defaultStrikesCount},
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Universe.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Session.applyDefaults(keys)
	c.Loop.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultLogFormat),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("broker.kind", &b.Kind, defaultBrokerKind),
		stringFieldDefault("broker.exchange", &b.Exchange, defaultBrokerExchange),
		stringFieldDefault("broker.index_exchange", &b.IndexExchange, defaultIndexExchange),
		stringFieldDefault("broker.product_type", &b.ProductType, defaultProductType),
		stringFieldDefault("broker.price_type", &b.PriceType, defaultPriceType),
		durationFieldDefault("broker.timeout", &b.Timeout, defaultBrokerTimeout),
		fieldDefault{
			key:   "broker.rate_per_sec",
			need:  func() bool { return b.RatePerSec <= 0 },
			apply: func() { b.RatePerSec = defaultBrokerRate },
		},
		fieldDefault{
			key:   "broker.burst",
			need:  func() bool { return b.Burst <= 0 },
			apply: func() { b.Burst = defaultBrokerBurst },
		},
	)
	b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
}

func (u *UniverseConfig) applyDefaults(keys keySet) {
	if u == nil {
		return
	}
	if !keys.isSet("universe.underlyings") && len(u.Underlyings) == 0 {
		u.Underlyings = DefaultUnderlyings()
		return
	}
	known := make(map[string]UnderlyingConfig)
	for _, d := range DefaultUnderlyings() {
		known[d.Name] = d
	}
	for i := range u.Underlyings {
		item := &u.Underlyings[i]
		item.Name = strings.ToUpper(strings.TrimSpace(item.Name))
		def, ok := known[item.Name]
		if ok {
			if item.IndexToken == "" {
				item.IndexToken = def.IndexToken
			}
			if item.StrikeStep <= 0 {
				item.StrikeStep = def.StrikeStep
			}
			if item.LotSize <= 0 {
				item.LotSize = def.LotSize
			}
		}
		if item.StrikesCount <= 0 {
			item.StrikesCount = defaultStrikesCount
		}
	}
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "strategy.ema_span",
			need:  func() bool { return s.EMASpan <= 0 },
			apply: func() { s.EMASpan = defaultEMASpan },
		},
		floatFieldDefault("strategy.sl_pct", &s.SLPct, defaultSLPct),
		floatFieldDefault("strategy.tp_pct", &s.TPPct, defaultTPPct),
		floatFieldDefault("strategy.trailing_pct", &s.TrailingPct, defaultTrailingPct),
		floatFieldDefault("strategy.commission_rate", &s.CommissionRate, defaultCommissionRate),
		durationFieldDefault("strategy.entry_delay", &s.EntryDelay, defaultEntryDelay),
		durationFieldDefault("strategy.entry_poll", &s.EntryPoll, defaultEntryPoll),
		fieldDefault{
			key:   "strategy.ledger_size",
			need:  func() bool { return s.LedgerSize <= 0 },
			apply: func() { s.LedgerSize = defaultLedgerSize },
		},
		stringFieldDefault("strategy.candle_interval", &s.CandleInterval, defaultCandleInterval),
		fieldDefault{
			key:   "strategy.backfill_days",
			apply: func() { s.BackfillDays = defaultBackfillDays },
		},
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("risk.max_daily_loss", &r.MaxDailyLoss, defaultMaxDailyLoss),
	)
}

func (s *SessionConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("session.timezone", &s.Timezone, defaultTimezone),
		stringFieldDefault("session.open", &s.Open, defaultSessionOpen),
		stringFieldDefault("session.close", &s.Close, defaultSessionClose),
		stringFieldDefault("session.exit_cutoff", &s.ExitCutoff, defaultExitCutoff),
	)
}

func (l *LoopConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		durationFieldDefault("loop.interval", &l.Interval, defaultLoopInterval),
		durationFieldDefault("loop.idle_interval", &l.IdleInterval, defaultIdleInterval),
		durationFieldDefault("loop.backoff_base", &l.BackoffBase, defaultBackoffBase),
		durationFieldDefault("loop.backoff_max", &l.BackoffMax, defaultBackoffMax),
		durationFieldDefault("loop.breaker_timeout", &l.BreakerTimeout, defaultBreakerTimeout),
		fieldDefault{
			key:   "loop.breaker_threshold",
			need:  func() bool { return l.BreakerThreshold <= 0 },
			apply: func() { l.BreakerThreshold = defaultBreakerThreshold },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys, stringFieldDefault("store.path", &s.Path, defaultStorePath))
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys, stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr))
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// floatFieldDefault applies whenever the key is absent, zero is a legal value.
func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func durationFieldDefault(key string, target *time.Duration, def time.Duration) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
