package config

import (
	"strings"
	"time"
)

// Config 是 vwaptrader 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Broker   BrokerConfig   `toml:"broker"`
	Universe UniverseConfig `toml:"universe"`
	Strategy StrategyConfig `toml:"strategy"`
	Risk     RiskConfig     `toml:"risk"`
	Session  SessionConfig  `toml:"session"`
	Loop     LoopConfig     `toml:"loop"`
	Store    StoreConfig    `toml:"store"`
	HTTP     HTTPConfig     `toml:"http"`
}

type AppConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "text" | "json"
	LogPath   string `toml:"log_path"`
	DryRun    bool   `toml:"dry_run"`
}

// BrokerConfig 描述行情/下单网关。鉴权不在本服务内完成，token 由外部注入。
type BrokerConfig struct {
	Kind          string        `toml:"kind"` // "noren" | "paper"
	BaseURL       string        `toml:"base_url"`
	UserID        string        `toml:"user_id"`
	Token         string        `toml:"token"`
	Exchange      string        `toml:"exchange"`
	IndexExchange string        `toml:"index_exchange"`
	Timeout       time.Duration `toml:"timeout"`
	RatePerSec    float64       `toml:"rate_per_sec"`
	Burst         int           `toml:"burst"`
	ProductType   string        `toml:"product_type"`
	PriceType     string        `toml:"price_type"`
	PaperSeed     int64         `toml:"paper_seed"`
}

type UniverseConfig struct {
	Underlyings []UnderlyingConfig `toml:"underlyings"`
}

// UnderlyingConfig 描述一个指数标的及其期权合约的生成规则。
type UnderlyingConfig struct {
	Name         string `toml:"name"`
	IndexToken   string `toml:"index_token"`
	StrikeStep   int    `toml:"strike_step"`
	LotSize      int    `toml:"lot_size"`
	Expiry       string `toml:"expiry"` // e.g. "25NOV25" or "auto"
	StrikesCount int    `toml:"strikes_count"`
}

type StrategyConfig struct {
	EMASpan          int           `toml:"ema_span"`
	SLPct            float64       `toml:"sl_pct"`
	TPPct            float64       `toml:"tp_pct"`
	TrailingPct      float64       `toml:"trailing_pct"`
	CommissionRate   float64       `toml:"commission_rate"`
	EntryDelay       time.Duration `toml:"entry_delay"`
	EntryPoll        time.Duration `toml:"entry_poll"`
	SignalChangeExit bool          `toml:"signal_change_exit"`
	// AllowSameSignalReentry 允许空仓时以同方向信号再次入场。
	AllowSameSignalReentry bool          `toml:"allow_same_signal_reentry"`
	LedgerSize             int           `toml:"ledger_size"`
	CandleInterval         string        `toml:"candle_interval"`
	BackfillDays           int           `toml:"backfill_days"`
}

// TrailingEnabled reports whether the trailing stop is active. It requires
// both a base stop percentage and a trailing percentage.
func (s StrategyConfig) TrailingEnabled() bool {
	return s.SLPct > 0 && s.TrailingPct > 0
}

type RiskConfig struct {
	MaxDailyLoss float64 `toml:"max_daily_loss"`
	KillSwitch   bool    `toml:"kill_switch"`
}

// SessionConfig 交易时段，时间格式 HH:MM，按 Timezone 解释。
type SessionConfig struct {
	Timezone   string `toml:"timezone"`
	Open       string `toml:"open"`
	Close      string `toml:"close"`
	ExitCutoff string `toml:"exit_cutoff"`
}

type LoopConfig struct {
	Interval         time.Duration `toml:"interval"`
	IdleInterval     time.Duration `toml:"idle_interval"`
	BackoffBase      time.Duration `toml:"backoff_base"`
	BackoffMax       time.Duration `toml:"backoff_max"`
	BreakerThreshold int           `toml:"breaker_threshold"`
	BreakerTimeout   time.Duration `toml:"breaker_timeout"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
