package risk

import (
	"sync"
	"time"

	"vwaptrader/internal/logger"

	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonNone       Reason = ""
	ReasonKillSwitch Reason = "KILL_SWITCH"
	ReasonDailyLoss  Reason = "DAILY_LOSS_LIMIT"
)

// Decision is the outcome of an entry check.
type Decision struct {
	Allowed  bool    `json:"allowed"`
	Reason   Reason  `json:"reason,omitempty"`
	DailyPnL float64 `json:"daily_pnl"`
	Limit    float64 `json:"limit"`
}

type Config struct {
	MaxDailyLoss float64
	KillSwitch   bool
}

// Summary is a read-only view of the session's risk state.
type Summary struct {
	Session      string    `json:"session"`
	DailyPnL     float64   `json:"daily_pnl"`
	ClosedTrades int       `json:"closed_trades"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	MaxDailyLoss float64   `json:"max_daily_loss"`
	KillSwitch   bool      `json:"kill_switch"`
	Breached     bool      `json:"breached"`
	BreachedAt   time.Time `json:"breached_at,omitempty"`
}

// Governor tracks realised PnL for the trading session and gates entries.
// Once the loss budget is breached entries stay blocked until the next
// session; open positions are left to their own exit rules.
type Governor struct {
	mu         sync.Mutex
	cfg        Config
	session    string
	dailyPnL   decimal.Decimal
	closed     int
	wins       int
	losses     int
	breached   bool
	breachedAt time.Time
	nowFn      func() time.Time
}

func NewGovernor(cfg Config) *Governor {
	return &Governor{cfg: cfg, dailyPnL: decimal.Zero, nowFn: time.Now}
}

// Record adds the realised PnL of one closed position.
func (g *Governor) Record(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnL = g.dailyPnL.Add(decimal.NewFromFloat(pnl))
	g.closed++
	switch {
	case pnl > 0:
		g.wins++
	case pnl < 0:
		g.losses++
	}
	g.checkBreachLocked()
}

// Evaluate reports whether a new entry is permitted. An entry is allowed
// only while dailyPnL > -maxDailyLoss.
func (g *Governor) Evaluate() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	pnl, _ := g.dailyPnL.Float64()
	d := Decision{Allowed: true, DailyPnL: pnl, Limit: g.cfg.MaxDailyLoss}
	if g.cfg.KillSwitch {
		d.Allowed, d.Reason = false, ReasonKillSwitch
		return d
	}
	g.checkBreachLocked()
	if g.breached {
		d.Allowed, d.Reason = false, ReasonDailyLoss
	}
	return d
}

func (g *Governor) checkBreachLocked() {
	if g.breached || g.cfg.MaxDailyLoss <= 0 {
		return
	}
	limit := decimal.NewFromFloat(g.cfg.MaxDailyLoss).Neg()
	if g.dailyPnL.LessThanOrEqual(limit) {
		g.breached = true
		g.breachedAt = g.nowFn()
		pnl, _ := g.dailyPnL.Float64()
		logger.Warnf("RiskGovernor: daily loss limit reached pnl=%.2f limit=%.2f, entries blocked for session=%s",
			pnl, g.cfg.MaxDailyLoss, g.session)
	}
}

func (g *Governor) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, _ := g.dailyPnL.Float64()
	return f
}

// Rollover starts a new session when key differs from the current one and
// reports whether a reset happened.
func (g *Governor) Rollover(session string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if session == g.session {
		return false
	}
	g.session = session
	g.dailyPnL = decimal.Zero
	g.closed, g.wins, g.losses = 0, 0, 0
	g.breached = false
	g.breachedAt = time.Time{}
	return true
}

// Update applies reloaded limits. A breach already latched this session
// stays in force.
func (g *Governor) Update(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

func (g *Governor) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	pnl, _ := g.dailyPnL.Float64()
	return Summary{
		Session:      g.session,
		DailyPnL:     pnl,
		ClosedTrades: g.closed,
		Wins:         g.wins,
		Losses:       g.losses,
		MaxDailyLoss: g.cfg.MaxDailyLoss,
		KillSwitch:   g.cfg.KillSwitch,
		Breached:     g.breached,
		BreachedAt:   g.breachedAt,
	}
}
