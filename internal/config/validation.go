package config

import (
	"fmt"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Universe.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Session.validate(); err != nil {
		return err
	}
	if err := c.Loop.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	switch b.Kind {
	case "paper":
		return nil
	case "noren":
		if strings.TrimSpace(b.BaseURL) == "" {
			return fmt.Errorf("broker.base_url is required for noren")
		}
		if strings.TrimSpace(b.UserID) == "" {
			return fmt.Errorf("broker.user_id is required for noren")
		}
	default:
		return fmt.Errorf("broker.kind must be noren or paper, got %q", b.Kind)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("broker.timeout must be > 0")
	}
	return nil
}

func (u *UniverseConfig) validate() error {
	if len(u.Underlyings) == 0 {
		return fmt.Errorf("universe.underlyings requires at least one underlying")
	}
	seen := make(map[string]bool, len(u.Underlyings))
	for _, item := range u.Underlyings {
		if item.Name == "" {
			return fmt.Errorf("universe.underlyings contains entry without name")
		}
		if seen[item.Name] {
			return fmt.Errorf("universe.underlyings.%s is duplicated", item.Name)
		}
		seen[item.Name] = true
		if strings.TrimSpace(item.IndexToken) == "" {
			return fmt.Errorf("universe.underlyings.%s missing index_token", item.Name)
		}
		if item.StrikeStep <= 0 {
			return fmt.Errorf("universe.underlyings.%s strike_step must be > 0", item.Name)
		}
		if item.LotSize <= 0 {
			return fmt.Errorf("universe.underlyings.%s lot_size must be > 0", item.Name)
		}
		if strings.TrimSpace(item.Expiry) == "" {
			return fmt.Errorf("universe.underlyings.%s missing expiry", item.Name)
		}
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.EMASpan < 1 {
		return fmt.Errorf("strategy.ema_span must be >= 1")
	}
	if s.SLPct < 0 || s.SLPct >= 1 {
		return fmt.Errorf("strategy.sl_pct must be in [0,1)")
	}
	if s.TPPct <= 0 {
		return fmt.Errorf("strategy.tp_pct must be > 0")
	}
	if s.TrailingPct < 0 || s.TrailingPct >= 1 {
		return fmt.Errorf("strategy.trailing_pct must be in [0,1)")
	}
	if s.CommissionRate < 0 {
		return fmt.Errorf("strategy.commission_rate must be >= 0")
	}
	if s.EntryDelay < 0 {
		return fmt.Errorf("strategy.entry_delay must be >= 0")
	}
	if s.EntryDelay > 0 && s.EntryPoll <= 0 {
		return fmt.Errorf("strategy.entry_poll must be > 0 when entry_delay is set")
	}
	if s.BackfillDays < 0 {
		return fmt.Errorf("strategy.backfill_days must be >= 0")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be > 0")
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("session.timezone invalid: %w", err)
	}
	open, err := time.Parse("15:04", s.Open)
	if err != nil {
		return fmt.Errorf("session.open must be HH:MM: %w", err)
	}
	closeAt, err := time.Parse("15:04", s.Close)
	if err != nil {
		return fmt.Errorf("session.close must be HH:MM: %w", err)
	}
	cutoff, err := time.Parse("15:04", s.ExitCutoff)
	if err != nil {
		return fmt.Errorf("session.exit_cutoff must be HH:MM: %w", err)
	}
	if !closeAt.After(open) {
		return fmt.Errorf("session.close must be after session.open")
	}
	if cutoff.Before(closeAt) {
		return fmt.Errorf("session.exit_cutoff must not be before session.close")
	}
	return nil
}

func (l *LoopConfig) validate() error {
	if l.Interval <= 0 {
		return fmt.Errorf("loop.interval must be > 0")
	}
	if l.BackoffMax < l.BackoffBase {
		return fmt.Errorf("loop.backoff_max must be >= loop.backoff_base")
	}
	return nil
}
