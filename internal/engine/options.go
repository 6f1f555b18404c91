package engine

import (
	"time"

	"vwaptrader/internal/config"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
)

// Options are the engine's tunables, resolved from configuration once.
type Options struct {
	EMASpan                int
	Params                 position.Params
	LedgerSize             int
	AllowSameSignalReentry bool
	SignalChangeExit       bool
	EntryDelay             time.Duration
	EntryPoll              time.Duration
	Interval               time.Duration
	IdleInterval           time.Duration
	BackoffBase            time.Duration
	BackoffMax             time.Duration
	BreakerThreshold       int
	BreakerTimeout         time.Duration
	CandleInterval         string
	BackfillDays           int
	Risk                   risk.Config
	DryRun                 bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	s := cfg.Strategy
	return Options{
		EMASpan: s.EMASpan,
		Params: position.Params{
			SLPct:          s.SLPct,
			TPPct:          s.TPPct,
			TrailingPct:    s.TrailingPct,
			CommissionRate: s.CommissionRate,
		},
		LedgerSize:             s.LedgerSize,
		AllowSameSignalReentry: s.AllowSameSignalReentry,
		SignalChangeExit:       s.SignalChangeExit,
		EntryDelay:             s.EntryDelay,
		EntryPoll:              s.EntryPoll,
		Interval:               cfg.Loop.Interval,
		IdleInterval:           cfg.Loop.IdleInterval,
		BackoffBase:            cfg.Loop.BackoffBase,
		BackoffMax:             cfg.Loop.BackoffMax,
		BreakerThreshold:       cfg.Loop.BreakerThreshold,
		BreakerTimeout:         cfg.Loop.BreakerTimeout,
		CandleInterval:         s.CandleInterval,
		BackfillDays:           s.BackfillDays,
		Risk:                   risk.Config{MaxDailyLoss: cfg.Risk.MaxDailyLoss, KillSwitch: cfg.Risk.KillSwitch},
		DryRun:                 cfg.App.DryRun,
	}
}
