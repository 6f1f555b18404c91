package app

import (
	"fmt"
	"sort"
	"strings"

	"vwaptrader/internal/config"
	"vwaptrader/internal/market"
)

type StartupSummary struct {
	Broker      string
	DryRun      bool
	Session     string
	Strategy    string
	Risk        string
	Underlyings map[string][]string
}

func newStartupSummary(cfg *config.Config, insts []market.Instrument) *StartupSummary {
	s := cfg.Strategy
	sum := &StartupSummary{
		Broker: cfg.Broker.Kind,
		DryRun: cfg.App.DryRun,
		Session: fmt.Sprintf("%s %s-%s (exit cutoff %s)",
			cfg.Session.Timezone, cfg.Session.Open, cfg.Session.Close, cfg.Session.ExitCutoff),
		Strategy: fmt.Sprintf("ema=%d sl=%.2f tp=%.2f trail=%.2f fee=%.4f entry_delay=%s",
			s.EMASpan, s.SLPct, s.TPPct, s.TrailingPct, s.CommissionRate, s.EntryDelay),
		Risk:        fmt.Sprintf("max_daily_loss=%.2f kill_switch=%v", cfg.Risk.MaxDailyLoss, cfg.Risk.KillSwitch),
		Underlyings: make(map[string][]string),
	}
	for _, inst := range insts {
		sum.Underlyings[inst.Underlying] = append(sum.Underlyings[inst.Underlying],
			fmt.Sprintf("%s (lot %d)", inst.Symbol, inst.LotSize))
	}
	return sum
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[网关 (BROKER)]")
	fmt.Printf("  类型: %s\n", s.Broker)
	fmt.Printf("  Dry run: %v\n", s.DryRun)
	fmt.Println()

	fmt.Println("[交易时段 (SESSION)]")
	fmt.Printf("  %s\n", s.Session)
	fmt.Println()

	fmt.Println("[策略与风控 (STRATEGY / RISK)]")
	fmt.Printf("  %s\n", s.Strategy)
	fmt.Printf("  %s\n", s.Risk)
	fmt.Println()

	fmt.Println("[合约 (INSTRUMENTS)]")
	if len(s.Underlyings) == 0 {
		fmt.Println("  (无)")
	} else {
		names := make([]string, 0, len(s.Underlyings))
		for name := range s.Underlyings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  > %s: %s\n", name, formatList(s.Underlyings[name]))
		}
	}
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
