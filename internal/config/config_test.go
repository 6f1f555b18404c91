package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const paperBase = `
[broker]
kind = "paper"

[[universe.underlyings]]
name = "NIFTY"
expiry = "25NOV25"

[[universe.underlyings]]
name = "BANKNIFTY"
expiry = "25NOV25"
strikes_count = 2
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.toml", paperBase)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "paper", cfg.Broker.Kind)
	assert.Equal(t, "NFO", cfg.Broker.Exchange)
	assert.Equal(t, 5, cfg.Strategy.EMASpan)
	assert.InDelta(t, 0.0, cfg.Strategy.SLPct, 1e-12)
	assert.InDelta(t, 0.60, cfg.Strategy.TPPct, 1e-12)
	assert.InDelta(t, 0.30, cfg.Strategy.TrailingPct, 1e-12)
	assert.InDelta(t, 0.0003, cfg.Strategy.CommissionRate, 1e-12)
	assert.Equal(t, 30*time.Second, cfg.Strategy.EntryDelay)
	assert.Equal(t, 20, cfg.Strategy.LedgerSize)
	assert.Equal(t, 3, cfg.Strategy.BackfillDays)
	assert.InDelta(t, 5000.0, cfg.Risk.MaxDailyLoss, 1e-9)
	assert.Equal(t, "09:15", cfg.Session.Open)
	assert.Equal(t, "15:30", cfg.Session.Close)
	assert.Equal(t, 5*time.Second, cfg.Loop.Interval)
	assert.False(t, cfg.Strategy.TrailingEnabled(), "sl_pct=0 keeps trailing off")

	require.Len(t, cfg.Universe.Underlyings, 2)
	nifty := cfg.Universe.Underlyings[0]
	assert.Equal(t, "26000", nifty.IndexToken)
	assert.Equal(t, 50, nifty.StrikeStep)
	assert.Equal(t, 75, nifty.LotSize)
	assert.Equal(t, 1, nifty.StrikesCount)
	bank := cfg.Universe.Underlyings[1]
	assert.Equal(t, "26009", bank.IndexToken)
	assert.Equal(t, 25, bank.LotSize)
	assert.Equal(t, 2, bank.StrikesCount)
}

func TestLoadKeepsExplicitZeroes(t *testing.T) {
	body := paperBase + `
[strategy]
entry_delay = "0s"
commission_rate = 0
backfill_days = 0
sl_pct = 0.2
`
	path := writeConfig(t, t.TempDir(), "config.toml", body)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Strategy.EntryDelay)
	assert.Zero(t, cfg.Strategy.CommissionRate)
	assert.Zero(t, cfg.Strategy.BackfillDays)
	assert.True(t, cfg.Strategy.TrailingEnabled())
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.toml", paperBase)
	path := writeConfig(t, dir, "config.toml", `
include = ["base.toml"]

[risk]
max_daily_loss = 1200
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, cfg.Risk.MaxDailyLoss, 1e-9)
	assert.Equal(t, "paper", cfg.Broker.Kind)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.toml", `include = ["b.toml"]`)
	path := writeConfig(t, dir, "b.toml", `include = ["a.toml"]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("VWAPTRADER_BROKER_BASE_URL", "https://noren.example/NorenWClientTP")
	t.Setenv("VWAPTRADER_BROKER_USER_ID", "FT0001")
	t.Setenv("VWAPTRADER_BROKER_TOKEN", "secret")
	path := writeConfig(t, t.TempDir(), "config.toml", `
[[universe.underlyings]]
name = "NIFTY"
expiry = "25NOV25"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "noren", cfg.Broker.Kind)
	assert.Equal(t, "FT0001", cfg.Broker.UserID)
	assert.Equal(t, "secret", cfg.Broker.Token)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"noren without url", `
[[universe.underlyings]]
name = "NIFTY"
expiry = "25NOV25"
`, "broker.base_url"},
		{"missing expiry", `
[broker]
kind = "paper"
[[universe.underlyings]]
name = "NIFTY"
`, "missing expiry"},
		{"bad session", paperBase + `
[session]
open = "15:30"
close = "09:15"
`, "session.close"},
		{"bad sl", paperBase + `
[strategy]
sl_pct = 1.5
`, "strategy.sl_pct"},
		{"zero loss budget", paperBase + `
[risk]
max_daily_loss = 0
`, "risk.max_daily_loss"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.toml", tc.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
