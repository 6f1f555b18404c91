package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vwaptrader/internal/config"
	"vwaptrader/internal/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPaperConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	body := `
[app]
log_level = "warn"

[broker]
kind = "paper"
paper_seed = 7

[[universe.underlyings]]
name = "NIFTY"
expiry = "06NOV25"

[store]
path = "` + filepath.ToSlash(filepath.Join(dir, "data", "test.db")) + `"

[http]
enabled = false
` + extra
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildWiresPaperStack(t *testing.T) {
	cfg := loadPaperConfig(t, "")
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.recorder.Close() })

	require.NotNil(t, a.Engine())
	assert.Nil(t, a.liveHTTP)
	require.NotNil(t, a.recorder)

	require.Contains(t, a.Summary.Underlyings, "NIFTY")
	assert.Len(t, a.Summary.Underlyings["NIFTY"], 6, "call and put for three strikes around the money")
	for _, item := range a.Summary.Underlyings["NIFTY"] {
		assert.Contains(t, item, "(lot 75)")
	}
}

func TestBuildWithHTTPEnabled(t *testing.T) {
	cfg := loadPaperConfig(t, "")
	cfg.HTTP.Enabled = true
	cfg.HTTP.Addr = "127.0.0.1:0"
	a, err := NewAppBuilder(cfg, WithRecorder(nil)).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.liveHTTP)
	assert.Equal(t, "127.0.0.1:0", a.liveHTTP.Addr())
	assert.Nil(t, a.recorder)
}

func TestBuildRejectsUnknownBroker(t *testing.T) {
	cfg := loadPaperConfig(t, "")
	cfg.Broker.Kind = "carrier-pigeon"
	_, err := NewAppBuilder(cfg, WithRecorder(nil)).Build(context.Background())
	assert.Error(t, err)
}

func TestHotReloadUpdatesRisk(t *testing.T) {
	cfg := loadPaperConfig(t, "")
	a, err := NewAppBuilder(cfg, WithRecorder(nil)).Build(context.Background())
	require.NoError(t, err)

	a.applyHotReload(config.HotReload{LogLevel: "warn", KillSwitch: true, MaxDailyLoss: 1000})
	a.Engine().RunCycle(context.Background())

	snap := a.Engine().Snapshot()
	assert.False(t, snap.Entries.Allowed)
	assert.Equal(t, risk.ReasonKillSwitch, snap.Entries.Reason)
	assert.InDelta(t, 1000, snap.Risk.MaxDailyLoss, 1e-9)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := loadPaperConfig(t, "")
	cfg.Strategy.BackfillDays = 0
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	var watched string
	a.cfgPath = "config.toml"
	a.watchFn = func(path string, _ func(config.HotReload)) error {
		watched = path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
	assert.Equal(t, "config.toml", watched)
}
