package config

import (
	"fmt"

	"vwaptrader/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// HotReload 运行期可安全变更的配置子集，其余字段需重启生效。
type HotReload struct {
	LogLevel     string
	KillSwitch   bool
	MaxDailyLoss float64
}

func (c *Config) HotReload() HotReload {
	return HotReload{
		LogLevel:     c.App.LogLevel,
		KillSwitch:   c.Risk.KillSwitch,
		MaxDailyLoss: c.Risk.MaxDailyLoss,
	}
}

// Watch re-reads path on every write and hands the reloadable subset to
// onChange. Files that fail validation are rejected and logged.
func Watch(path string, onChange func(HotReload)) error {
	if onChange == nil {
		return fmt.Errorf("config watch requires a callback")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("Config: reload rejected path=%s err=%v", path, err)
			return
		}
		hr := cfg.HotReload()
		logger.Infof("Config: reloaded path=%s log_level=%s kill_switch=%v max_daily_loss=%.2f",
			path, hr.LogLevel, hr.KillSwitch, hr.MaxDailyLoss)
		onChange(hr)
	})
	v.WatchConfig()
	return nil
}
