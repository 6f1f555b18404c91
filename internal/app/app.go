package app

import (
	"context"
	"fmt"

	"vwaptrader/internal/config"
	"vwaptrader/internal/engine"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/store"
	livehttp "vwaptrader/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引擎与看板。
type App struct {
	cfg      *config.Config
	cfgPath  string
	engine   *engine.Engine
	liveHTTP *livehttp.Server
	recorder store.Recorder
	Summary  *StartupSummary

	watchFn func(path string, onChange func(config.HotReload)) error
}

// NewApp 根据配置构建应用对象（不启动）。cfgPath 非空时启用热加载。
func NewApp(ctx context.Context, cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	a, err := buildAppWithWire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cfgPath = cfgPath
	return a, nil
}

// Run 预热指标后启动决策循环与 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.recorder != nil {
		defer func() {
			if err := a.recorder.Close(); err != nil {
				logger.Warnf("关闭存储失败: %v", err)
			}
		}()
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.cfgPath != "" && a.watchFn != nil {
		if err := a.watchFn(a.cfgPath, a.applyHotReload); err != nil {
			logger.Warnf("配置热加载未启用: %v", err)
		}
	}

	a.engine.Backfill(ctx)

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.engine.Run(ctx)
	})
	return group.Wait()
}

func (a *App) applyHotReload(hr config.HotReload) {
	logger.SetLevel(hr.LogLevel)
	a.engine.UpdateRisk(risk.Config{MaxDailyLoss: hr.MaxDailyLoss, KillSwitch: hr.KillSwitch})
}

// Engine exposes the decision loop (for tests and replay harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}
