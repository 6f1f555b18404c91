package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vwaptrader/internal/broker"
	"vwaptrader/internal/config"
	"vwaptrader/internal/engine"
	"vwaptrader/internal/gateway/noren"
	"vwaptrader/internal/gateway/paper"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/scheduler"
	"vwaptrader/internal/store"
	"vwaptrader/internal/store/gormstore"
	livehttp "vwaptrader/internal/transport/http/live"
	"vwaptrader/internal/universe"
)

type AppBuilder struct {
	cfg *config.Config

	brokerFn   func(config.BrokerConfig, *time.Location) (broker.Broker, error)
	recorderFn func(config.StoreConfig, *time.Location) (store.Recorder, error)
	liveHTTPFn func(config.HTTPConfig, livehttp.EngineView, livehttp.TradeLister) (*livehttp.Server, error)
	watchFn    func(string, func(config.HotReload)) error
}

type AppBuilderOption func(*AppBuilder)

// WithBroker replaces the configured gateway.
func WithBroker(b broker.Broker) AppBuilderOption {
	return func(ab *AppBuilder) {
		ab.brokerFn = func(config.BrokerConfig, *time.Location) (broker.Broker, error) { return b, nil }
	}
}

func WithRecorder(r store.Recorder) AppBuilderOption {
	return func(ab *AppBuilder) {
		ab.recorderFn = func(config.StoreConfig, *time.Location) (store.Recorder, error) { return r, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		brokerFn:   buildBroker,
		recorderFn: buildRecorder,
		liveHTTPFn: buildLiveHTTPServer,
		watchFn:    config.Watch,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)

	window, err := scheduler.NewSessionWindow(cfg.Session.Timezone, cfg.Session.Open, cfg.Session.Close, cfg.Session.ExitCutoff)
	if err != nil {
		return nil, fmt.Errorf("初始化交易时段失败: %w", err)
	}

	gw, err := b.brokerFn(cfg.Broker, window.Location())
	if err != nil {
		return nil, err
	}

	insts, err := universe.NewResolver(gw, gw, cfg, window.Location()).Resolve(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(insts))
	for _, inst := range insts {
		symbols = append(symbols, inst.Symbol)
	}
	logger.Infof("✓ 已解析 %d 个期权合约: %v", len(insts), symbols)

	recorder, err := b.recorderFn(cfg.Store, window.Location())
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.OptionsFromConfig(cfg), gw, recorder, window)
	eng.SetInstruments(insts)

	var trades livehttp.TradeLister
	if recorder != nil {
		trades = recorder
	}
	var server *livehttp.Server
	if cfg.HTTP.Enabled {
		server, err = b.liveHTTPFn(cfg.HTTP, eng, trades)
		if err != nil {
			if recorder != nil {
				_ = recorder.Close()
			}
			return nil, err
		}
	}

	return &App{
		cfg:      cfg,
		engine:   eng,
		liveHTTP: server,
		recorder: recorder,
		Summary:  newStartupSummary(cfg, insts),
		watchFn:  b.watchFn,
	}, nil
}

func buildBroker(cfg config.BrokerConfig, loc *time.Location) (broker.Broker, error) {
	switch strings.ToLower(cfg.Kind) {
	case "paper":
		logger.Infof("✓ 使用模拟网关 seed=%d", cfg.PaperSeed)
		return paper.New(cfg.PaperSeed), nil
	case "noren":
		client, err := noren.NewClient(cfg, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to init noren client: %w", err)
		}
		logger.Infof("✓ Noren 网关 %s user=%s", cfg.BaseURL, cfg.UserID)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
}

func buildRecorder(cfg config.StoreConfig, loc *time.Location) (store.Recorder, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		logger.Warnf("store.path 为空，不持久化样本与成交")
		return nil, nil
	}
	st, err := gormstore.NewGormStore(path, loc)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	logger.Infof("✓ 存储已打开 %s", path)
	return st, nil
}

func buildLiveHTTPServer(cfg config.HTTPConfig, eng livehttp.EngineView, trades livehttp.TradeLister) (*livehttp.Server, error) {
	server, err := livehttp.NewServer(livehttp.ServerConfig{Addr: cfg.Addr, Engine: eng, Trades: trades})
	if err != nil {
		return nil, fmt.Errorf("初始化 live HTTP 失败: %w", err)
	}
	logger.Infof("✓ Live HTTP 接口监听 %s", server.Addr())
	return server, nil
}
