package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vwaptrader/internal/market"
	"vwaptrader/internal/position"
	"vwaptrader/internal/risk"
	"vwaptrader/internal/signal"
	"vwaptrader/internal/store"
	storemodel "vwaptrader/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sampleBatchSize = 200

// GormStore implements store.Recorder using Gorm + SQLite.
type GormStore struct {
	db    *gorm.DB
	loc   *time.Location
	nowFn func() time.Time
}

var _ store.Recorder = (*GormStore)(nil)

// NewGormStore opens (and migrates) the database at path. Trade dates are
// derived in loc.
func NewGormStore(path string, loc *time.Location) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storemodel.SampleModel{}, &storemodel.TradeModel{}, &storemodel.SessionModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a second connection lets dashboard reads overlap the
	// loop's writes.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db, loc: loc, nowFn: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) tradeDate(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

// SaveSamples upserts by (symbol, ts); re-saving a timestamp overwrites it.
func (s *GormStore) SaveSamples(ctx context.Context, symbol string, samples []market.Sample) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if len(samples) == 0 {
		return nil
	}
	now := s.nowFn().UnixMilli()
	models := make([]storemodel.SampleModel, 0, len(samples))
	for _, smp := range samples {
		models = append(models, storemodel.SampleModel{
			Symbol:    symbol,
			TS:        smp.Time.UnixMilli(),
			TradeDate: s.tradeDate(smp.Time),
			Open:      smp.Open,
			High:      smp.High,
			Low:       smp.Low,
			Close:     smp.Close,
			Volume:    smp.Volume,
			UpdatedAt: now,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "ts"}},
			DoUpdates: clause.AssignmentColumns([]string{"trade_date", "open", "high", "low", "close", "volume", "updated_at"}),
		}).
		CreateInBatches(&models, sampleBatchSize).Error
}

func (s *GormStore) LoadSamples(ctx context.Context, symbol, date string) ([]market.Sample, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	var models []storemodel.SampleModel
	if err := s.db.WithContext(ctx).
		Where("symbol = ? AND trade_date = ?", symbol, date).
		Order("ts ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]market.Sample, 0, len(models))
	for _, m := range models {
		out = append(out, market.Sample{
			Time:   time.UnixMilli(m.TS).In(s.loc),
			Open:   m.Open,
			High:   m.High,
			Low:    m.Low,
			Close:  m.Close,
			Volume: m.Volume,
		})
	}
	return out, nil
}

// SaveTrade appends a closed trade. Saving the same position twice is a
// no-op.
func (s *GormStore) SaveTrade(ctx context.Context, trade position.ClosedTrade) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if trade.PositionID == "" {
		return fmt.Errorf("position_id 必填")
	}
	inst := trade.Instrument
	m := storemodel.TradeModel{
		PositionID:   trade.PositionID,
		TradeNo:      trade.TradeNo,
		TradeDate:    s.tradeDate(trade.ExitTime),
		Symbol:       inst.Symbol,
		Underlying:   inst.Underlying,
		Strike:       inst.Strike,
		OptionType:   string(inst.OptionType),
		LotSize:      inst.LotSize,
		Token:        inst.Token,
		Exchange:     inst.Exchange,
		Direction:    string(trade.Direction),
		Qty:          trade.Qty,
		EntryPrice:   trade.EntryPrice,
		EntryTime:    trade.EntryTime.UnixMilli(),
		ExitPrice:    trade.ExitPrice,
		ExitTime:     trade.ExitTime.UnixMilli(),
		Reason:       string(trade.Reason),
		Status:       trade.Status,
		PnL:          trade.PnL,
		GrossMTM:     trade.GrossMTM,
		MaxMTM:       trade.MaxMTM,
		MinMTM:       trade.MinMTM,
		EntryOrderID: trade.EntryOrderID,
		ExitOrderID:  trade.ExitOrderID,
		CreatedAt:    s.nowFn().UnixMilli(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "position_id"}}, DoNothing: true}).
		Create(&m).Error
}

// ListTrades returns the trades closed on date, in trade order.
func (s *GormStore) ListTrades(ctx context.Context, date string) ([]position.ClosedTrade, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	var models []storemodel.TradeModel
	if err := s.db.WithContext(ctx).
		Where("trade_date = ?", date).
		Order("exit_time ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]position.ClosedTrade, 0, len(models))
	for _, m := range models {
		out = append(out, position.ClosedTrade{
			TradeNo:    m.TradeNo,
			PositionID: m.PositionID,
			Instrument: market.Instrument{
				Symbol:     m.Symbol,
				Underlying: m.Underlying,
				Strike:     m.Strike,
				OptionType: market.OptionType(m.OptionType),
				LotSize:    m.LotSize,
				Token:      m.Token,
				Exchange:   m.Exchange,
			},
			Direction:    signal.Direction(m.Direction),
			Qty:          m.Qty,
			EntryPrice:   m.EntryPrice,
			EntryTime:    time.UnixMilli(m.EntryTime).In(s.loc),
			ExitPrice:    m.ExitPrice,
			ExitTime:     time.UnixMilli(m.ExitTime).In(s.loc),
			Reason:       position.ExitReason(m.Reason),
			Status:       m.Status,
			PnL:          m.PnL,
			GrossMTM:     m.GrossMTM,
			MaxMTM:       m.MaxMTM,
			MinMTM:       m.MinMTM,
			EntryOrderID: m.EntryOrderID,
			ExitOrderID:  m.ExitOrderID,
		})
	}
	return out, nil
}

// SaveSession upserts the summary row for date.
func (s *GormStore) SaveSession(ctx context.Context, date string, summary risk.Summary, extras map[string]any) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if date == "" {
		return fmt.Errorf("trade_date 必填")
	}
	raw, err := json.Marshal(extras)
	if err != nil {
		return fmt.Errorf("序列化 extras 失败: %w", err)
	}
	var breachedAt int64
	if !summary.BreachedAt.IsZero() {
		breachedAt = summary.BreachedAt.UnixMilli()
	}
	m := storemodel.SessionModel{
		TradeDate:    date,
		DailyPnL:     summary.DailyPnL,
		ClosedTrades: summary.ClosedTrades,
		Wins:         summary.Wins,
		Losses:       summary.Losses,
		MaxDailyLoss: summary.MaxDailyLoss,
		KillSwitch:   summary.KillSwitch,
		Breached:     summary.Breached,
		BreachedAt:   breachedAt,
		Extras:       datatypes.JSON(raw),
		UpdatedAt:    s.nowFn().UnixMilli(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "trade_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"daily_pnl", "closed_trades", "wins", "losses", "max_daily_loss",
				"kill_switch", "breached", "breached_at", "extras", "updated_at",
			}),
		}).
		Create(&m).Error
}

// LoadSession returns the stored summary row for date.
func (s *GormStore) LoadSession(ctx context.Context, date string) (storemodel.SessionModel, error) {
	var m storemodel.SessionModel
	if s == nil || s.db == nil {
		return m, fmt.Errorf("gorm store 未初始化")
	}
	err := s.db.WithContext(ctx).Where("trade_date = ?", date).Take(&m).Error
	return m, err
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
