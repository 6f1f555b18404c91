package model

import (
	"gorm.io/datatypes"
)

// SampleModel 每个合约的逐笔采样，(symbol, ts) 唯一，trade_date 按交易时区划分。
type SampleModel struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol    string  `gorm:"column:symbol;uniqueIndex:idx_sample_symbol_ts,priority:1;index:idx_sample_symbol_date,priority:1"`
	TS        int64   `gorm:"column:ts;uniqueIndex:idx_sample_symbol_ts,priority:2"`
	TradeDate string  `gorm:"column:trade_date;index:idx_sample_symbol_date,priority:2"`
	Open      float64 `gorm:"column:open"`
	High      float64 `gorm:"column:high"`
	Low       float64 `gorm:"column:low"`
	Close     float64 `gorm:"column:close"`
	Volume    float64 `gorm:"column:volume"`
	UpdatedAt int64   `gorm:"column:updated_at"`
}

func (SampleModel) TableName() string { return "samples" }

type TradeModel struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	PositionID   string  `gorm:"column:position_id;uniqueIndex"`
	TradeNo      int     `gorm:"column:trade_no"`
	TradeDate    string  `gorm:"column:trade_date;index"`
	Symbol       string  `gorm:"column:symbol;index"`
	Underlying   string  `gorm:"column:underlying"`
	Strike       int     `gorm:"column:strike"`
	OptionType   string  `gorm:"column:option_type"`
	LotSize      int     `gorm:"column:lot_size"`
	Token        string  `gorm:"column:token"`
	Exchange     string  `gorm:"column:exchange"`
	Direction    string  `gorm:"column:direction"`
	Qty          int     `gorm:"column:qty"`
	EntryPrice   float64 `gorm:"column:entry_price"`
	EntryTime    int64   `gorm:"column:entry_time"`
	ExitPrice    float64 `gorm:"column:exit_price"`
	ExitTime     int64   `gorm:"column:exit_time"`
	Reason       string  `gorm:"column:reason"`
	Status       string  `gorm:"column:status"`
	PnL          float64 `gorm:"column:pnl"`
	GrossMTM     float64 `gorm:"column:gross_mtm"`
	MaxMTM       float64 `gorm:"column:max_mtm"`
	MinMTM       float64 `gorm:"column:min_mtm"`
	EntryOrderID string  `gorm:"column:entry_order_id"`
	ExitOrderID  string  `gorm:"column:exit_order_id"`
	CreatedAt    int64   `gorm:"column:created_at"`
}

func (TradeModel) TableName() string { return "trades" }

// SessionModel 每个交易日一行的风控汇总，extras 存放附加指标。
type SessionModel struct {
	TradeDate    string         `gorm:"column:trade_date;primaryKey"`
	DailyPnL     float64        `gorm:"column:daily_pnl"`
	ClosedTrades int            `gorm:"column:closed_trades"`
	Wins         int            `gorm:"column:wins"`
	Losses       int            `gorm:"column:losses"`
	MaxDailyLoss float64        `gorm:"column:max_daily_loss"`
	KillSwitch   bool           `gorm:"column:kill_switch"`
	Breached     bool           `gorm:"column:breached"`
	BreachedAt   int64          `gorm:"column:breached_at"`
	Extras       datatypes.JSON `gorm:"column:extras"`
	UpdatedAt    int64          `gorm:"column:updated_at"`
}

func (SessionModel) TableName() string { return "sessions" }
