// Package domain 机器人车队服务领域层
// 生成摘要：
// 1) 定义机器人聚合根与持仓实体
// 2) 定义策略条件的带标签变体（区分联合）
// 3) 定义仓储接口与领域错误
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BotStatus 机器人状态
type BotStatus int8

const (
	BotStatusInactive BotStatus = 1
	BotStatusActive   BotStatus = 2
)

// String 返回状态的对外表示
func (s BotStatus) String() string {
	switch s {
	case BotStatusActive:
		return "ACTIVE"
	default:
		return "INACTIVE"
	}
}

// TimeHorizon 交易周期，决定机器人的调度频率
type TimeHorizon string

const (
	HorizonShortTerm TimeHorizon = "SHORT_TERM"
	HorizonSwing     TimeHorizon = "SWING"
	HorizonLongTerm  TimeHorizon = "LONG_TERM"
)

// AllHorizons 返回所有交易周期
func AllHorizons() []TimeHorizon {
	return []TimeHorizon{HorizonShortTerm, HorizonSwing, HorizonLongTerm}
}

// ParseTimeHorizon 解析交易周期标识
func ParseTimeHorizon(s string) (TimeHorizon, error) {
	switch TimeHorizon(s) {
	case HorizonShortTerm, HorizonSwing, HorizonLongTerm:
		return TimeHorizon(s), nil
	default:
		return "", ErrInvalidHorizon
	}
}

// Bot 机器人聚合根
type Bot struct {
	gorm.Model
	BotID string `gorm:"column:bot_id;type:varchar(36);uniqueIndex;not null"`
	Name  string `gorm:"column:name;type:varchar(64);not null"`
	// Symbol 交易标的
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null"`
	// FundAllocation 分配资金，仅通过显式更新变更
	FundAllocation decimal.Decimal `gorm:"column:fund_allocation;type:decimal(32,18);not null"`
	Status         BotStatus       `gorm:"column:status;type:tinyint;not null;default:1"`
	TimeHorizon    TimeHorizon     `gorm:"column:time_horizon;type:varchar(16);index;not null"`
	StrategyID     string          `gorm:"column:strategy_id;type:varchar(36);not null"`
	// StrategyParams 策略条件，JSON 存储，入库前已按 schema 校验
	StrategyParams string `gorm:"column:strategy_params;type:json"`
	// RealizedReturns 已结算的累计收益，平仓时累加
	RealizedReturns decimal.Decimal `gorm:"column:realized_returns;type:decimal(32,18);not null;default:0"`
	LastExecutedAt  *time.Time      `gorm:"column:last_executed_at"`
}

// TableName 表名
func (Bot) TableName() string {
	return "bots"
}

// NewBot 创建机器人，初始为停用状态
func NewBot(botID, name, symbol, strategyID, params string, allocation decimal.Decimal, horizon TimeHorizon) *Bot {
	return &Bot{
		BotID:           botID,
		Name:            name,
		Symbol:          symbol,
		FundAllocation:  allocation,
		Status:          BotStatusInactive,
		TimeHorizon:     horizon,
		StrategyID:      strategyID,
		StrategyParams:  params,
		RealizedReturns: decimal.Zero,
	}
}

// IsActive 是否处于启用状态
func (b *Bot) IsActive() bool {
	return b.Status == BotStatusActive
}

// Activate 启用机器人，重复启用返回 ErrBotAlreadyActive
func (b *Bot) Activate() error {
	if b.Status == BotStatusActive {
		return ErrBotAlreadyActive
	}
	b.Status = BotStatusActive
	return nil
}

// Deactivate 停用机器人
func (b *Bot) Deactivate() error {
	if b.Status != BotStatusActive {
		return ErrBotNotActive
	}
	b.Status = BotStatusInactive
	return nil
}

// MarkExecuted 推进最近执行时间
func (b *Bot) MarkExecuted(t time.Time) {
	b.LastExecutedAt = &t
}

// ApplyRealized 将平仓收益并入累计已实现收益
func (b *Bot) ApplyRealized(pl decimal.Decimal) {
	b.RealizedReturns = b.RealizedReturns.Add(pl)
}
