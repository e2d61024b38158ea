package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExecutionReport 单次流水线执行记录
type ExecutionReport struct {
	gorm.Model
	BotID        string          `gorm:"column:bot_id;type:varchar(36);index;not null" json:"bot_id"`
	Symbol       string          `gorm:"column:symbol;type:varchar(20);not null" json:"symbol"`
	TimeHorizon  string          `gorm:"column:time_horizon;type:varchar(20);index;not null" json:"time_horizon"`
	Action       string          `gorm:"column:action;type:varchar(10);not null" json:"action"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null;default:0" json:"quantity"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(32,18);not null;default:0" json:"price"`
	Success      bool            `gorm:"column:success;not null" json:"success"`
	ErrorMessage string          `gorm:"column:error_message;type:varchar(512)" json:"error_message"`
	DryRun       bool            `gorm:"column:dry_run;not null;default:false" json:"dry_run"`
	DurationMs   int64           `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	ExecutedAt   time.Time       `gorm:"column:executed_at;not null" json:"executed_at"`
}

// TableName 指定表名
func (ExecutionReport) TableName() string {
	return "execution_reports"
}

// NewReport 由流水线结果生成执行记录
func NewReport(result *PipelineResult, horizon string, dryRun bool, executedAt time.Time) *ExecutionReport {
	report := &ExecutionReport{
		BotID:       result.Bot.BotID,
		Symbol:      result.Bot.Symbol,
		TimeHorizon: horizon,
		Action:      string(ActionHold),
		Success:     result.Succeeded(),
		DryRun:      dryRun,
		DurationMs:  result.Duration.Milliseconds(),
		ExecutedAt:  executedAt,
	}
	if result.Decision != nil {
		report.Action = string(result.Decision.Action)
	}
	if result.Fill != nil {
		report.Quantity = result.Fill.Quantity
		report.Price = result.Fill.Price
	}
	if result.Err != nil {
		report.ErrorMessage = result.Err.Error()
	}
	return report
}

// ReportRepository 执行记录仓储接口
type ReportRepository interface {
	Save(ctx context.Context, report *ExecutionReport) error
	FindByBotID(ctx context.Context, botID string, limit int) ([]*ExecutionReport, error)
}
