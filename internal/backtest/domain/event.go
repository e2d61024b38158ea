// Package domain 回测服务领域层
package domain

import "time"

// EventType 回测生命周期事件类型
type EventType string

const (
	EventStarted       EventType = "started"
	EventProgress      EventType = "progress"
	EventTradeExecuted EventType = "trade_executed"
	EventEquityUpdate  EventType = "equity_update"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
	EventStatusChanged EventType = "status_changed"
)

// Event 回测事件。纯内存流转，本子系统不持久化。
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"backtestRunId"`
	Data  any       `json:"data"`
}

// StartedData 回测启动事件负载
type StartedData struct {
	RunID      string `json:"runId"`
	Symbol     string `json:"symbol"`
	StrategyID string `json:"strategyId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// ProgressData 回测进度事件负载
type ProgressData struct {
	RunID            string  `json:"runId"`
	BarsProcessed    int     `json:"barsProcessed"`
	TotalBars        int     `json:"totalBars"`
	ProgressPct      float64 `json:"progressPct"`
	CurrentEquity    float64 `json:"currentEquity"`
	CurrentTimestamp string  `json:"currentTimestamp"`
}

// TradeExecutedData 模拟成交事件负载
type TradeExecutedData struct {
	RunID         string   `json:"runId"`
	TradeID       string   `json:"tradeId"`
	Side          string   `json:"side"`
	Symbol        string   `json:"symbol"`
	Quantity      float64  `json:"quantity"`
	ExecutedPrice float64  `json:"executedPrice"`
	RealizedPL    *float64 `json:"realizedPL,omitempty"`
	RealizedPLPct *float64 `json:"realizedPLPct,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

// EquityUpdateData 权益更新事件负载
type EquityUpdateData struct {
	RunID       string  `json:"runId"`
	Timestamp   string  `json:"timestamp"`
	Cash        float64 `json:"cash"`
	StockValue  float64 `json:"stockValue"`
	TotalEquity float64 `json:"totalEquity"`
	DrawdownPct float64 `json:"drawdownPct"`
}

// CompletedData 回测完成事件负载
type CompletedData struct {
	RunID          string  `json:"runId"`
	FinalEquity    float64 `json:"finalEquity"`
	TotalReturn    float64 `json:"totalReturn"`
	TotalReturnPct float64 `json:"totalReturnPct"`
	TotalTrades    int     `json:"totalTrades"`
	ExecutionTime  string  `json:"executionTime"`
}

// FailedData 回测失败事件负载
type FailedData struct {
	RunID        string `json:"runId"`
	Error        string `json:"error"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

// StatusChangedData 状态流转事件负载
type StatusChangedData struct {
	RunID     string `json:"runId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	Timestamp string `json:"timestamp"`
}

// NewEvent 创建事件
func NewEvent(eventType EventType, runID string, data any) Event {
	return Event{
		Type:  eventType,
		RunID: runID,
		Data:  data,
	}
}

// FormatTimestamp 事件负载里统一的时间格式
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
