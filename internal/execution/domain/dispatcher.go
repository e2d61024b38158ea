package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// ErrDryRunFailed 试运行失败，激活中止
var ErrDryRunFailed = errors.New("dry run failed")

// Dispatcher 按时间周期并发调度机器人流水线。
// 自身不持有锁，也不回写存储，结果交由应用层落库。
type Dispatcher struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewDispatcher 创建调度器
func NewDispatcher(pipeline *Pipeline, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Dispatch 并发执行全部机器人的流水线，等待全部结束后返回。
// 单个机器人的失败只记录在它自己的结果里，不影响其他机器人。
// 空列表立即返回空结果。
func (d *Dispatcher) Dispatch(ctx context.Context, bots []*botdomain.Bot) []*PipelineResult {
	if len(bots) == 0 {
		return []*PipelineResult{}
	}

	return settleAll(bots, func(bot *botdomain.Bot) *PipelineResult {
		return d.runSafely(ctx, bot, false)
	})
}

// DryRun 同步执行单个机器人的试运行流水线
func (d *Dispatcher) DryRun(ctx context.Context, bot *botdomain.Bot) *PipelineResult {
	return d.runSafely(ctx, bot, true)
}

// runSafely 捕获流水线内的 panic，折算为该机器人的失败结果
func (d *Dispatcher) runSafely(ctx context.Context, bot *botdomain.Bot, dryRun bool) (result *PipelineResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("流水线发生 panic",
				"bot_id", bot.BotID,
				"symbol", bot.Symbol,
				"panic", r)
			result = &PipelineResult{
				Bot: bot,
				Err: fmt.Errorf("pipeline panic: %v", r),
			}
		}
	}()

	result = d.pipeline.Run(ctx, bot, dryRun)
	if result.Err != nil {
		d.logger.Error("流水线执行失败",
			"bot_id", bot.BotID,
			"symbol", bot.Symbol,
			"error", result.Err)
	}
	return result
}
