// Package application 机器人车队应用层
package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// CommandService 机器人命令服务
type CommandService struct {
	botRepo domain.BotRepository
	logger  *slog.Logger
}

// NewCommandService 创建命令服务
func NewCommandService(botRepo domain.BotRepository, logger *slog.Logger) *CommandService {
	return &CommandService{
		botRepo: botRepo,
		logger:  logger,
	}
}

// CreateBotCommand 创建机器人命令
type CreateBotCommand struct {
	Name           string
	Symbol         string
	StrategyID     string
	StrategyParams string
	FundAllocation decimal.Decimal
	TimeHorizon    domain.TimeHorizon
}

// CreateBot 创建机器人。策略条件在此处解码并校验一次，核心层之后只接触结构化条件。
func (s *CommandService) CreateBot(ctx context.Context, cmd CreateBotCommand) (*domain.Bot, error) {
	cfg, err := domain.DecodeStrategyConfig(cmd.StrategyParams)
	if err != nil {
		return nil, err
	}
	// 归一化存储，保证读回的 JSON 与 schema 一致
	params, err := cfg.Encode()
	if err != nil {
		return nil, err
	}

	bot := domain.NewBot(
		uuid.New().String(),
		cmd.Name,
		cmd.Symbol,
		cmd.StrategyID,
		params,
		cmd.FundAllocation,
		cmd.TimeHorizon,
	)

	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bot created",
		"bot_id", bot.BotID, "symbol", bot.Symbol, "horizon", bot.TimeHorizon)
	return bot, nil
}

// UpdateAllocation 显式更新分配资金
func (s *CommandService) UpdateAllocation(ctx context.Context, botID string, allocation decimal.Decimal) (*domain.Bot, error) {
	bot, err := s.botRepo.FindByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}

	bot.FundAllocation = allocation
	if err := s.botRepo.Save(ctx, bot); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bot allocation updated",
		"bot_id", botID, "allocation", allocation.String())
	return bot, nil
}

// DeleteBot 删除机器人
func (s *CommandService) DeleteBot(ctx context.Context, botID string) error {
	if err := s.botRepo.Delete(ctx, botID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bot deleted", "bot_id", botID)
	return nil
}
