package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// QueryService 机器人查询服务
type QueryService struct {
	botRepo      domain.BotRepository
	positionRepo domain.PositionRepository
	tradeRepo    domain.TradeRepository
	logger       *slog.Logger
}

// NewQueryService 创建查询服务
func NewQueryService(
	botRepo domain.BotRepository,
	positionRepo domain.PositionRepository,
	tradeRepo domain.TradeRepository,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		botRepo:      botRepo,
		positionRepo: positionRepo,
		tradeRepo:    tradeRepo,
		logger:       logger,
	}
}

// GetBot 获取机器人
func (s *QueryService) GetBot(ctx context.Context, botID string) (*domain.Bot, error) {
	return s.botRepo.FindByBotID(ctx, botID)
}

// ListBots 列出全部机器人
func (s *QueryService) ListBots(ctx context.Context) ([]*domain.Bot, error) {
	return s.botRepo.FindAll(ctx)
}

// GetPosition 获取机器人当前持仓，无持仓返回空持仓
func (s *QueryService) GetPosition(ctx context.Context, botID string) (*domain.Position, error) {
	bot, err := s.botRepo.FindByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}

	position, err := s.positionRepo.FindByBotAndSymbol(ctx, botID, bot.Symbol)
	if errors.Is(err, domain.ErrPositionNotFound) {
		return domain.NewPosition(botID, bot.Symbol), nil
	}
	if err != nil {
		return nil, err
	}
	return position, nil
}

// ListTrades 列出机器人成交记录
func (s *QueryService) ListTrades(ctx context.Context, botID string, limit int) ([]*domain.Trade, error) {
	if _, err := s.botRepo.FindByBotID(ctx, botID); err != nil {
		return nil, err
	}
	return s.tradeRepo.FindByBotID(ctx, botID, limit)
}
