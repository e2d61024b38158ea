// 生成摘要：实现机器人车队服务的 MySQL 仓储层，基于 GORM。
// 变更说明：成交结算在单事务内完成持仓更新与收益归集，由存储层保证写冲突串行化。

package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// botRepository GORM 机器人仓储实现
type botRepository struct {
	db *gorm.DB
}

// NewBotRepository 创建机器人仓储
func NewBotRepository(db *gorm.DB) domain.BotRepository {
	return &botRepository{db: db}
}

// Create 新建机器人，唯一键冲突映射为领域错误
func (r *botRepository) Create(ctx context.Context, bot *domain.Bot) error {
	if err := r.db.WithContext(ctx).Create(bot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateBot
		}
		return err
	}
	return nil
}

// Save 保存机器人聚合根
func (r *botRepository) Save(ctx context.Context, bot *domain.Bot) error {
	return r.db.WithContext(ctx).Save(bot).Error
}

// FindByBotID 根据业务 ID 获取机器人
func (r *botRepository) FindByBotID(ctx context.Context, botID string) (*domain.Bot, error) {
	var bot domain.Bot
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBotNotFound
		}
		return nil, err
	}
	return &bot, nil
}

// FindAll 获取全部机器人
func (r *botRepository) FindAll(ctx context.Context) ([]*domain.Bot, error) {
	var bots []*domain.Bot
	if err := r.db.WithContext(ctx).Order("id").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

// FindActiveByHorizon 获取指定周期下所有启用的机器人
func (r *botRepository) FindActiveByHorizon(ctx context.Context, horizon domain.TimeHorizon) ([]*domain.Bot, error) {
	var bots []*domain.Bot
	err := r.db.WithContext(ctx).
		Where("status = ? AND time_horizon = ?", domain.BotStatusActive, horizon).
		Order("id").
		Find(&bots).Error
	if err != nil {
		return nil, err
	}
	return bots, nil
}

// Delete 删除机器人
func (r *botRepository) Delete(ctx context.Context, botID string) error {
	res := r.db.WithContext(ctx).Where("bot_id = ?", botID).Delete(&domain.Bot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBotNotFound
	}
	return nil
}

// positionRepository GORM 持仓仓储实现
type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository 创建持仓仓储
func NewPositionRepository(db *gorm.DB) domain.PositionRepository {
	return &positionRepository{db: db}
}

// Save 保存持仓
func (r *positionRepository) Save(ctx context.Context, position *domain.Position) error {
	return r.db.WithContext(ctx).Save(position).Error
}

// FindByBotAndSymbol 按 (bot, symbol) 获取持仓
func (r *positionRepository) FindByBotAndSymbol(ctx context.Context, botID, symbol string) (*domain.Position, error) {
	var position domain.Position
	err := r.db.WithContext(ctx).
		Where("bot_id = ? AND symbol = ?", botID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, err
	}
	return &position, nil
}

// Delete 删除持仓行
func (r *positionRepository) Delete(ctx context.Context, position *domain.Position) error {
	return r.db.WithContext(ctx).Delete(position).Error
}

// tradeRepository GORM 成交仓储实现
type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建成交仓储
func NewTradeRepository(db *gorm.DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// Save 保存成交记录
func (r *tradeRepository) Save(ctx context.Context, trade *domain.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindByBotID 按机器人获取成交记录，按时间倒序
func (r *tradeRepository) FindByBotID(ctx context.Context, botID string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	var trades []*domain.Trade
	err := r.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// settlementRepository 成交结算实现
type settlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository 创建结算仓储
func NewSettlementRepository(db *gorm.DB) domain.SettlementRepository {
	return &settlementRepository{db: db}
}

// ApplyFill 在单事务内将成交并入持仓与机器人累计收益。
// 持仓归零时删除持仓行，平仓盈亏并入 realized_returns。
func (r *settlementRepository) ApplyFill(ctx context.Context, botID string, side domain.TradeSide, qty, price decimal.Decimal, executedAt time.Time) (*domain.Trade, error) {
	var trade *domain.Trade

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bot domain.Bot
		if err := tx.Where("bot_id = ?", botID).First(&bot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBotNotFound
			}
			return err
		}

		position := &domain.Position{}
		err := tx.Where("bot_id = ? AND symbol = ?", botID, bot.Symbol).First(position).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			position = domain.NewPosition(botID, bot.Symbol)
		case err != nil:
			return err
		}

		realized, err := position.ApplyFill(side, qty, price)
		if err != nil {
			return err
		}
		position.Revalue(price)

		if position.Closed() && position.ID != 0 {
			if err := tx.Delete(position).Error; err != nil {
				return err
			}
		} else if !position.Closed() {
			if err := tx.Save(position).Error; err != nil {
				return err
			}
		}

		if !realized.IsZero() {
			bot.ApplyRealized(realized)
			if err := tx.Save(&bot).Error; err != nil {
				return err
			}
		}

		trade = &domain.Trade{
			TradeID:    uuid.New().String(),
			BotID:      botID,
			Symbol:     bot.Symbol,
			Side:       side,
			Quantity:   qty,
			Price:      price,
			RealizedPL: realized,
			ExecutedAt: executedAt,
		}
		return tx.Create(trade).Error
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}
