package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/tradingbot/internal/bot/domain"
)

type memoryBotRepo struct {
	bots map[string]*domain.Bot
}

func newMemoryBotRepo() *memoryBotRepo {
	return &memoryBotRepo{bots: map[string]*domain.Bot{}}
}

func (m *memoryBotRepo) Create(ctx context.Context, bot *domain.Bot) error {
	for _, existing := range m.bots {
		if existing.Symbol == bot.Symbol && existing.TimeHorizon == bot.TimeHorizon {
			return domain.ErrDuplicateBot
		}
	}
	m.bots[bot.BotID] = bot
	return nil
}

func (m *memoryBotRepo) Save(ctx context.Context, bot *domain.Bot) error {
	m.bots[bot.BotID] = bot
	return nil
}

func (m *memoryBotRepo) FindByBotID(ctx context.Context, botID string) (*domain.Bot, error) {
	bot, ok := m.bots[botID]
	if !ok {
		return nil, domain.ErrBotNotFound
	}
	return bot, nil
}

func (m *memoryBotRepo) FindAll(ctx context.Context) ([]*domain.Bot, error) {
	all := make([]*domain.Bot, 0, len(m.bots))
	for _, bot := range m.bots {
		all = append(all, bot)
	}
	return all, nil
}

func (m *memoryBotRepo) FindActiveByHorizon(ctx context.Context, horizon domain.TimeHorizon) ([]*domain.Bot, error) {
	active := []*domain.Bot{}
	for _, bot := range m.bots {
		if bot.IsActive() && bot.TimeHorizon == horizon {
			active = append(active, bot)
		}
	}
	return active, nil
}

func (m *memoryBotRepo) Delete(ctx context.Context, botID string) error {
	if _, ok := m.bots[botID]; !ok {
		return domain.ErrBotNotFound
	}
	delete(m.bots, botID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validCreateCommand() CreateBotCommand {
	return CreateBotCommand{
		Name:           "苹果波段",
		Symbol:         "AAPL",
		StrategyID:     "sma-basic",
		StrategyParams: `{"schema_version":1,"buy":[{"kind":"price_below","price":"150"}]}`,
		FundAllocation: decimal.NewFromInt(10000),
		TimeHorizon:    domain.HorizonSwing,
	}
}

func TestCreateBotNormalizesParams(t *testing.T) {
	repo := newMemoryBotRepo()
	service := NewCommandService(repo, testLogger())

	bot, err := service.CreateBot(context.Background(), validCreateCommand())
	require.NoError(t, err)
	assert.NotEmpty(t, bot.BotID)
	assert.False(t, bot.IsActive(), "new bots start inactive")

	// 入库的是归一化后的 JSON，能被再次解码
	_, err = domain.DecodeStrategyConfig(bot.StrategyParams)
	assert.NoError(t, err)
}

func TestCreateBotRejectsInvalidParams(t *testing.T) {
	repo := newMemoryBotRepo()
	service := NewCommandService(repo, testLogger())

	cmd := validCreateCommand()
	cmd.StrategyParams = `{"schema_version":1,"buy":[{"kind":"teleport"}]}`

	_, err := service.CreateBot(context.Background(), cmd)
	assert.ErrorContains(t, err, "unknown condition kind")
	assert.Empty(t, repo.bots)
}

func TestCreateBotDuplicate(t *testing.T) {
	repo := newMemoryBotRepo()
	service := NewCommandService(repo, testLogger())

	_, err := service.CreateBot(context.Background(), validCreateCommand())
	require.NoError(t, err)

	_, err = service.CreateBot(context.Background(), validCreateCommand())
	assert.ErrorIs(t, err, domain.ErrDuplicateBot)
}

func TestUpdateAllocation(t *testing.T) {
	repo := newMemoryBotRepo()
	service := NewCommandService(repo, testLogger())

	bot, err := service.CreateBot(context.Background(), validCreateCommand())
	require.NoError(t, err)

	updated, err := service.UpdateAllocation(context.Background(), bot.BotID, decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.True(t, updated.FundAllocation.Equal(decimal.NewFromInt(25000)))

	_, err = service.UpdateAllocation(context.Background(), "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrBotNotFound)
}

func TestDeleteBot(t *testing.T) {
	repo := newMemoryBotRepo()
	service := NewCommandService(repo, testLogger())

	bot, err := service.CreateBot(context.Background(), validCreateCommand())
	require.NoError(t, err)

	require.NoError(t, service.DeleteBot(context.Background(), bot.BotID))
	assert.ErrorIs(t, service.DeleteBot(context.Background(), bot.BotID), domain.ErrBotNotFound)
}
