package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wyfcoding/tradingbot/pkg/config"
)

func TestGormConfigTranslatesDriverErrors(t *testing.T) {
	cfg := gormConfig(config.DatabaseConfig{})

	// 唯一键冲突必须被翻译为 gorm.ErrDuplicatedKey，否则 409 映射失效
	assert.True(t, cfg.TranslateError)
	assert.NotNil(t, cfg.Logger)
}

func TestGormConfigLogLevel(t *testing.T) {
	silent := gormConfig(config.DatabaseConfig{LogEnabled: false})
	verbose := gormConfig(config.DatabaseConfig{LogEnabled: true})

	assert.NotNil(t, silent.Logger)
	assert.NotNil(t, verbose.Logger)
	assert.Equal(t, gormlogger.Default.LogMode(gormlogger.Silent), silent.Logger)
	assert.Equal(t, gormlogger.Default.LogMode(gormlogger.Warn), verbose.Logger)
}
