package domain

import "errors"

var (
	// ErrBotNotFound 机器人不存在
	ErrBotNotFound = errors.New("bot not found")
	// ErrBotAlreadyActive 机器人已处于启用状态
	ErrBotAlreadyActive = errors.New("bot already active")
	// ErrBotNotActive 机器人未启用
	ErrBotNotActive = errors.New("bot not active")
	// ErrDuplicateBot 机器人唯一键冲突
	ErrDuplicateBot = errors.New("bot already exists")
	// ErrInvalidHorizon 非法的交易周期标识
	ErrInvalidHorizon = errors.New("invalid time horizon")
	// ErrPositionNotFound 持仓不存在
	ErrPositionNotFound = errors.New("position not found")
	// ErrInsufficientQuantity 卖出数量超过当前持仓
	ErrInsufficientQuantity = errors.New("insufficient position quantity")
	// ErrInvalidFill 成交数量或价格非正
	ErrInvalidFill = errors.New("invalid fill quantity or price")
)
