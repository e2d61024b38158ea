// Package messaging 回测事件的 Kafka 外发桥
package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/tradingbot/internal/backtest/domain"
)

// Producer 外发生产者接口，*mq.KafkaProducer 为生产实现
type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// 外发队列容量，满载时丢弃而非阻塞
const queueSize = 256

// KafkaBridge 把总线上的全部回测事件转发到 Kafka，
// 按运行 ID 作为分区键保证单个运行的事件有序。
// 外发经由带缓冲的内部队列异步进行，Kafka 不可用不会拖慢总线投递，
// 队列满或外发失败只记录日志。
type KafkaBridge struct {
	producer    Producer
	topic       string
	timeout     time.Duration
	events      chan domain.Event
	done        chan struct{}
	unsubscribe domain.Unsubscribe
	logger      *slog.Logger
}

// NewKafkaBridge 创建外发桥并挂到总线上
func NewKafkaBridge(bus *domain.EventBus, producer Producer, topic string, logger *slog.Logger) *KafkaBridge {
	bridge := &KafkaBridge{
		producer: producer,
		topic:    topic,
		timeout:  5 * time.Second,
		events:   make(chan domain.Event, queueSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go bridge.drain()
	bridge.unsubscribe = bus.SubscribeAll(bridge.forward)
	return bridge
}

// forward 只入队，总线回调内不做任何网络 IO
func (b *KafkaBridge) forward(event domain.Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("外发队列已满，丢弃回测事件",
			"run_id", event.RunID,
			"event_type", string(event.Type))
	}
}

func (b *KafkaBridge) drain() {
	for {
		select {
		case <-b.done:
			return
		case event := <-b.events:
			b.publish(event)
		}
	}
}

func (b *KafkaBridge) publish(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.producer.Publish(ctx, b.topic, event.RunID, event); err != nil {
		b.logger.Error("回测事件外发失败",
			"run_id", event.RunID,
			"event_type", string(event.Type),
			"error", err)
	}
}

// Close 摘除总线订阅并停止外发协程，队列中未发出的事件丢弃
func (b *KafkaBridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	close(b.done)
}
