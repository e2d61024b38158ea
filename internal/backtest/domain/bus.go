package domain

import "sync"

// Callback 事件回调，发布时同步调用
type Callback func(event Event)

// Unsubscribe 取消订阅，只作用于对应的那一次订阅
type Unsubscribe func()

// gaugeSetter 订阅计数上报接口，避免领域层依赖具体指标实现
type gaugeSetter interface {
	Set(float64)
}

type subscription struct {
	id       uint64
	callback Callback
}

// EventBus 进程级回测事件总线。
// 支持全局、按运行、按类型三种订阅粒度，发布对三个匹配集合
// 同步投递，各集合内部维持注册顺序，集合之间不保证先后。
// 无持久化也无回放，晚于事件注册的订阅者收不到该事件。
type EventBus struct {
	mu     sync.RWMutex
	nextID uint64

	all    []subscription
	byRun  map[string][]subscription
	byType map[EventType][]subscription

	gauge gaugeSetter
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		byRun:  make(map[string][]subscription),
		byType: make(map[EventType][]subscription),
	}
}

// SetSubscriptionGauge 设置活跃订阅数的上报器
func (b *EventBus) SetSubscriptionGauge(gauge gaugeSetter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gauge = gauge
	b.updateGaugeLocked()
}

// Publish 发布事件。投递顺序：全局订阅者，运行订阅者，类型订阅者。
// 在回调快照上投递，发布进行中也可以安全地订阅或取消订阅。
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.all))
	targets = append(targets, b.all...)
	targets = append(targets, b.byRun[event.RunID]...)
	targets = append(targets, b.byType[event.Type]...)
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.callback(event)
	}
}

// SubscribeAll 订阅全部事件
func (b *EventBus) SubscribeAll(callback Callback) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.allocateID()
	b.all = append(b.all, subscription{id: id, callback: callback})
	b.updateGaugeLocked()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = removeByID(b.all, id)
		b.updateGaugeLocked()
	}
}

// SubscribeRun 订阅指定运行的事件
func (b *EventBus) SubscribeRun(runID string, callback Callback) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.allocateID()
	b.byRun[runID] = append(b.byRun[runID], subscription{id: id, callback: callback})
	b.updateGaugeLocked()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		remaining := removeByID(b.byRun[runID], id)
		if len(remaining) == 0 {
			delete(b.byRun, runID)
		} else {
			b.byRun[runID] = remaining
		}
		b.updateGaugeLocked()
	}
}

// SubscribeType 订阅指定类型的事件
func (b *EventBus) SubscribeType(eventType EventType, callback Callback) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.allocateID()
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, callback: callback})
	b.updateGaugeLocked()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		remaining := removeByID(b.byType[eventType], id)
		if len(remaining) == 0 {
			delete(b.byType, eventType)
		} else {
			b.byType[eventType] = remaining
		}
		b.updateGaugeLocked()
	}
}

// SubscriptionCount 当前活跃订阅总数
func (b *EventBus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.countLocked()
}

func (b *EventBus) allocateID() uint64 {
	b.nextID++
	return b.nextID
}

func (b *EventBus) countLocked() int {
	count := len(b.all)
	for _, subs := range b.byRun {
		count += len(subs)
	}
	for _, subs := range b.byType {
		count += len(subs)
	}
	return count
}

func (b *EventBus) updateGaugeLocked() {
	if b.gauge != nil {
		b.gauge.Set(float64(b.countLocked()))
	}
}

func removeByID(subs []subscription, id uint64) []subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}
