// 基于asaskevich/EventBus的事件总线实现

package event

import (
	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/weisyn/txsigner/internal/config/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
)

// EventBus 是基于asaskevich/EventBus的实现
//
// 事件系统未启用时，订阅静默成功、发布直接丢弃。
type EventBus struct {
	bus    evbus.Bus           // 底层事件总线
	config *eventconfig.Config // 配置
}

// New 创建事件总线实例
func New(config *eventconfig.Config) event.EventBus {
	if config == nil {
		config = eventconfig.New(nil)
	}
	return &EventBus{
		bus:    evbus.New(),
		config: config,
	}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调函数
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}
