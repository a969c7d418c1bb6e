// Package event 定义事件总线接口
//
// 签名服务通过事件总线对外通知签名结果与注册表变化，
// 订阅方（审计、告警等）与签名核心解耦。
package event

// EventType 事件类型，命名规范 domain.category.action
type EventType string

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 订阅事件
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool
}
