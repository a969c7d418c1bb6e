package signer

import (
	"github.com/weisyn/txsigner/pkg/constants/events"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/types"
)

// publishSignEvent 发布签名结果事件，err 非 nil 时为失败事件
func publishSignEvent(bus event.EventBus, e *events.SignEvent, err error) {
	if bus == nil || e == nil {
		return
	}
	eventType := events.EventTypeSignCompleted
	if err != nil {
		eventType = events.EventTypeSignFailed
	}
	bus.Publish(eventType, e)
}

// publishRegistryEvent 发布注册表变化事件
func publishRegistryEvent(bus event.EventBus, eventType events.EventType, id string, t types.SignerType) {
	if bus == nil {
		return
	}
	bus.Publish(eventType, &events.RegistryEvent{SignerID: id, SignerType: t})
}
