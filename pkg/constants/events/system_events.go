// Package events 提供签名服务的事件类型常量定义
//
// 🔧 **命名规范**：domain.category.action
//
// 🏗️ **使用方式**
// ```go
// import "github.com/weisyn/txsigner/pkg/constants/events"
//
// eventBus.Subscribe(events.EventTypeSignCompleted, func(e *events.SignEvent) { ... })
// ```
package events

import (
	"time"

	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/types"
)

// EventType 全局事件类型别名
type EventType = event.EventType

// 签名事件
const (
	// EventTypeSignCompleted 签名成功
	// 发布者：signer.Service
	EventTypeSignCompleted EventType = "signer.sign.completed"

	// EventTypeSignFailed 签名失败
	// 发布者：signer.Service
	EventTypeSignFailed EventType = "signer.sign.failed"
)

// 注册表事件
const (
	// EventTypeSignerRegistered 签名器注册成功
	EventTypeSignerRegistered EventType = "signer.registry.registered"

	// EventTypeSignerRemoved 签名器被移除
	EventTypeSignerRemoved EventType = "signer.registry.removed"
)

// SignEvent 签名事件负载
//
// 只携带元数据，不包含交易内容、签名或任何密钥材料。
type SignEvent struct {
	CorrelationID string           `json:"correlationId"`
	SignerID      string           `json:"signerId"`
	SignerType    types.SignerType `json:"signerType"`
	ChainType     types.ChainType  `json:"chainType"`
	Duration      time.Duration    `json:"duration"`
	ErrorKind     types.ErrorKind  `json:"errorKind,omitempty"`
}

// RegistryEvent 注册表事件负载
type RegistryEvent struct {
	SignerID   string           `json:"signerId"`
	SignerType types.SignerType `json:"signerType"`
}
