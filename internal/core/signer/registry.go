// Package signer 提供签名器工厂、注册表与签名服务
//
// 🎯 **核心职责**：
// - 工厂：按签名器类型 + 配置构造具体后端（direct_key / hsm / mpc）
// - 注册表：按 id 管理多个签名器，支持查找与按类型过滤
// - 签名服务：对外统一入口，记录指标、发布事件
//
// 🏗️ **依赖关系**：
// - 依赖 codec / direct / hsm / mpc 子包提供的后端实现
// - 被 internal/api/http 与 cmd/txsigner 使用
package signer

import (
	"io"
	"sync"

	"github.com/weisyn/txsigner/pkg/constants/events"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

var _ signerif.Registry = (*Registry)(nil)

// Registry 内存中的签名器目录
//
// 🔒 **并发控制**：读写锁保护 id→签名器映射与注册顺序；
// List / FindByType 返回快照，调用方可安全遍历。
type Registry struct {
	mu      sync.RWMutex
	signers map[string]signerif.Signer
	order   []string // 注册顺序

	eventBus event.EventBus
	logger   log.Logger
}

// NewRegistry 创建注册表
func NewRegistry(eventBus event.EventBus, logger log.Logger) *Registry {
	return &Registry{
		signers:  make(map[string]signerif.Signer),
		eventBus: eventBus,
		logger:   logger,
	}
}

// Register 注册签名器
//
// id 已存在时返回 DuplicateId，原有条目保持不变。
func (r *Registry) Register(id string, s signerif.Signer) error {
	if id == "" {
		return types.NewSignerError(types.ErrorKindInvalidRequest, "signer id is required", nil)
	}
	if s == nil {
		return types.NewSignerError(types.ErrorKindInvalidRequest, "signer is nil", nil)
	}

	r.mu.Lock()
	if _, exists := r.signers[id]; exists {
		r.mu.Unlock()
		return types.Errorf(types.ErrorKindDuplicateID, "signer with id %q already exists", id)
	}
	r.signers[id] = s
	r.order = append(r.order, id)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Infof("📝 签名器已注册: id=%s, type=%s", id, s.GetSignerType())
	}
	publishRegistryEvent(r.eventBus, events.EventTypeSignerRegistered, id, s.GetSignerType())
	return nil
}

// Get 按 id 查找签名器
func (r *Registry) Get(id string) (signerif.Signer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signers[id]
	return s, ok
}

// Remove 移除签名器，返回条目是否存在
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.signers[id]
	if ok {
		delete(r.signers, id)
		for i, existing := range r.order {
			if existing == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		if r.logger != nil {
			r.logger.Infof("🗑️ 签名器已移除: id=%s", id)
		}
		publishRegistryEvent(r.eventBus, events.EventTypeSignerRemoved, id, s.GetSignerType())
	}
	return ok
}

// List 按注册顺序返回全部 (id, type)
func (r *Registry) List() []types.SignerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]types.SignerInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, types.SignerInfo{ID: id, Type: r.signers[id].GetSignerType()})
	}
	return infos
}

// FindByType 按注册顺序返回指定类型的签名器
func (r *Registry) FindByType(t types.SignerType) []signerif.Signer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []signerif.Signer
	for _, id := range r.order {
		if s := r.signers[id]; s.GetSignerType() == t {
			matched = append(matched, s)
		}
	}
	return matched
}

// Size 当前条目数
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.signers)
}

// Clear 移除全部条目
func (r *Registry) Clear() {
	r.mu.Lock()
	r.signers = make(map[string]signerif.Signer)
	r.order = nil
	r.mu.Unlock()
}

// Close 关闭所有持有外部资源的签名器并清空注册表
//
// 签名器实现 io.Closer 时调用其 Close（清零私钥、释放 PKCS#11 Session 等）。
func (r *Registry) Close() error {
	r.mu.Lock()
	signers := make([]signerif.Signer, 0, len(r.order))
	for _, id := range r.order {
		signers = append(signers, r.signers[id])
	}
	r.signers = make(map[string]signerif.Signer)
	r.order = nil
	r.mu.Unlock()

	var firstErr error
	for _, s := range signers {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
