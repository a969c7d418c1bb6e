//go:build !android && !ios && cgo
// +build !android,!ios,cgo

// session_pool.go: PKCS#11 Session 池管理
//
// 🎯 **核心职责**：高效管理和复用 PKCS#11 Session
//
// 💡 **设计理念**：
// - Session 是有限资源，使用令牌通道限制并发数量
// - 获取 Session 受 context 控制，超时立即返回
// - 空闲 Session 定期校验，失效的被关闭
package hsm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/pkcs11"

	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// sessionBackend Session 池依赖的 PKCS#11 操作
type sessionBackend interface {
	OpenSession() (pkcs11.SessionHandle, error)
	Login(session pkcs11.SessionHandle, pin string) error
	CloseSession(session pkcs11.SessionHandle) error
	SessionValid(session pkcs11.SessionHandle) bool
}

// SessionPool PKCS#11 Session 池
type SessionPool struct {
	backend sessionBackend
	pin     string
	maxSize int

	mu     sync.Mutex
	idle   []pkcs11.SessionHandle
	inUse  map[pkcs11.SessionHandle]bool
	tokens chan struct{} // 容量为 maxSize，持有令牌才能持有 Session

	logger          log.Logger
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// SessionPoolConfig Session池配置
type SessionPoolConfig struct {
	MaxSize         int           // 最大Session数量（默认10）
	PIN             string        // 用户 PIN
	CleanupInterval time.Duration // 清理间隔（默认5分钟）
}

// NewSessionPool 创建 Session 池
func NewSessionPool(backend sessionBackend, config *SessionPoolConfig, logger log.Logger) (*SessionPool, error) {
	if backend == nil {
		return nil, fmt.Errorf("PKCS#11上下文不能为空")
	}
	if config == nil {
		config = &SessionPoolConfig{}
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = 10
	}
	cleanupInterval := config.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	pool := &SessionPool{
		backend:         backend,
		pin:             config.PIN,
		maxSize:         maxSize,
		inUse:           make(map[pkcs11.SessionHandle]bool),
		tokens:          make(chan struct{}, maxSize),
		logger:          logger,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go pool.cleanupLoop()

	if logger != nil {
		logger.Infof("✅ Session池初始化成功，最大Session数: %d", maxSize)
	}
	return pool, nil
}

// AcquireSession 获取一个可用的 Session
//
// 池满时阻塞等待，直到有 Session 释放或 ctx 结束。
func (p *SessionPool) AcquireSession(ctx context.Context) (pkcs11.SessionHandle, error) {
	select {
	case p.tokens <- struct{}{}:
	case <-ctx.Done():
		return 0, fmt.Errorf("获取Session超时: %w", ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. 复用空闲 Session
	for len(p.idle) > 0 {
		session := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if p.backend.SessionValid(session) {
			p.inUse[session] = true
			return session, nil
		}
		_ = p.backend.CloseSession(session)
	}

	// 2. 创建新 Session
	session, err := p.createSession()
	if err != nil {
		<-p.tokens
		return 0, fmt.Errorf("创建Session失败: %w", err)
	}
	p.inUse[session] = true
	if p.logger != nil {
		p.logger.Debugf("创建新Session: %d (使用中: %d/%d)", session, len(p.inUse), p.maxSize)
	}
	return session, nil
}

// ReleaseSession 归还 Session
func (p *SessionPool) ReleaseSession(session pkcs11.SessionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inUse[session] {
		return
	}
	delete(p.inUse, session)
	p.idle = append(p.idle, session)
	<-p.tokens
}

// DiscardSession 关闭出错的 Session 而不是放回池中
func (p *SessionPool) DiscardSession(session pkcs11.SessionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inUse[session] {
		return
	}
	delete(p.inUse, session)
	_ = p.backend.CloseSession(session)
	<-p.tokens
}

// Close 关闭所有空闲 Session 并停止清理协程
func (p *SessionPool) Close() error {
	p.closeOnce.Do(func() { close(p.stopCleanup) })

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, session := range p.idle {
		if err := p.backend.CloseSession(session); err != nil && p.logger != nil {
			p.logger.Warnf("关闭Session失败: %v", err)
		}
	}
	p.idle = nil

	if p.logger != nil {
		p.logger.Info("✅ Session池已关闭")
	}
	return nil
}

// GetStats 获取Session池统计信息
func (p *SessionPool) GetStats() (total, inUse, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inUse = len(p.inUse)
	idle = len(p.idle)
	return inUse + idle, inUse, idle
}

// createSession 打开新 Session 并登录
func (p *SessionPool) createSession() (pkcs11.SessionHandle, error) {
	session, err := p.backend.OpenSession()
	if err != nil {
		return 0, err
	}
	if p.pin != "" {
		if err := p.backend.Login(session, p.pin); err != nil {
			_ = p.backend.CloseSession(session)
			return 0, err
		}
	}
	return session, nil
}

// cleanupLoop 定期清理无效Session
func (p *SessionPool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanupInvalidSessions()
		case <-p.stopCleanup:
			return
		}
	}
}

// cleanupInvalidSessions 清理无效的空闲 Session
func (p *SessionPool) cleanupInvalidSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()

	valid := p.idle[:0]
	for _, session := range p.idle {
		if p.backend.SessionValid(session) {
			valid = append(valid, session)
			continue
		}
		if err := p.backend.CloseSession(session); err != nil && p.logger != nil {
			p.logger.Warnf("清理无效Session失败: %v", err)
		}
	}
	p.idle = valid
}
