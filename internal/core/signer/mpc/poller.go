package mpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// PollState 异步签名任务的轮询状态
type PollState int

const (
	StateSubmitted PollState = iota
	StatePolling
	StateSucceeded
	StateFailed
	StateTimedOut
)

// String 返回状态名称
func (s PollState) String() string {
	switch s {
	case StateSubmitted:
		return "Submitted"
	case StatePolling:
		return "Polling"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateTimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("PollState(%d)", int(s))
	}
}

// 托管方任务状态
const (
	StatusCompleted                 = "COMPLETED"
	StatusCompletedPendingSignature = "COMPLETED_PENDING_SIGNATURE"
	StatusFailed                    = "FAILED"
	StatusCancelled                 = "CANCELLED"
	StatusRejected                  = "REJECTED"
	StatusNotFound                  = "NOT_FOUND"
)

// JobStatus 一次状态查询的结果
type JobStatus struct {
	Status        string
	SignedContent string // 第一条已签名消息内容，可为空
}

// StatusFunc 查询任务状态；任务不存在时返回 (nil, nil)
type StatusFunc func(ctx context.Context, jobID string) (*JobStatus, error)

// Poller 异步签名任务轮询器
//
// 🔄 **状态机**：
//
//	Submitted → Polling → {Succeeded | Failed | TimedOut}
//
// 每轮最多查询一次，轮询严格串行。次数耗尽、整体超时或 ctx 截止均进入 TimedOut。
type Poller struct {
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	logger      log.Logger

	// OnTransition 状态变化回调（可为 nil）
	OnTransition func(from, to PollState)
}

// NewPoller 根据轮询配置创建轮询器，零值字段使用默认值
func NewPoller(cfg signerconfig.PollConfig, logger log.Logger) *Poller {
	defaults := signerconfig.DefaultPollConfig()
	interval := cfg.Interval()
	if interval <= 0 {
		interval = defaults.Interval()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaults.MaxAttempts
	}
	return &Poller{
		interval:    interval,
		maxAttempts: attempts,
		timeout:     cfg.Timeout(),
		logger:      logger,
	}
}

// MaxWait 最坏情况下的等待时长（不含查询本身耗时）
func (p *Poller) MaxWait() time.Duration {
	wait := time.Duration(p.maxAttempts-1) * p.interval
	if p.timeout > 0 && p.timeout < wait {
		return p.timeout
	}
	return wait
}

// Wait 轮询任务直到终态
//
// 返回：
//   - string: 成功时第一条已签名消息内容
//   - error: MissingSignedContent / RemoteSigningFailed / SigningTimeout，或 ctx 取消
func (p *Poller) Wait(ctx context.Context, jobID string, fetch StatusFunc) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	state := StateSubmitted
	move := func(to PollState) {
		if p.OnTransition != nil && to != state {
			p.OnTransition(state, to)
		}
		state = to
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		move(StatePolling)

		st, err := fetch(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return "", p.stopped(ctx, jobID, move)
			}
			move(StateFailed)
			return "", types.NewSignerError(types.ErrorKindRemoteSigningFailed, "status query failed", err)
		}
		if st == nil {
			move(StateFailed)
			return "", types.NewSignerError(types.ErrorKindRemoteSigningFailed, StatusNotFound, nil)
		}

		if p.logger != nil {
			p.logger.Debugf("签名任务状态: job=%s, status=%s, attempt=%d/%d", jobID, st.Status, attempt, p.maxAttempts)
		}

		switch st.Status {
		case StatusCompleted, StatusCompletedPendingSignature:
			if st.SignedContent == "" {
				move(StateFailed)
				return "", types.NewSignerError(types.ErrorKindMissingSignedContent,
					fmt.Sprintf("job %s reported %s without signed messages", jobID, st.Status), nil)
			}
			move(StateSucceeded)
			return st.SignedContent, nil
		case StatusFailed, StatusCancelled, StatusRejected:
			move(StateFailed)
			return "", types.NewSignerError(types.ErrorKindRemoteSigningFailed, st.Status, nil)
		}

		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", p.stopped(ctx, jobID, move)
		case <-timer.C:
		}
	}

	move(StateTimedOut)
	if p.logger != nil {
		p.logger.Warnf("签名任务未在 %d 次轮询内完成: job=%s", p.maxAttempts, jobID)
	}
	return "", types.Errorf(types.ErrorKindSigningTimeout, "job %s did not complete after %d attempts", jobID, p.maxAttempts)
}

// stopped ctx 结束时的出口：截止视为超时，主动取消原样包装
func (p *Poller) stopped(ctx context.Context, jobID string, move func(PollState)) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		move(StateTimedOut)
		return types.NewSignerError(types.ErrorKindSigningTimeout,
			fmt.Sprintf("job %s deadline exceeded", jobID), ctx.Err())
	}
	move(StateFailed)
	return fmt.Errorf("签名任务轮询已取消: %w", ctx.Err())
}
