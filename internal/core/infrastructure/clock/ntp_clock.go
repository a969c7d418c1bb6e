package clock

import (
	"sync"
	"time"

	"github.com/beevik/ntp"

	infraClock "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
)

// queryFn 返回本机相对 NTP 服务器的时钟偏移
type queryFn func(server string) (time.Duration, error)

func ntpOffset(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// NTPClock 通过NTP周期性校正偏移的时钟实现
//
// 同步在 Now 调用时按间隔惰性触发；失败时保留上次偏移并指数退避。
type NTPClock struct {
	mu sync.Mutex

	server             string
	offset             time.Duration
	lastSync           time.Time
	syncInterval       time.Duration
	backoff            time.Duration
	backoffInitial     time.Duration
	backoffMax         time.Duration
	unhealthyThreshold time.Duration
	lastError          error
	syncing            bool // 已有同步在进行，其他调用直接使用当前偏移

	query queryFn
	local func() time.Time
}

// NewNTPClock 创建NTP时钟
// server 例如 "time.google.com"，syncInterval 建议 5~10 分钟
//
// 首次同步失败不致命：偏移置零，后续按退避重试。
func NewNTPClock(server string, syncInterval, unhealthyThreshold time.Duration) *NTPClock {
	return newNTPClock(server, syncInterval, unhealthyThreshold, ntpOffset, time.Now)
}

func newNTPClock(server string, syncInterval, unhealthyThreshold time.Duration, query queryFn, local func() time.Time) *NTPClock {
	c := &NTPClock{
		server:             server,
		syncInterval:       syncInterval,
		unhealthyThreshold: unhealthyThreshold,
		backoffInitial:     5 * time.Second,
		backoffMax:         5 * time.Minute,
		query:              query,
		local:              local,
	}
	c.sync()
	return c
}

// Now 返回校正后的时间
//
// 网络查询在锁外执行，查询期间的并发调用使用上次偏移。
func (c *NTPClock) Now() time.Time {
	c.mu.Lock()
	due := !c.syncing && c.syncDue()
	if due {
		c.syncing = true
	}
	c.mu.Unlock()

	if due {
		c.sync()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local().Add(c.offset)
}

func (c *NTPClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// Health 返回当前健康状态与关键指标
// healthy: 最近一次同步无错误，且偏移量在阈值内
func (c *NTPClock) Health() (healthy bool, offset time.Duration, lastSync time.Time, lastError error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset, lastSync, lastError = c.offset, c.lastSync, c.lastError
	if lastError != nil {
		return false, offset, lastSync, lastError
	}
	if c.unhealthyThreshold > 0 && (offset < -c.unhealthyThreshold || offset > c.unhealthyThreshold) {
		return false, offset, lastSync, nil
	}
	return true, offset, lastSync, nil
}

// syncDue 调用方持有锁
func (c *NTPClock) syncDue() bool {
	effective := c.syncInterval
	if c.backoff > 0 {
		effective = c.backoff
	}
	return c.local().Sub(c.lastSync) >= effective
}

// sync 查询偏移后在锁内更新状态
func (c *NTPClock) sync() {
	offset, err := c.query(c.server)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncing = false

	now := c.local()
	if err != nil {
		c.lastError = err
		// 失败也记录尝试时间，退避从这里开始计算
		c.lastSync = now
		if c.backoff == 0 {
			c.backoff = c.backoffInitial
		} else {
			c.backoff *= 2
		}
		if c.backoff > c.backoffMax {
			c.backoff = c.backoffMax
		}
		return
	}
	c.offset = offset
	c.lastSync = now
	c.lastError = nil
	c.backoff = 0
}

var _ infraClock.Clock = (*NTPClock)(nil)
