package clock

import (
	"sync"
	"time"

	infraClock "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
)

// MockClock 测试用时钟，时间只在 Advance/Set 时变化
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

// NewMockClock 创建可控时钟
func NewMockClock(initial time.Time) *MockClock { return &MockClock{currentTime: initial} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// Advance 推进时间
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	c.mu.Unlock()
}

// Set 设置当前时间
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()
}

var _ infraClock.Clock = (*MockClock)(nil)
