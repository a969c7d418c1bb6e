// Package clock 提供时间源实现：系统时钟、NTP 校正时钟与测试用可控时钟
package clock

import (
	"time"

	infraClock "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
)

// SystemClock 使用系统真实时间
type SystemClock struct{}

// NewSystemClock 创建系统时钟
func NewSystemClock() infraClock.Clock { return &SystemClock{} }

func (c *SystemClock) Now() time.Time                  { return time.Now() }
func (c *SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }
