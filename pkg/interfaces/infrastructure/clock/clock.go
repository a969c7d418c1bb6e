// Package clock provides clock synchronization interfaces.
package clock

import "time"

// Clock 统一时间源接口
//
// 用于需要可替换时间的场景（托管方令牌时间戳、健康检查运行时长），
// 测试中可替换为可控时钟。
type Clock interface {
	// Now 获取当前时间
	Now() time.Time

	// Since 计算从指定时间到现在的持续时间
	Since(t time.Time) time.Duration
}
