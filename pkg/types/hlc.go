package types

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
//                              Timestamp - 混合逻辑时钟
// ============================================================================

// Timestamp 64 位混合逻辑时钟值
//
// 高 48 位为 Unix 毫秒，低 16 位为逻辑计数器。
// 数值比较即因果先后比较。
type Timestamp uint64

const counterBits = 16

// NewTimestamp 由物理毫秒与计数器构造
func NewTimestamp(millis int64, counter uint16) Timestamp {
	return Timestamp(uint64(millis)<<counterBits | uint64(counter))
}

// Millis 物理时间部分
func (t Timestamp) Millis() int64 {
	return int64(t >> counterBits)
}

// Counter 逻辑计数器部分
func (t Timestamp) Counter() uint16 {
	return uint16(t)
}

// Time 转换为 time.Time
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.Millis())
}

// String 返回 毫秒.计数器 形式
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d", t.Millis(), t.Counter())
}

// HLC 混合逻辑时钟生成器，并发安全
//
// Now 返回的值严格单调递增；Observe 接收远端时间戳，
// 保证之后本地生成的时间戳大于所有已观察值。
type HLC struct {
	mu   sync.Mutex
	last Timestamp
	now  func() time.Time
}

// NewHLC 创建时钟，now 为 nil 时使用 time.Now
func NewHLC(now func() time.Time) *HLC {
	if now == nil {
		now = time.Now
	}
	return &HLC{now: now}
}

// Now 生成新的时间戳
func (c *HLC) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := NewTimestamp(c.now().UnixMilli(), 0)
	if phys > c.last {
		c.last = phys
	} else {
		// 计数器溢出时自然进位到毫秒部分
		c.last++
	}
	return c.last
}

// Observe 合并远端时间戳
func (c *HLC) Observe(remote Timestamp) {
	c.mu.Lock()
	if remote > c.last {
		c.last = remote
	}
	c.mu.Unlock()
}

// Last 返回最近生成或观察到的时间戳
func (c *HLC) Last() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
