// Package lifecycle 管理 syncmesh 后台任务的生命周期
//
// 所有长期任务（事件循环、广播器、探测器、成员刷新、拨号与请求处理）
// 都通过 Group 启动，共享同一个取消信号；Stop 取消并等待全部任务退出。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-syncmesh/internal/util/logger"
)

var log = logger.Logger("core/lifecycle")

var (
	// ErrStopped 任务组已停止
	ErrStopped = errors.New("lifecycle: group stopped")

	// ErrStopTimeout 等待任务退出超时
	ErrStopTimeout = errors.New("lifecycle: timed out waiting for tasks")
)

// ============================================================================
//                              阶段
// ============================================================================

// Phase 任务组阶段
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

// String 返回阶段名称
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ============================================================================
//                              Group
// ============================================================================

// Group 共享取消信号的任务组
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group

	mu      sync.Mutex
	phase   Phase
	changed chan struct{} // 阶段变化时关闭并替换
	active  map[string]int
}

// NewGroup 创建任务组
//
// 根 context 独立于调用方，fx OnStart 的 ctx 在启动完成后即被取消，不能作为任务的父 context。
func NewGroup() *Group {
	ctx, cancel := context.WithCancel(context.Background())
	return &Group{
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
		active:  make(map[string]int),
	}
}

// Context 所有任务共享的 context，Stop 时取消
func (g *Group) Context() context.Context {
	return g.ctx
}

// Start 进入 Running 阶段
func (g *Group) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseCreated {
		return fmt.Errorf("lifecycle: cannot start in phase %s", g.phase)
	}
	g.setPhaseLocked(PhaseRunning)
	return nil
}

// Go 启动一个任务
//
// fn 应在 ctx 取消后尽快返回；返回 context.Canceled 视为正常退出。
// panic 被恢复并转换为错误。任务组停止后调用返回 ErrStopped。
func (g *Group) Go(name string, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	if g.phase >= PhaseStopping {
		g.mu.Unlock()
		return ErrStopped
	}
	g.active[name]++
	g.mu.Unlock()

	g.eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("任务 panic", "task", name, "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("lifecycle: task %s panicked: %v", name, r)
			}
			g.mu.Lock()
			if g.active[name]--; g.active[name] <= 0 {
				delete(g.active, name)
			}
			g.mu.Unlock()
		}()

		err = fn(g.ctx)
		if err != nil && errors.Is(err, context.Canceled) && g.ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Warn("任务异常退出", "task", name, "err", err)
		}
		return err
	})
	return nil
}

// Active 当前运行中的任务名及实例数
func (g *Group) Active() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.active))
	for k, v := range g.active {
		out[k] = v
	}
	return out
}

// Stop 取消全部任务并等待退出
//
// ctx 到期时返回 ErrStopTimeout，剩余任务仍会在取消信号下自行退出。
func (g *Group) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.phase >= PhaseStopping {
		g.mu.Unlock()
		return nil
	}
	g.setPhaseLocked(PhaseStopping)
	g.mu.Unlock()

	g.cancel()

	done := make(chan error, 1)
	go func() { done <- g.eg.Wait() }()

	select {
	case err := <-done:
		g.mu.Lock()
		g.setPhaseLocked(PhaseStopped)
		g.mu.Unlock()
		return err
	case <-ctx.Done():
		log.Warn("等待任务退出超时", "active", g.Active())
		return fmt.Errorf("%w: %v", ErrStopTimeout, ctx.Err())
	}
}

// Phase 当前阶段
func (g *Group) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// WaitFor 等待进入指定阶段（或更晚阶段）
func (g *Group) WaitFor(ctx context.Context, phase Phase) error {
	for {
		g.mu.Lock()
		if g.phase >= phase {
			g.mu.Unlock()
			return nil
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Group) setPhaseLocked(p Phase) {
	old := g.phase
	g.phase = p
	close(g.changed)
	g.changed = make(chan struct{})
	log.Debug("阶段变更", "from", old, "to", p)
}
