package syncmesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("syncmesh")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// shutdownTimeout Close 等待任务退出的上限
	shutdownTimeout = 15 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node 同步覆盖网络中的一个节点
//
// 由 New 显式构造，不存在全局状态；同一进程中可以运行多个节点。
type Node struct {
	app        *fx.App
	components nodeComponents

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建节点
//
// 只完成组装，不启动任何网络活动；必须提供 WithSyncTarget。
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{}
	app, err := buildFxApp(o, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 创建并启动节点
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// Start 启动所有后台任务：事件循环、广播器、心跳与成员刷新
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	if err := n.app.Start(initCtx); err != nil {
		log.Error("节点启动失败", "error", err)
		// 已启动的部分由 fx 回滚；节点不可再用
		n.closed = true
		return fmt.Errorf("initialize failed: %w", err)
	}

	n.started = true
	log.Info("节点已启动",
		"peer", n.components.Transport.LocalID().ShortString(),
		"addrs", n.components.Transport.ListenAddrs())
	return nil
}

// Stop 停止节点
//
// 先取消并等待全部任务（受 ctx 限制），再关闭传输。停止后的节点不能再次启动。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}

	log.Info("正在停止节点")
	n.started = false
	n.closed = true
	if err := n.app.Stop(ctx); err != nil {
		log.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	log.Info("节点已停止")
	return nil
}

// Close 关闭节点并释放所有资源；可重复调用
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	if !n.started {
		n.closed = true
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.Stop(ctx); err != nil && err != ErrNodeClosed {
		return err
	}
	return nil
}

func (n *Node) running() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回节点 ID，由节点公钥派生
func (n *Node) ID() types.PeerID {
	return n.components.Identity.PeerID()
}

// ListenAddrs 返回传输的监听地址
func (n *Node) ListenAddrs() []string {
	return n.components.Transport.ListenAddrs()
}

// Peers 发现反应器记录的全部节点，按 ID 排序
func (n *Node) Peers() []PeerRecord {
	return n.components.Reactor.Peers()
}

// ConnectedPeers 当前已连接的节点
func (n *Node) ConnectedPeers() []types.PeerID {
	return n.components.Transport.ConnectedPeers()
}

// Members 已知持有 lib 的远端节点
func (n *Node) Members(lib types.LibraryID) []types.PeerID {
	return n.components.Table.Members(lib)
}

// LastSeen 最近一次收到 peer 心跳的时间
func (n *Node) LastSeen(peer types.PeerID) (time.Time, bool) {
	return n.components.Tracker.LastSeen(peer)
}

// ════════════════════════════════════════════════════════════════════════════
//                              同步
// ════════════════════════════════════════════════════════════════════════════

// Publish 把操作放入出站队列
//
// 队列满时阻塞直到有空位或 ctx 取消。op.Library 为空时以 lib 填充，不一致返回错误。
func (n *Node) Publish(ctx context.Context, lib types.LibraryID, op types.Operation) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.components.Broadcaster.Enqueue(ctx, lib, op)
}

// TryPublish 与 Publish 相同，但队列满时立即返回 broadcast.ErrQueueFull
func (n *Node) TryPublish(lib types.LibraryID, op types.Operation) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.components.Broadcaster.TryEnqueue(lib, op)
}

// Request 向 peer 发送单播请求并等待应答
//
// 远端以 Error 应答时返回的 Response 携带错误，调用方通过 resp.Err() 检查。
func (n *Node) Request(ctx context.Context, peer types.PeerID, req types.Request) (types.Response, error) {
	if err := n.running(); err != nil {
		return types.Response{}, err
	}
	return n.components.Client.Request(ctx, peer, req)
}
