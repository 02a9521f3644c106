package membership

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Querier 发送请求并等待应答，由分发器客户端实现
type Querier interface {
	Request(ctx context.Context, peer types.PeerID, req types.Request) (types.Response, error)
}

// PeerLister 列出当前已连接节点
type PeerLister interface {
	ConnectedPeers() []types.PeerID
}

// Refresher 成员信息刷新器
type Refresher struct {
	table    *Table
	querier  Querier
	peers    PeerLister
	interval time.Duration
	clock    clock.Clock

	trigger chan types.PeerID
	wg      sync.WaitGroup
}

// RefresherOption 刷新器选项
type RefresherOption func(*Refresher)

// WithClock 指定时间源
func WithClock(c clock.Clock) RefresherOption {
	return func(r *Refresher) {
		r.clock = c
	}
}

// NewRefresher 创建刷新器
func NewRefresher(table *Table, querier Querier, peers PeerLister, interval time.Duration, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		table:    table,
		querier:  querier,
		peers:    peers,
		interval: interval,
		clock:    clock.New(),
		trigger:  make(chan types.PeerID, 256),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger 请求尽快刷新 peer；队列已满时丢弃，等待下一次周期刷新
func (r *Refresher) Trigger(peer types.PeerID) {
	select {
	case r.trigger <- peer:
	default:
		log.Debug("刷新队列已满", "peer", peer.ShortString())
	}
}

// Run 运行刷新循环直到 ctx 取消
func (r *Refresher) Run(ctx context.Context) error {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case peer := <-r.trigger:
			r.spawn(ctx, peer)
		case <-ticker.C:
			for _, p := range r.peers.ConnectedPeers() {
				r.spawn(ctx, p)
			}
		}
	}
}

func (r *Refresher) spawn(ctx context.Context, peer types.PeerID) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Refresh(ctx, peer); err != nil && ctx.Err() == nil {
			log.Debug("刷新成员信息失败", "peer", peer.ShortString(), "err", err)
		}
	}()
}

// Refresh 立即向 peer 查询其持有的 library
func (r *Refresher) Refresh(ctx context.Context, peer types.PeerID) error {
	resp, err := r.querier.Request(ctx, peer, types.ListLibrariesRequest())
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if resp.Kind != types.ResponseLibraries {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Kind)
	}
	libs := make([]types.LibraryID, 0, len(resp.Libraries))
	for _, info := range resp.Libraries {
		libs = append(libs, info.ID)
	}
	r.table.Set(peer, libs)
	return nil
}
