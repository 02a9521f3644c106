package router

import (
	"context"
	"sync"

	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("core/router")

// DiscoveryHandler 发现与连接事件的处理方，由发现反应器实现
type DiscoveryHandler interface {
	HandleDiscovered(ctx context.Context, peer types.DiscoveredPeer)
	HandleConnected(id types.PeerID)
	HandleDisconnected(id types.PeerID)
}

// StreamHandler 入站流的处理方，由分发器实现
type StreamHandler interface {
	Serve(ctx context.Context, s interfaces.Stream)
	Ingest(ctx context.Context, s interfaces.Stream)
}

// Router 事件循环
type Router struct {
	transport interfaces.PeerTransport
	discovery DiscoveryHandler
	streams   StreamHandler
	metrics   *metrics.Metrics

	mu             sync.RWMutex
	onDisconnected []func(types.PeerID)

	wg sync.WaitGroup
}

// New 创建事件循环
func New(transport interfaces.PeerTransport, discovery DiscoveryHandler, streams StreamHandler, m *metrics.Metrics) *Router {
	return &Router{
		transport: transport,
		discovery: discovery,
		streams:   streams,
		metrics:   m,
	}
}

// OnDisconnected 注册断开回调
func (r *Router) OnDisconnected(fn func(types.PeerID)) {
	r.mu.Lock()
	r.onDisconnected = append(r.onDisconnected, fn)
	r.mu.Unlock()
}

// Run 处理事件直到 ctx 取消或事件流关闭，返回前等待所有入站流处理结束
func (r *Router) Run(ctx context.Context) error {
	defer r.wg.Wait()

	events := r.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Debug("事件流已关闭")
				return nil
			}
			r.dispatch(ctx, ev)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, ev interfaces.Event) {
	switch e := ev.(type) {
	case interfaces.PeerDiscovered:
		r.discovery.HandleDiscovered(ctx, e.Peer)

	case interfaces.PeerConnected:
		r.discovery.HandleConnected(e.ID)
		r.metrics.SetConnected(len(r.transport.ConnectedPeers()))

	case interfaces.PeerDisconnected:
		r.discovery.HandleDisconnected(e.ID)
		r.mu.RLock()
		callbacks := append([]func(types.PeerID){}, r.onDisconnected...)
		r.mu.RUnlock()
		for _, fn := range callbacks {
			fn(e.ID)
		}
		r.metrics.SetConnected(len(r.transport.ConnectedPeers()))

	case interfaces.PeerMessage:
		r.handleStream(ctx, e.Stream)

	default:
		log.Warn("未知事件", "type", ev)
	}
}

func (r *Router) handleStream(ctx context.Context, s interfaces.Stream) {
	if ctx.Err() != nil {
		_ = s.Reset()
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		switch s.Kind() {
		case types.StreamUnicast:
			r.streams.Serve(ctx, s)
		case types.StreamBroadcast:
			r.streams.Ingest(ctx, s)
		default:
			log.Warn("未知流类型", "peer", s.Peer().ShortString(), "kind", s.Kind())
			_ = s.Reset()
		}
	}()
}
