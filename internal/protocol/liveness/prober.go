package liveness

import (
	"context"
	"strings"
	"time"

	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("protocol/liveness")

// Sender 探测器使用的传输能力
type Sender interface {
	LocalID() types.PeerID
	ListenAddrs() []string
	ConnectedPeers() []types.PeerID
	Broadcast(ctx context.Context, data []byte) map[types.PeerID]error
}

// Prober 心跳探测器
type Prober struct {
	cfg    *Config
	sender Sender
	ping   []byte
}

// New 创建探测器
func New(sender Sender, codec *wire.Codec, opts ...Option) (*Prober, error) {
	if sender == nil {
		return nil, ErrNilSender
	}
	if codec == nil {
		return nil, ErrNilCodec
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	ping, err := codec.EncodeRequest(types.PingRequest())
	if err != nil {
		return nil, err
	}
	return &Prober{cfg: cfg, sender: sender, ping: ping}, nil
}

// Run 宽限期后周期广播心跳，直到 ctx 取消
func (p *Prober) Run(ctx context.Context) error {
	if err := p.sleep(ctx, p.cfg.Grace); err != nil {
		return err
	}
	log.Info("节点已上线",
		"id", p.sender.LocalID().String(),
		"addrs", strings.Join(p.sender.ListenAddrs(), ","))

	failures := 0
	for {
		if p.Probe(ctx) {
			failures = 0
		} else {
			failures++
		}
		if err := p.sleep(ctx, p.nextDelay(failures)); err != nil {
			return err
		}
	}
}

// Probe 广播一次心跳
//
// 没有已连接节点或至少一个节点投递成功时返回 true。
func (p *Prober) Probe(ctx context.Context) bool {
	peers := p.sender.ConnectedPeers()
	if len(peers) == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Interval)
	defer cancel()
	failed := p.sender.Broadcast(ctx, p.ping)
	if len(failed) > 0 && len(failed) >= len(peers) {
		p.cfg.metrics.Heartbeat("out", metrics.OutcomeFailed)
		log.Debug("心跳全部投递失败", "peers", len(peers))
		return false
	}
	p.cfg.metrics.Heartbeat("out", metrics.OutcomeOK)
	for peer, err := range failed {
		log.Debug("心跳投递失败", "peer", peer.ShortString(), "err", err)
	}
	return true
}

// nextDelay 连续失败 failures 次后的等待时间
func (p *Prober) nextDelay(failures int) time.Duration {
	d := p.cfg.Interval
	for i := 0; i < failures && d < p.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if d > p.cfg.MaxBackoff && p.cfg.MaxBackoff >= p.cfg.Interval {
		d = p.cfg.MaxBackoff
	}
	return d
}

func (p *Prober) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := p.cfg.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
