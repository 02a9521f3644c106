package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("protocol/broadcast")

// Sender 扇出能力，由 PeerTransport 提供
type Sender interface {
	ConnectedPeers() []types.PeerID
	Broadcast(ctx context.Context, data []byte) map[types.PeerID]error
	Multicast(ctx context.Context, peers []types.PeerID, data []byte) map[types.PeerID]error
}

// Scope 从候选节点中选出应接收 library 操作的节点
//
// 成员关系未知的节点应当保留。
type Scope interface {
	Filter(ctx context.Context, peers []types.PeerID, lib types.LibraryID) []types.PeerID
}

// Result 一次扇出的结果
type Result struct {
	Op         types.OperationID
	Recipients []types.PeerID
	Failed     map[types.PeerID]error
}

// Broadcaster 同步广播器
type Broadcaster struct {
	cfg    *Config
	sender Sender
	codec  *wire.Codec
	queue  chan types.Ingress
}

// New 创建广播器
func New(sender Sender, codec *wire.Codec, opts ...Option) (*Broadcaster, error) {
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
	return &Broadcaster{
		cfg:    cfg,
		sender: sender,
		codec:  codec,
		queue:  make(chan types.Ingress, cfg.QueueSize),
	}, nil
}

// ============================================================================
//                              入队
// ============================================================================

// Enqueue 将操作放入出站队列，队列满时阻塞直到 ctx 结束
func (b *Broadcaster) Enqueue(ctx context.Context, lib types.LibraryID, op types.Operation) error {
	item, err := stamp(lib, op)
	if err != nil {
		return err
	}
	select {
	case b.queue <- item:
		b.enqueued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue 将操作放入出站队列，队列满时返回 ErrQueueFull
func (b *Broadcaster) TryEnqueue(lib types.LibraryID, op types.Operation) error {
	item, err := stamp(lib, op)
	if err != nil {
		return err
	}
	select {
	case b.queue <- item:
		b.enqueued()
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending 队列中等待发送的操作数
func (b *Broadcaster) Pending() int {
	return len(b.queue)
}

func (b *Broadcaster) enqueued() {
	b.cfg.metrics.Enqueued()
	b.cfg.metrics.SetQueueDepth(len(b.queue))
}

func stamp(lib types.LibraryID, op types.Operation) (types.Ingress, error) {
	switch {
	case op.Library == types.NilLibraryID:
		op.Library = lib
	case op.Library != lib:
		return types.Ingress{}, fmt.Errorf("%w: %s != %s", ErrLibraryMismatch, op.Library, lib)
	}
	if err := op.Validate(); err != nil {
		return types.Ingress{}, err
	}
	return types.Ingress{Library: lib, Op: op}, nil
}

// ============================================================================
//                              运行
// ============================================================================

// Run 逐条发送队列中的操作，直到 ctx 取消
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(b.queue); n > 0 {
				log.Info("停止广播，丢弃未发送操作", "pending", n)
			}
			return ctx.Err()
		case item := <-b.queue:
			b.cfg.metrics.SetQueueDepth(len(b.queue))
			if _, err := b.Publish(ctx, item); err != nil && ctx.Err() == nil {
				log.Warn("发送操作失败", "op", item.Op.ID, "library", item.Library, "err", err)
			}
		}
	}
}

// Forward 把外部通道的操作按序转入队列，通道关闭或 ctx 取消时返回
func (b *Broadcaster) Forward(ctx context.Context) error {
	ch := b.cfg.ingress
	if ch == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-ch:
			if !ok {
				log.Debug("外部操作通道已关闭")
				return nil
			}
			if err := b.Enqueue(ctx, item.Library, item.Op); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("丢弃外部操作", "op", item.Op.ID, "err", err)
			}
		}
	}
}

// HasIngress 是否配置了外部通道
func (b *Broadcaster) HasIngress() bool {
	return b.cfg.ingress != nil
}

// Publish 签名、编码并扇出一条操作
func (b *Broadcaster) Publish(ctx context.Context, item types.Ingress) (Result, error) {
	op := item.Op
	res := Result{Op: op.ID}

	if b.cfg.signer != nil {
		if err := wire.SignOperation(b.cfg.signer, &op); err != nil {
			if errors.Is(err, wire.ErrEncode) {
				return res, b.invariant(op, err)
			}
			return res, err
		}
	}
	raw, err := b.codec.EncodeOperation(op)
	if err != nil {
		return res, b.invariant(op, err)
	}

	if b.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.SendTimeout)
		defer cancel()
	}

	if b.cfg.Scoped && b.cfg.scope != nil {
		res.Recipients = b.cfg.scope.Filter(ctx, b.sender.ConnectedPeers(), item.Library)
		if len(res.Recipients) == 0 {
			log.Debug("没有持有该 library 的已连接节点", "op", op.ID, "library", item.Library)
			b.cfg.metrics.Broadcast(0, 0)
			return res, nil
		}
		res.Failed = b.sender.Multicast(ctx, res.Recipients, raw)
	} else {
		res.Recipients = b.sender.ConnectedPeers()
		res.Failed = b.sender.Broadcast(ctx, raw)
	}

	for peer, err := range res.Failed {
		log.Warn("投递操作失败", "peer", peer.ShortString(), "op", op.ID, "err", err)
	}
	delivered := len(res.Recipients) - len(res.Failed)
	if delivered < 0 {
		delivered = 0
	}
	b.cfg.metrics.Broadcast(delivered, len(res.Failed))
	log.Debug("已广播操作",
		"op", op.ID,
		"library", item.Library,
		"recipients", len(res.Recipients),
		"failed", len(res.Failed))
	return res, nil
}

func (b *Broadcaster) invariant(op types.Operation, err error) error {
	err = fmt.Errorf("%w: encode operation %s: %v", ErrInvariant, op.ID, err)
	log.Error("编码本地操作失败", "op", op.ID, "library", op.Library, "err", err)
	b.cfg.metrics.Invariant()
	if b.cfg.PanicOnInvariant {
		panic(err)
	}
	return err
}
