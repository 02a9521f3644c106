package dispatcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"lukechampine.com/blake3"

	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("protocol/dispatcher")

// MembershipVerifier 校验节点是否为 library 成员，必要时可向对端刷新
type MembershipVerifier interface {
	Verify(ctx context.Context, peer types.PeerID, lib types.LibraryID) bool
}

// HeartbeatRecorder 记录收到的心跳
type HeartbeatRecorder interface {
	Observe(peer types.PeerID)
}

// Dispatcher 请求分发器
type Dispatcher struct {
	cfg     *Config
	codec   *wire.Codec
	target  interfaces.SyncTarget
	members MembershipVerifier
	beats   HeartbeatRecorder
	metrics *metrics.Metrics

	sem  *semaphore.Weighted
	seen *lru.Cache[types.OperationID, struct{}]
}

// New 创建分发器
func New(codec *wire.Codec, target interfaces.SyncTarget, deps Deps, opts ...Option) (*Dispatcher, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	if target == nil {
		return nil, ErrNilTarget
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	seen, err := lru.New[types.OperationID, struct{}](cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: seen cache: %w", err)
	}
	return &Dispatcher{
		cfg:     cfg,
		codec:   codec,
		target:  target,
		members: deps.Membership,
		beats:   deps.Heartbeats,
		metrics: deps.Metrics,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		seen:    seen,
	}, nil
}

// ============================================================================
//                              请求处理
// ============================================================================

// Handle 处理一条原始请求，返回编码后的应答
//
// 返回的错误为协议错误（调用方应重置流）或 ErrNoErrorVariant（调用方应终止流）。
// None 应答编码为零长度切片。
func (d *Dispatcher) Handle(ctx context.Context, from types.PeerID, raw []byte) ([]byte, error) {
	start := time.Now()
	req, err := d.codec.DecodeRequest(raw)
	if err != nil {
		d.metrics.Request("unknown", metrics.OutcomeMalformed, time.Since(start).Seconds())
		return nil, err
	}

	resp, herr := d.route(ctx, from, req)
	if herr != nil {
		if !req.Kind.HasErrorVariant() {
			d.metrics.Request(req.Kind.String(), metrics.OutcomeError, time.Since(start).Seconds())
			return nil, fmt.Errorf("%w: %s: %v", ErrNoErrorVariant, req.Kind, herr)
		}
		log.Debug("处理请求失败", "kind", req.Kind, "from", from.ShortString(), "err", herr)
		resp = errorResponse(herr)
	}

	out, err := d.codec.EncodeResponse(resp)
	if err != nil {
		log.Error("编码应答失败", "kind", req.Kind, "resp", resp.Kind, "err", err)
		d.metrics.Invariant()
		if !req.Kind.HasErrorVariant() {
			return nil, fmt.Errorf("%w: %v", ErrNoErrorVariant, err)
		}
		if out, err = d.codec.EncodeResponse(types.ErrorResponse(types.ErrCodeInternal, "response encoding failed")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoErrorVariant, err)
		}
	}

	outcome := metrics.OutcomeOK
	if resp.Kind == types.ResponseError {
		outcome = metrics.OutcomeError
	}
	d.metrics.Request(req.Kind.String(), outcome, time.Since(start).Seconds())
	return out, nil
}

// route 按请求变体路由；处理器 panic 转换为错误
func (d *Dispatcher) route(ctx context.Context, from types.PeerID, req types.Request) (resp types.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("处理器 panic", "kind", req.Kind, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	switch req.Kind {
	case types.RequestPing:
		return types.NoneResponse(), nil
	case types.RequestListLibraries:
		return types.LibrariesResponse(d.target.Libraries()), nil
	}

	if req.Kind.NeedsLibrary() && !d.target.HasLibrary(req.Library) {
		return types.ErrorResponse(types.ErrCodeNotFound, "library not found"), nil
	}
	return d.target.Handle(ctx, interfaces.RequestContext{From: from, Library: req.Library}, req)
}

func errorResponse(err error) types.Response {
	var info *types.ErrorInfo
	switch {
	case errors.As(err, &info):
		return types.ErrorResponse(info.Code, info.Message)
	case errors.Is(err, types.ErrUnknownLibrary):
		return types.ErrorResponse(types.ErrCodeNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return types.ErrorResponse(types.ErrCodeUnavailable, err.Error())
	case errors.Is(err, types.ErrInvalidOperation):
		return types.ErrorResponse(types.ErrCodeBadRequest, err.Error())
	default:
		return types.ErrorResponse(types.ErrCodeInternal, err.Error())
	}
}

// Serve 处理一条入站单播流，结束时流已关闭或重置
func (d *Dispatcher) Serve(ctx context.Context, s interfaces.Stream) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		_ = s.Reset()
		return
	}
	defer d.sem.Release(1)
	d.metrics.AddInFlight(1)
	defer d.metrics.AddInFlight(-1)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = s.Reset() })
	defer stop()

	raw, err := readMessage(s, d.codec.MaxMessageSize())
	if err != nil {
		log.Debug("读取请求失败", "from", s.Peer().ShortString(), "err", err)
		_ = s.Reset()
		return
	}

	out, err := d.Handle(ctx, s.Peer(), raw)
	if err != nil {
		if wire.IsProtocolError(err) {
			log.Debug("协议错误，重置流", "from", s.Peer().ShortString(), "err", err)
		} else {
			log.Warn("请求处理失败，终止流", "from", s.Peer().ShortString(), "err", err)
		}
		_ = s.Reset()
		return
	}

	if len(out) > 0 {
		if _, err := s.Write(out); err != nil {
			log.Debug("写回应答失败", "from", s.Peer().ShortString(), "err", err)
			_ = s.Reset()
			return
		}
	}
	_ = s.CloseWrite()
	_ = s.Close()
}

// ============================================================================
//                              广播接收
// ============================================================================

// Ingest 处理一条入站广播流
func (d *Dispatcher) Ingest(ctx context.Context, s interfaces.Stream) {
	raw, err := readMessage(s, d.codec.MaxMessageSize())
	_ = s.Close()
	if err != nil {
		log.Debug("读取广播失败", "from", s.Peer().ShortString(), "err", err)
		return
	}

	err = d.IngestPayload(ctx, s.Peer(), raw)
	switch {
	case err == nil:
	case errors.Is(err, ErrForeignLibrary), errors.Is(err, ErrDuplicate):
		log.Debug("丢弃广播", "from", s.Peer().ShortString(), "reason", err)
	default:
		log.Warn("拒绝广播", "from", s.Peer().ShortString(), "digest", digest(raw), "err", err)
	}
}

// IngestPayload 处理一条广播载荷
func (d *Dispatcher) IngestPayload(ctx context.Context, from types.PeerID, raw []byte) error {
	kind, lib, hasLib, err := wire.Peek(raw)
	if err != nil {
		d.metrics.Received(metrics.OutcomeMalformed)
		return err
	}

	switch kind {
	case wire.KindRequest:
		rk, err := wire.PeekRequestKind(raw)
		if err != nil {
			return err
		}
		if rk != types.RequestPing {
			return fmt.Errorf("%w: request %s", ErrUnexpectedBroadcast, rk)
		}
		if d.beats != nil {
			d.beats.Observe(from)
		}
		d.metrics.Heartbeat("in", metrics.OutcomeOK)
		return nil

	case wire.KindOperation:
		if !hasLib || !d.target.HasLibrary(lib) {
			d.metrics.Received(metrics.OutcomeForeign)
			return ErrForeignLibrary
		}
		return d.ingestOperation(ctx, from, raw)

	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedBroadcast, kind)
	}
}

func (d *Dispatcher) ingestOperation(ctx context.Context, from types.PeerID, raw []byte) error {
	op, err := d.codec.DecodeOperation(raw)
	if err != nil {
		d.metrics.Received(metrics.OutcomeMalformed)
		return err
	}
	if err := op.Validate(); err != nil {
		d.metrics.Received(metrics.OutcomeMalformed)
		return err
	}

	if d.cfg.RequireSignature {
		signer, err := wire.VerifyOperation(&op)
		if err != nil {
			d.metrics.Received(metrics.OutcomeRejected)
			return err
		}
		if signer != from {
			d.metrics.Received(metrics.OutcomeRejected)
			return fmt.Errorf("%w: signer %s from %s", ErrSignerMismatch, signer.ShortString(), from.ShortString())
		}
		if d.cfg.RequireMembership && d.members != nil && !d.members.Verify(ctx, signer, op.Library) {
			d.metrics.Received(metrics.OutcomeRejected)
			return fmt.Errorf("%w: %s", ErrNotMember, signer.ShortString())
		}
	}

	if dup, _ := d.seen.ContainsOrAdd(op.ID, struct{}{}); dup {
		d.metrics.Received(metrics.OutcomeDuplicate)
		return ErrDuplicate
	}
	if err := d.target.ApplyOperation(ctx, from, op); err != nil {
		d.seen.Remove(op.ID)
		d.metrics.Received(metrics.OutcomeError)
		return fmt.Errorf("dispatcher: apply %s: %w", op.ID, err)
	}

	d.metrics.Received(metrics.OutcomeOK)
	log.Debug("已应用远端操作",
		"from", from.ShortString(),
		"library", op.Library,
		"op", op.ID,
		"digest", digest(raw))
	return nil
}

// ============================================================================
//                              工具
// ============================================================================

// readMessage 读到 EOF，超过 limit 返回 ErrMessageTooLarge
func readMessage(r io.Reader, limit int) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > limit {
		return nil, ErrMessageTooLarge
	}
	return raw, nil
}

// digest 载荷摘要，用于日志关联
func digest(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
