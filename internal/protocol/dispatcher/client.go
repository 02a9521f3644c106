package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Opener 打开单播流，由 PeerTransport 提供
type Opener interface {
	OpenUnicast(ctx context.Context, peer types.PeerID) (interfaces.Stream, error)
}

// Client 出站请求客户端
type Client struct {
	opener Opener
	codec  *wire.Codec
	cfg    *Config
}

// NewClient 创建客户端
func NewClient(opener Opener, codec *wire.Codec, opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{opener: opener, codec: codec, cfg: cfg}
}

// Request 向 peer 发送请求并等待应答
//
// 对端的错误应答以 Response{Kind: Error} 返回，调用方可用 resp.Err() 转换。
// 传输错误按配置重试；ctx 错误与协议错误不重试。
func (c *Client) Request(ctx context.Context, peer types.PeerID, req types.Request) (types.Response, error) {
	raw, err := c.codec.EncodeRequest(req)
	if err != nil {
		return types.Response{}, err
	}

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return types.Response{}, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		resp, err := c.roundTrip(ctx, peer, raw)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !shouldRetry(err) {
			break
		}
		log.Debug("请求失败，准备重试", "peer", peer.ShortString(), "kind", req.Kind, "attempt", attempt+1, "err", err)
	}
	return types.Response{}, lastErr
}

func (c *Client) roundTrip(ctx context.Context, peer types.PeerID, raw []byte) (types.Response, error) {
	s, err := c.opener.OpenUnicast(ctx, peer)
	if err != nil {
		return types.Response{}, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Reset() })
	defer stop()

	if _, err := s.Write(raw); err != nil {
		_ = s.Reset()
		return types.Response{}, c.streamErr(ctx, err)
	}
	if err := s.CloseWrite(); err != nil {
		_ = s.Reset()
		return types.Response{}, c.streamErr(ctx, err)
	}

	payload, err := readMessage(s, c.codec.MaxMessageSize())
	_ = s.Close()
	if err != nil {
		return types.Response{}, c.streamErr(ctx, err)
	}
	return c.codec.DecodeResponse(payload)
}

func (c *Client) streamErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ErrMessageTooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStreamTerminated, err)
}

// shouldRetry 判断是否应该重试
func shouldRetry(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if wire.IsProtocolError(err) || errors.Is(err, ErrMessageTooLarge) {
		return false
	}
	return true
}
