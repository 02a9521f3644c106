// Package wire 实现 syncmesh 的线路编码
//
// 每条传输消息恰好是一个自描述信封，承载一个 Request、Response 或 Operation：
//
//	field 1 varint  信封版本
//	field 2 varint  值类型 (request / response / operation)
//	field 3 varint  请求或应答变体
//	field 4 bytes   library 标识（16 字节）
//	field 5 bytes   消息体，确定性 CBOR
//	field 6 varint  标志位，bit0 表示消息体经 zstd 压缩
//
// 信封使用 protobuf 线路格式，未知字段跳过。消息边界由传输层保证，信封本身不带长度前缀。
// Response::None 编码为零长度载荷。
package wire

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Codec 编解码器，无状态，可并发使用
type Codec struct {
	opts Options
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// New 创建编解码器
func New(opts ...Option) (*Codec, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("wire: create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(uint64(o.MaxMessageSize)),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("wire: create zstd decoder: %w", err)
	}
	return &Codec{opts: o, enc: enc, dec: dec}, nil
}

// MustNew 同 New，失败时 panic；仅用于测试与包级默认值
func MustNew(opts ...Option) *Codec {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Close 释放压缩器资源
func (c *Codec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// MaxMessageSize 单条消息上限
func (c *Codec) MaxMessageSize() int {
	return c.opts.MaxMessageSize
}

// ============================================================================
//                              Request
// ============================================================================

// EncodeRequest 编码请求
func (c *Codec) EncodeRequest(req types.Request) ([]byte, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: request variant %d", ErrEncode, req.Kind)
	}
	h := &header{kind: KindRequest, variant: uint64(req.Kind)}
	if req.Library != types.NilLibraryID {
		h.library, h.hasLibrary = req.Library, true
	}
	if req.Since != 0 || req.Limit != 0 || !req.After.IsZero() {
		rb := requestBody{Since: req.Since, Limit: req.Limit}
		if !req.After.IsZero() {
			rb.After = &req.After
		}
		body, err := encMode.Marshal(rb)
		if err != nil {
			return nil, fmt.Errorf("%w: request body: %v", ErrEncode, err)
		}
		h.body = body
	}
	return c.seal(h)
}

// DecodeRequest 解码请求
func (c *Codec) DecodeRequest(raw []byte) (types.Request, error) {
	h, body, err := c.open("request", raw, KindRequest)
	if err != nil {
		return types.Request{}, err
	}
	kind := types.RequestKind(h.variant)
	if h.variant > 0xff || !kind.Valid() {
		return types.Request{}, decodeErr("request", fmt.Errorf("%w: %d", ErrUnknownVariant, h.variant))
	}

	req := types.Request{Kind: kind}
	if h.hasLibrary {
		req.Library = h.library
	}
	if len(body) > 0 {
		var rb requestBody
		if err := decMode.Unmarshal(body, &rb); err != nil {
			return types.Request{}, decodeErr("request", fmt.Errorf("%w: body: %v", ErrMalformedEnvelope, err))
		}
		req.Since, req.Limit = rb.Since, rb.Limit
		if rb.After != nil {
			req.After = *rb.After
		}
	}
	return req, nil
}

// ============================================================================
//                              Response
// ============================================================================

// EncodeResponse 编码应答；None 返回零长度切片
func (c *Codec) EncodeResponse(resp types.Response) ([]byte, error) {
	if !resp.Kind.Valid() {
		return nil, fmt.Errorf("%w: response variant %d", ErrEncode, resp.Kind)
	}
	if resp.Kind == types.ResponseNone {
		return []byte{}, nil
	}
	body, err := encMode.Marshal(responseBody{
		Library:    resp.Library,
		Libraries:  resp.Libraries,
		Operations: resp.Operations,
		Error:      resp.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: response body: %v", ErrEncode, err)
	}
	return c.seal(&header{kind: KindResponse, variant: uint64(resp.Kind), body: body})
}

// DecodeResponse 解码应答；零长度载荷即 None
func (c *Codec) DecodeResponse(raw []byte) (types.Response, error) {
	if len(raw) == 0 {
		return types.NoneResponse(), nil
	}
	h, body, err := c.open("response", raw, KindResponse)
	if err != nil {
		return types.Response{}, err
	}
	kind := types.ResponseKind(h.variant)
	if h.variant > 0xff || !kind.Valid() {
		return types.Response{}, decodeErr("response", fmt.Errorf("%w: %d", ErrUnknownVariant, h.variant))
	}

	resp := types.Response{Kind: kind}
	if len(body) > 0 {
		var rb responseBody
		if err := decMode.Unmarshal(body, &rb); err != nil {
			return types.Response{}, decodeErr("response", fmt.Errorf("%w: body: %v", ErrMalformedEnvelope, err))
		}
		resp.Library, resp.Libraries, resp.Operations, resp.Error = rb.Library, rb.Libraries, rb.Operations, rb.Error
	}
	if kind == types.ResponseError && resp.Error == nil {
		return types.Response{}, decodeErr("response", fmt.Errorf("%w: error response without error", ErrMalformedEnvelope))
	}
	return resp, nil
}

// ============================================================================
//                              Operation
// ============================================================================

// EncodeOperation 编码操作，library 同时写入信封头供接收端快速过滤
func (c *Codec) EncodeOperation(op types.Operation) ([]byte, error) {
	body, err := encMode.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("%w: operation: %v", ErrEncode, err)
	}
	return c.seal(&header{kind: KindOperation, library: op.Library, hasLibrary: true, body: body})
}

// DecodeOperation 解码操作
func (c *Codec) DecodeOperation(raw []byte) (types.Operation, error) {
	h, body, err := c.open("operation", raw, KindOperation)
	if err != nil {
		return types.Operation{}, err
	}
	if len(body) == 0 {
		return types.Operation{}, decodeErr("operation", fmt.Errorf("%w: missing body", ErrMalformedEnvelope))
	}
	var op types.Operation
	if err := decMode.Unmarshal(body, &op); err != nil {
		return types.Operation{}, decodeErr("operation", fmt.Errorf("%w: body: %v", ErrMalformedEnvelope, err))
	}
	if !h.hasLibrary || h.library != op.Library {
		return types.Operation{}, decodeErr("operation", fmt.Errorf("%w: library mismatch", ErrMalformedEnvelope))
	}
	return op, nil
}

// SigningBytes 操作签名覆盖的字节：去掉签名字段后的确定性 CBOR
func SigningBytes(op types.Operation) ([]byte, error) {
	b, err := encMode.Marshal(op.Unsigned())
	if err != nil {
		return nil, fmt.Errorf("%w: signing bytes: %v", ErrEncode, err)
	}
	return b, nil
}

// ============================================================================
//                              头部窥视
// ============================================================================

// Peek 只解析信封头，不解码消息体
//
// 接收端据此在解码前丢弃不属于本节点 library 的操作。
func Peek(raw []byte) (Kind, types.LibraryID, bool, error) {
	if len(raw) == 0 {
		return 0, types.NilLibraryID, false, decodeErr("header", ErrEmptyPayload)
	}
	h, err := parseEnvelope(raw)
	if err != nil {
		return 0, types.NilLibraryID, false, decodeErr("header", err)
	}
	return h.kind, h.library, h.hasLibrary, nil
}

// PeekRequestKind 返回请求信封的变体，非请求返回 ErrUnexpectedKind
func PeekRequestKind(raw []byte) (types.RequestKind, error) {
	if len(raw) == 0 {
		return 0, decodeErr("header", ErrEmptyPayload)
	}
	h, err := parseEnvelope(raw)
	if err != nil {
		return 0, decodeErr("header", err)
	}
	if h.kind != KindRequest {
		return 0, decodeErr("header", fmt.Errorf("%w: %s", ErrUnexpectedKind, h.kind))
	}
	return types.RequestKind(h.variant), nil
}

// ============================================================================
//                              内部
// ============================================================================

func (c *Codec) seal(h *header) ([]byte, error) {
	if c.opts.CompressThreshold > 0 && len(h.body) > c.opts.CompressThreshold {
		compressed := c.enc.EncodeAll(h.body, nil)
		if len(compressed) < len(h.body) {
			h.body = compressed
			h.flags |= flagZstd
		}
	}
	out := appendEnvelope(make([]byte, 0, len(h.body)+32), h)
	if len(out) > c.opts.MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(out))
	}
	return out, nil
}

func (c *Codec) open(op string, raw []byte, want Kind) (*header, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, decodeErr(op, ErrEmptyPayload)
	}
	if len(raw) > c.opts.MaxMessageSize {
		return nil, nil, decodeErr(op, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(raw)))
	}
	h, err := parseEnvelope(raw)
	if err != nil {
		return nil, nil, decodeErr(op, err)
	}
	if h.kind != want {
		return nil, nil, decodeErr(op, fmt.Errorf("%w: got %s", ErrUnexpectedKind, h.kind))
	}
	body := h.body
	if h.flags&flagZstd != 0 {
		body, err = c.dec.DecodeAll(h.body, nil)
		if err != nil {
			return nil, nil, decodeErr(op, fmt.Errorf("%w: zstd: %v", ErrMalformedEnvelope, err))
		}
		if len(body) > c.opts.MaxMessageSize {
			return nil, nil, decodeErr(op, ErrMessageTooLarge)
		}
	}
	return h, bytes.Clone(body), nil
}
