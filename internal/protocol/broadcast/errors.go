package broadcast

import "errors"

var (
	// ErrNilSender 未提供发送端
	ErrNilSender = errors.New("broadcast: sender is nil")

	// ErrNilCodec 未提供编解码器
	ErrNilCodec = errors.New("broadcast: codec is nil")

	// ErrQueueFull 出站队列已满
	ErrQueueFull = errors.New("broadcast: queue full")

	// ErrLibraryMismatch 操作所属 library 与入队时指定的不一致
	ErrLibraryMismatch = errors.New("broadcast: operation library mismatch")

	// ErrInvariant 本地构造的合法操作编码失败
	ErrInvariant = errors.New("broadcast: invariant violation")
)
