package liveness

import "errors"

var (
	// ErrNilSender 未提供发送端
	ErrNilSender = errors.New("liveness: sender is nil")

	// ErrNilCodec 未提供编解码器
	ErrNilCodec = errors.New("liveness: codec is nil")
)
