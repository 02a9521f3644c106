package memory

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("memory: transport closed")

	// ErrUnreachable 目标不在网络中或已关闭
	ErrUnreachable = errors.New("memory: peer unreachable")

	// ErrNotConnected 未与目标建立连接
	ErrNotConnected = errors.New("memory: not connected")

	// ErrDialSelf 拨号自身
	ErrDialSelf = errors.New("memory: dial to self")

	// ErrDeliveryFailed 注入的投递失败
	ErrDeliveryFailed = errors.New("memory: delivery failed")

	// ErrStreamReset 流被对端重置
	ErrStreamReset = errors.New("memory: stream reset")

	// ErrStreamClosed 流已关闭
	ErrStreamClosed = errors.New("memory: stream closed")
)
