package quic

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("quic: transport closed")

	// ErrNotConnected 未与目标建立连接
	ErrNotConnected = errors.New("quic: not connected")

	// ErrNoAddress 目标没有可用地址
	ErrNoAddress = errors.New("quic: no dialable address")

	// ErrPeerIDMismatch 对端证书与期望的节点 ID 不一致
	ErrPeerIDMismatch = errors.New("quic: peer id mismatch")

	// ErrDialSelf 拨号自身
	ErrDialSelf = errors.New("quic: dial to self")

	// ErrInvalidCertificate 对端证书无效
	ErrInvalidCertificate = errors.New("quic: invalid peer certificate")

	// ErrWrongDirection 在单向流的不可用方向上读写
	ErrWrongDirection = errors.New("quic: wrong stream direction")
)
