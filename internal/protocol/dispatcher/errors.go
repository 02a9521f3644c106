package dispatcher

import "errors"

var (
	// ErrNilTarget 未提供 SyncTarget
	ErrNilTarget = errors.New("dispatcher: sync target is nil")

	// ErrNilCodec 未提供编解码器
	ErrNilCodec = errors.New("dispatcher: codec is nil")

	// ErrNoErrorVariant 处理失败且该请求没有错误应答变体
	ErrNoErrorVariant = errors.New("dispatcher: handler failed without error variant")

	// ErrHandlerPanic 处理器 panic
	ErrHandlerPanic = errors.New("dispatcher: handler panicked")

	// ErrMessageTooLarge 入站消息超过上限
	ErrMessageTooLarge = errors.New("dispatcher: message too large")

	// ErrForeignLibrary 操作属于本节点不持有的 library
	ErrForeignLibrary = errors.New("dispatcher: foreign library")

	// ErrSignerMismatch 签名者与发送者不一致
	ErrSignerMismatch = errors.New("dispatcher: signer is not sender")

	// ErrNotMember 签名者不是该 library 的成员
	ErrNotMember = errors.New("dispatcher: signer is not a library member")

	// ErrDuplicate 操作已处理过
	ErrDuplicate = errors.New("dispatcher: duplicate operation")

	// ErrUnexpectedBroadcast 广播流上出现不支持的消息
	ErrUnexpectedBroadcast = errors.New("dispatcher: unexpected broadcast message")

	// ErrStreamTerminated 对端未给出应答即终止了流
	ErrStreamTerminated = errors.New("dispatcher: stream terminated without response")
)
