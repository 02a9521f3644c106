package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPayload 空载荷（仅应答允许为空）
	ErrEmptyPayload = errors.New("wire: empty payload")

	// ErrMalformedEnvelope 信封格式错误
	ErrMalformedEnvelope = errors.New("wire: malformed envelope")

	// ErrUnsupportedVersion 不支持的信封版本
	ErrUnsupportedVersion = errors.New("wire: unsupported envelope version")

	// ErrUnknownKind 未知的值类型
	ErrUnknownKind = errors.New("wire: unknown kind")

	// ErrUnexpectedKind 值类型与期望不符
	ErrUnexpectedKind = errors.New("wire: unexpected kind")

	// ErrUnknownVariant 未知的请求/应答变体
	ErrUnknownVariant = errors.New("wire: unknown variant")

	// ErrMessageTooLarge 消息超过上限
	ErrMessageTooLarge = errors.New("wire: message too large")

	// ErrEncode 编码失败；对本地构造的合法值而言属于程序错误
	ErrEncode = errors.New("wire: encode failed")
)

// DecodeError 解码错误，携带失败的操作名
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(op string, err error) error {
	return &DecodeError{Op: op, Err: err}
}

// IsProtocolError 是否为对端造成的协议错误
func IsProtocolError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
