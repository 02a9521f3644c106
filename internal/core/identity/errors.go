package identity

import "errors"

var (
	// ErrInvalidPEM 无效的 PEM 数据
	ErrInvalidPEM = errors.New("identity: invalid PEM data")

	// ErrInvalidKeySize 密钥长度错误
	ErrInvalidKeySize = errors.New("identity: invalid ed25519 key size")

	// ErrInvalidSignature 签名校验失败
	ErrInvalidSignature = errors.New("identity: invalid signature")
)
