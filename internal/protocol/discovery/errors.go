package discovery

import "errors"

var (
	// ErrNilDialer 未提供拨号器
	ErrNilDialer = errors.New("discovery: dialer is nil")
)
