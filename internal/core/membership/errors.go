package membership

import "errors"

var (
	// ErrUnexpectedResponse 对端应答类型不符
	ErrUnexpectedResponse = errors.New("membership: unexpected response")
)
