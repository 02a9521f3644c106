package mdns

import "errors"

var (
	// ErrPortUnknown 监听端口尚未确定
	ErrPortUnknown = errors.New("mdns: port unknown")

	// ErrNoLocalIP 没有可用于广播的本地地址
	ErrNoLocalIP = errors.New("mdns: no local ip")

	// ErrMissingID TXT 记录缺少 id
	ErrMissingID = errors.New("mdns: missing id")
)
