package wire

import "github.com/dep2p/go-syncmesh/config"

// Options 编解码选项
type Options struct {
	// CompressThreshold 消息体超过该大小时压缩，0 关闭压缩
	CompressThreshold int

	// MaxMessageSize 单条消息上限，同时限制解压后大小
	MaxMessageSize int
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	cfg := config.DefaultWireConfig()
	return Options{
		CompressThreshold: cfg.CompressThreshold,
		MaxMessageSize:    cfg.MaxMessageSize,
	}
}

// Option 选项函数
type Option func(*Options)

// WithCompressThreshold 设置压缩阈值
func WithCompressThreshold(n int) Option {
	return func(o *Options) {
		o.CompressThreshold = n
	}
}

// WithMaxMessageSize 设置消息上限
func WithMaxMessageSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxMessageSize = n
		}
	}
}

// FromConfig 从配置构造选项
func FromConfig(cfg config.WireConfig) []Option {
	return []Option{
		WithCompressThreshold(cfg.CompressThreshold),
		WithMaxMessageSize(cfg.MaxMessageSize),
	}
}
