package config

import (
	"errors"
	"net"
	"time"
)

// TransportConfig QUIC 传输配置
type TransportConfig struct {
	// ListenAddrs UDP 监听地址，host:port
	ListenAddrs []string `json:"listen_addrs"`

	// HandshakeTimeout 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// IdleTimeout 空闲超时
	IdleTimeout Duration `json:"idle_timeout"`

	// KeepAlivePeriod QUIC keep-alive 间隔
	KeepAlivePeriod Duration `json:"keep_alive_period"`

	// MaxIncomingStreams 单连接最大并发入站流
	MaxIncomingStreams int64 `json:"max_incoming_streams"`
}

// DefaultTransportConfig 默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddrs:        []string{"0.0.0.0:0"},
		HandshakeTimeout:   Duration(10 * time.Second),
		IdleTimeout:        Duration(30 * time.Second),
		KeepAlivePeriod:    Duration(15 * time.Second),
		MaxIncomingStreams: 256,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if len(c.ListenAddrs) == 0 {
		return errors.New("at least one listen address required")
	}
	for _, addr := range c.ListenAddrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return err
		}
	}
	if c.HandshakeTimeout <= 0 || c.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.KeepAlivePeriod >= c.IdleTimeout {
		return errors.New("keep_alive_period must be shorter than idle_timeout")
	}
	if c.MaxIncomingStreams <= 0 {
		return errors.New("max_incoming_streams must be positive")
	}
	return nil
}
