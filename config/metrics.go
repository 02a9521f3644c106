package config

import (
	"net"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enable bool `json:"enable"`

	// ListenAddr /metrics 监听地址，为空时不对外暴露
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enable: true}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.ListenAddr == "" {
		return nil
	}
	_, _, err := net.SplitHostPort(c.ListenAddr)
	return err
}
