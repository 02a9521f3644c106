package config

import "errors"

// NodeConfig 节点自身信息
type NodeConfig struct {
	// Name 对外广告的显示名，为空时使用主机名
	Name string `json:"name,omitempty"`

	// Version 对外广告的版本，为空时使用构建版本
	Version string `json:"version,omitempty"`
}

// DefaultNodeConfig 默认节点配置
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{}
}

// Validate 验证节点配置
func (c NodeConfig) Validate() error {
	if len(c.Name) > 255 {
		return errors.New("name exceeds 255 bytes")
	}
	return nil
}
