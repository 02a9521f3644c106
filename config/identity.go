package config

// IdentityConfig 身份配置
//
// 仅支持 Ed25519；KeyFile 为空时在内存中生成临时密钥。
type IdentityConfig struct {
	// KeyFile PEM 私钥文件路径
	KeyFile string `json:"key_file,omitempty"`

	// AutoGenerate 密钥文件不存在时自动生成并保存
	AutoGenerate bool `json:"auto_generate"`
}

// DefaultIdentityConfig 默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{AutoGenerate: true}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	return nil
}
