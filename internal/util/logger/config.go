package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format 日志输出格式
type Format int

const (
	// FormatText 文本格式（默认）
	FormatText Format = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量名
const (
	EnvLevel     = "SYNCMESH_LOG_LEVEL"
	EnvFormat    = "SYNCMESH_LOG_FORMAT"
	EnvAddSource = "SYNCMESH_LOG_ADD_SOURCE"
)

// Config 日志配置
type Config struct {
	// DefaultLevel 未单独配置的子系统使用的级别
	DefaultLevel slog.Level

	// SubsystemLevels 子系统级别覆盖
	SubsystemLevels map[string]slog.Level

	Format    Format
	AddSource bool
}

// LevelFor 返回子系统的生效级别
func (c *Config) LevelFor(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	// 支持前缀匹配: "protocol" 覆盖 "protocol/dispatcher"
	best, bestLen := c.DefaultLevel, -1
	for name, level := range c.SubsystemLevels {
		if strings.HasPrefix(subsystem, name+"/") && len(name) > bestLen {
			best, bestLen = level, len(name)
		}
	}
	return best
}

var (
	envConfig     *Config
	envConfigOnce sync.Once
)

// ConfigFromEnv 解析环境变量配置，结果缓存
//
//	SYNCMESH_LOG_LEVEL=protocol/discovery=debug,transport=warn,info
//	SYNCMESH_LOG_FORMAT=json
//	SYNCMESH_LOG_ADD_SOURCE=true
func ConfigFromEnv() *Config {
	envConfigOnce.Do(func() {
		envConfig = &Config{
			DefaultLevel:    slog.LevelInfo,
			SubsystemLevels: make(map[string]slog.Level),
		}
		ParseLevels(envConfig, os.Getenv(EnvLevel))
		if strings.EqualFold(os.Getenv(EnvFormat), "json") {
			envConfig.Format = FormatJSON
		}
		switch os.Getenv(EnvAddSource) {
		case "1", "true":
			envConfig.AddSource = true
		}
	})
	return envConfig
}

// ParseLevels 解析 "子系统=级别,...,默认级别" 形式的配置串并写入 cfg
//
// 无法识别的片段被忽略。
func ParseLevels(cfg *Config, spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, levelName, scoped := strings.Cut(part, "=")
		if !scoped {
			if level, ok := ParseLevel(part); ok {
				cfg.DefaultLevel = level
			}
			continue
		}
		if level, ok := ParseLevel(strings.TrimSpace(levelName)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(name)] = level
		}
	}
}

// ParseLevel 解析级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// resetConfig 仅用于测试
func resetConfig() {
	envConfigOnce = sync.Once{}
	envConfig = nil
}
