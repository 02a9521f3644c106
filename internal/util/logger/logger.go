// Package logger 提供 syncmesh 的分子系统日志
//
// 基于 log/slog，每个子系统独立级别：
//
//	var logger = logger.Logger("protocol/discovery")
//	logger.Info("发现节点", "peer", id.ShortString())
//
// 环境变量：
//
//	SYNCMESH_LOG_LEVEL=protocol/discovery=debug,info
//	SYNCMESH_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	loggers  sync.Map // subsystem -> *slog.Logger
	handlers sync.Map // subsystem -> *subsystemHandler
)

// Logger 返回子系统 Logger，同名多次调用返回同一实例
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	h := newHandler(subsystem, ConfigFromEnv())
	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// SetLevel 运行时调整单个子系统的级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).level.Set(level)
	}
}

// SetGlobalLevel 调整所有已创建子系统的级别，并作为后续子系统的默认级别
func SetGlobalLevel(level slog.Level) {
	ConfigFromEnv().DefaultLevel = level
	handlers.Range(func(_, v any) bool {
		v.(*subsystemHandler).level.Set(level)
		return true
	})
}

// Apply 按配置串调整级别，格式同 SYNCMESH_LOG_LEVEL
func Apply(spec string) {
	cfg := ConfigFromEnv()
	ParseLevels(cfg, spec)
	handlers.Range(func(k, v any) bool {
		v.(*subsystemHandler).level.Set(cfg.LevelFor(k.(string)))
		return true
	})
}

// SetOutput 切换全局输出，对已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// Discard 返回丢弃所有记录的 Logger，用于测试
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// TruncateID 截取 ID 前 maxLen 个字符用于日志
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}
