package syncmesh

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("syncmesh: node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("syncmesh: node already started")

	// ErrNodeClosed 节点已关闭；停止后的节点不能再次启动
	ErrNodeClosed = errors.New("syncmesh: node closed")

	// ErrNoSyncTarget 未通过 WithSyncTarget 提供数据层
	ErrNoSyncTarget = errors.New("syncmesh: sync target is required")
)
