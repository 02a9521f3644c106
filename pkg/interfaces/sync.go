package interfaces

import (
	"context"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// RequestContext 请求路由上下文
type RequestContext struct {
	// From 已认证的请求方
	From types.PeerID

	// Library 请求针对的 library，未指定时为空
	Library types.LibraryID
}

// SyncTarget 应用数据层
//
// 持有实际数据；同步层只负责路由请求与投递操作。
type SyncTarget interface {
	// Handle 处理数据查询，返回的错误由分发器转换为错误应答或关闭流
	Handle(ctx context.Context, rc RequestContext, req types.Request) (types.Response, error)

	// ApplyOperation 应用远端操作，必须幂等
	ApplyOperation(ctx context.Context, from types.PeerID, op types.Operation) error

	// HasLibrary 本节点是否持有该 library
	HasLibrary(lib types.LibraryID) bool

	// Libraries 本节点持有的全部 library
	Libraries() []types.LibraryInfo
}
