package interfaces

import "github.com/dep2p/go-syncmesh/pkg/types"

// MetadataProvider 元数据提供者
//
// 传输层每次应答发现查询时调用；实现不得缓存，也不得失败。
type MetadataProvider interface {
	Provide() types.PeerMetadata
}

// MetadataFunc 函数适配器
type MetadataFunc func() types.PeerMetadata

// Provide 实现 MetadataProvider
func (f MetadataFunc) Provide() types.PeerMetadata { return f() }
