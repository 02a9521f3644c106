package quic

import (
	"bytes"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// conn 一条已认证的 QUIC 连接
type conn struct {
	qc       quic.Connection
	remote   types.PeerID
	outbound bool
}

// dialer 发起该连接的一方
func (c *conn) dialer(local types.PeerID) types.PeerID {
	if c.outbound {
		return local
	}
	return c.remote
}

// preferOver 两条连接指向同一节点时保留哪一条
//
// 规则对双方对称：保留由 ID 较小的一方发起的连接。
func (c *conn) preferOver(other *conn, local types.PeerID) bool {
	return bytes.Compare(c.dialer(local).Bytes(), other.dialer(local).Bytes()) < 0
}
