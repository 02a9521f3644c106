package interfaces

import "github.com/dep2p/go-syncmesh/pkg/types"

// Identity 节点身份
type Identity interface {
	// PeerID 由公钥派生的节点标识
	PeerID() types.PeerID

	// PublicKey Ed25519 公钥原始字节
	PublicKey() []byte

	// Sign 对数据签名
	Sign(data []byte) ([]byte, error)
}
