// Package identity 管理节点的 Ed25519 身份
//
//   - PeerID = SHA-256(公钥)
//   - 对操作签名、校验他人签名
//   - PEM 文件持久化
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Identity 节点身份
type Identity struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	peerID types.PeerID
}

var _ interfaces.Identity = (*Identity)(nil)

// New 从私钥创建身份
func New(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		priv:   priv,
		pub:    pub,
		peerID: types.PeerIDFromPublicKey(pub),
	}, nil
}

// Generate 生成新的随机身份
func Generate() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return New(priv)
}

// PeerID 节点标识
func (i *Identity) PeerID() types.PeerID {
	return i.peerID
}

// PublicKey 公钥原始字节
func (i *Identity) PublicKey() []byte {
	return i.pub
}

// PrivateKey 私钥，供 TLS 证书生成使用
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.priv
}

// Sign 签名
func (i *Identity) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(i.priv, data), nil
}

// Verify 使用给定公钥校验签名
func Verify(pub, data, sig []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return ErrInvalidKeySize
	}
	if !ed25519.Verify(pub, data, sig) {
		return ErrInvalidSignature
	}
	return nil
}
