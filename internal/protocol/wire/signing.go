package wire

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var (
	// ErrUnsigned 操作未签名
	ErrUnsigned = errors.New("wire: operation is unsigned")

	// ErrBadSignature 签名无效
	ErrBadSignature = errors.New("wire: bad operation signature")
)

// SignOperation 以节点身份签名，写入 PublicKey 与 Signature
func SignOperation(id interfaces.Identity, op *types.Operation) error {
	msg, err := SigningBytes(*op)
	if err != nil {
		return err
	}
	sig, err := id.Sign(msg)
	if err != nil {
		return fmt.Errorf("wire: sign operation: %w", err)
	}
	op.PublicKey = append([]byte(nil), id.PublicKey()...)
	op.Signature = sig
	return nil
}

// VerifyOperation 校验操作签名，返回签名者
func VerifyOperation(op *types.Operation) (types.PeerID, error) {
	if !op.IsSigned() {
		return types.EmptyPeerID, ErrUnsigned
	}
	if len(op.PublicKey) != ed25519.PublicKeySize {
		return types.EmptyPeerID, fmt.Errorf("%w: public key is %d bytes", ErrBadSignature, len(op.PublicKey))
	}
	msg, err := SigningBytes(*op)
	if err != nil {
		return types.EmptyPeerID, err
	}
	if !ed25519.Verify(op.PublicKey, msg, op.Signature) {
		return types.EmptyPeerID, ErrBadSignature
	}
	return op.Signer(), nil
}
