package types

import (
	"crypto/sha256"
	"errors"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 节点唯一标识，由 Ed25519 公钥 SHA-256 派生
//
// 外部表示：
//   - String(): Base58 编码
//   - ShortString(): Base58 前 8 个字符，用于日志
type PeerID [32]byte

// EmptyPeerID 空节点ID
var EmptyPeerID PeerID

// ErrInvalidPeerID 无效的节点ID
var ErrInvalidPeerID = errors.New("invalid peer ID: must be 32 bytes Base58")

// PeerIDFromPublicKey 从公钥派生 PeerID
func PeerIDFromPublicKey(pub []byte) PeerID {
	return PeerID(sha256.Sum256(pub))
}

// PeerIDFromBytes 从 32 字节切片构造 PeerID
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != len(PeerID{}) {
		return EmptyPeerID, ErrInvalidPeerID
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// ParsePeerID 解析 Base58 字符串
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrInvalidPeerID
	}
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyPeerID, ErrInvalidPeerID
	}
	return PeerIDFromBytes(b)
}

// String 返回 Base58 表示
func (id PeerID) String() string {
	if id.IsEmpty() {
		return ""
	}
	return base58.Encode(id[:])
}

// ShortString 返回日志用短标识
func (id PeerID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回字节切片副本
func (id PeerID) Bytes() []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// IsEmpty 检查是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// MarshalText 实现 encoding.TextMarshaler，用于 JSON 配置
func (id PeerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (id *PeerID) UnmarshalText(text []byte) error {
	parsed, err := ParsePeerID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ============================================================================
//                              数据集 / 写入者 / 操作标识
// ============================================================================

// LibraryID 数据集（library）标识
type LibraryID = uuid.UUID

// ActorID 写入者标识，每个节点实例对每个 library 有一个 actor
type ActorID = uuid.UUID

// OperationID 操作唯一标识，接收端用于幂等去重
type OperationID = uuid.UUID

// NilLibraryID 空 library 标识
var NilLibraryID = uuid.Nil

// NewLibraryID 生成随机 LibraryID
func NewLibraryID() LibraryID { return uuid.New() }

// NewActorID 生成随机 ActorID
func NewActorID() ActorID { return uuid.New() }

// NewOperationID 生成新的 OperationID
//
// 使用 UUIDv7，ID 按生成时间近似有序，便于日志排查。
func NewOperationID() OperationID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ParseLibraryID 解析 library 标识
func ParseLibraryID(s string) (LibraryID, error) {
	return uuid.Parse(s)
}
