package types

import (
	"bytes"
	"errors"
	"fmt"
)

// ============================================================================
//                              Operation - CRDT 变更
// ============================================================================

// OpKind 操作类型
type OpKind uint8

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
)

// String 返回操作类型名称
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("opkind(%d)", uint8(k))
	}
}

// Valid 是否为已定义的类型
func (k OpKind) Valid() bool {
	return k >= OpCreate && k <= OpDelete
}

var (
	// ErrInvalidOperation 操作字段不完整
	ErrInvalidOperation = errors.New("invalid operation")
)

// Operation 一条带因果元数据的 CRDT 变更记录
//
// (ID) 保证接收端幂等，(Timestamp, Actor) 决定同一字段上的合并顺序。
// 创建后视为不可变值；PublicKey/Signature 由发送节点在广播前填写。
type Operation struct {
	ID        OperationID `cbor:"id"`
	Library   LibraryID   `cbor:"library"`
	Actor     ActorID     `cbor:"actor"`
	Timestamp Timestamp   `cbor:"ts"`
	Model     string      `cbor:"model"`
	Record    []byte      `cbor:"record"`
	Kind      OpKind      `cbor:"kind"`
	Field     string      `cbor:"field,omitempty"`
	Value     []byte      `cbor:"value,omitempty"`

	PublicKey []byte `cbor:"pk,omitempty"`
	Signature []byte `cbor:"sig,omitempty"`
}

// Validate 检查必填字段
func (op *Operation) Validate() error {
	switch {
	case op.ID == OperationID{}:
		return fmt.Errorf("%w: missing id", ErrInvalidOperation)
	case op.Library == NilLibraryID:
		return fmt.Errorf("%w: missing library", ErrInvalidOperation)
	case op.Model == "":
		return fmt.Errorf("%w: missing model", ErrInvalidOperation)
	case !op.Kind.Valid():
		return fmt.Errorf("%w: kind %s", ErrInvalidOperation, op.Kind)
	}
	return nil
}

// Unsigned 返回去掉签名字段的副本，签名覆盖的就是这份内容
func (op Operation) Unsigned() Operation {
	op.PublicKey = nil
	op.Signature = nil
	return op
}

// IsSigned 是否携带签名
func (op *Operation) IsSigned() bool {
	return len(op.PublicKey) > 0 && len(op.Signature) > 0
}

// Signer 签名者节点ID，未签名时为空
func (op *Operation) Signer() PeerID {
	if len(op.PublicKey) == 0 {
		return EmptyPeerID
	}
	return PeerIDFromPublicKey(op.PublicKey)
}

// Cursor 操作在日志中的位置
func (op *Operation) Cursor() Cursor {
	return Cursor{Timestamp: op.Timestamp, Actor: op.Actor, ID: op.ID}
}

// Cursor 日志位置，(Timestamp, Actor, ID) 构成全序，零值位于所有操作之前
type Cursor struct {
	Timestamp Timestamp   `cbor:"ts"`
	Actor     ActorID     `cbor:"actor"`
	ID        OperationID `cbor:"id"`
}

// IsZero 是否为起点
func (c Cursor) IsZero() bool {
	return c == Cursor{}
}

// Less c 是否排在 o 之前
func (c Cursor) Less(o Cursor) bool {
	if c.Timestamp != o.Timestamp {
		return c.Timestamp < o.Timestamp
	}
	if n := bytes.Compare(c.Actor[:], o.Actor[:]); n != 0 {
		return n < 0
	}
	return bytes.Compare(c.ID[:], o.ID[:]) < 0
}

// Ingress 数据层投递给广播器的 (library, operation) 对
type Ingress struct {
	Library LibraryID
	Op      Operation
}
