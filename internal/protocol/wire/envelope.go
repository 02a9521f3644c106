package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Version 当前信封版本
const Version = 1

// Kind 信封承载的值类型
type Kind uint8

const (
	KindRequest Kind = iota + 1
	KindResponse
	KindOperation
)

// String 返回类型名称
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindOperation:
		return "operation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// 信封字段编号
const (
	fieldVersion protowire.Number = 1
	fieldKind    protowire.Number = 2
	fieldVariant protowire.Number = 3
	fieldLibrary protowire.Number = 4
	fieldBody    protowire.Number = 5
	fieldFlags   protowire.Number = 6
)

const flagZstd uint64 = 1 << 0

// header 信封头部
type header struct {
	version    uint64
	kind       Kind
	variant    uint64
	library    types.LibraryID
	hasLibrary bool
	flags      uint64
	body       []byte
}

func appendEnvelope(b []byte, h *header) []byte {
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.kind))
	if h.variant != 0 {
		b = protowire.AppendTag(b, fieldVariant, protowire.VarintType)
		b = protowire.AppendVarint(b, h.variant)
	}
	if h.hasLibrary {
		b = protowire.AppendTag(b, fieldLibrary, protowire.BytesType)
		b = protowire.AppendBytes(b, h.library[:])
	}
	if len(h.body) > 0 {
		b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
		b = protowire.AppendBytes(b, h.body)
	}
	if h.flags != 0 {
		b = protowire.AppendTag(b, fieldFlags, protowire.VarintType)
		b = protowire.AppendVarint(b, h.flags)
	}
	return b
}

// parseEnvelope 解析信封；未知字段跳过，body 引用 raw 内存
func parseEnvelope(raw []byte) (*header, error) {
	h := &header{}
	seenKind := false

	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		raw = raw[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldVersion || num == fieldKind || num == fieldVariant || num == fieldFlags):
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
			raw = raw[n:]
			switch num {
			case fieldVersion:
				h.version = v
			case fieldKind:
				if v > 0xff {
					return nil, fmt.Errorf("%w: %d", ErrUnknownKind, v)
				}
				h.kind = Kind(v)
				seenKind = true
			case fieldVariant:
				h.variant = v
			case fieldFlags:
				h.flags = v
			}

		case typ == protowire.BytesType && (num == fieldLibrary || num == fieldBody):
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
			raw = raw[n:]
			if num == fieldBody {
				h.body = v
				continue
			}
			if len(v) != len(h.library) {
				return nil, fmt.Errorf("%w: library id is %d bytes", ErrMalformedEnvelope, len(v))
			}
			copy(h.library[:], v)
			h.hasLibrary = true

		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}

	if h.version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.version)
	}
	if !seenKind {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformedEnvelope)
	}
	switch h.kind {
	case KindRequest, KindResponse, KindOperation:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, h.kind)
	}
	return h, nil
}
