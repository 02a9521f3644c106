package types

import "errors"

// ============================================================================
//                              通用错误
// ============================================================================

var (
	// ErrNotConnected 未连接
	ErrNotConnected = errors.New("not connected")

	// ErrUnknownLibrary 本节点未持有该 library
	ErrUnknownLibrary = errors.New("unknown library")
)

// ============================================================================
//                              密钥管理器错误
// ============================================================================

// KeyErrorKind 密钥管理器可能返回的错误类别
//
// 密钥的挂载/排队/解锁状态机属于外部协作者，这里只定义其错误面。
type KeyErrorKind int

const (
	KeyNotFound KeyErrorKind = iota + 1
	KeyAlreadyMounted
	KeyNotMounted
	KeyNotQueued
	KeyAlreadyQueued
	NoDefaultKeySet
	NotUnlocked
	NoVerificationKey
	KeyNotMemoryOnly
	IncorrectPassword
)

var keyErrorText = map[KeyErrorKind]string{
	KeyNotFound:       "key not found",
	KeyAlreadyMounted: "key is already mounted",
	KeyNotMounted:     "key is not mounted",
	KeyNotQueued:      "key is not queued",
	KeyAlreadyQueued:  "key is already queued",
	NoDefaultKeySet:   "no default key has been set",
	NotUnlocked:       "key manager is not unlocked",
	NoVerificationKey: "no verification key",
	KeyNotMemoryOnly:  "key is not memory-only",
	IncorrectPassword: "incorrect password",
}

// String 返回类别描述
func (k KeyErrorKind) String() string {
	if s, ok := keyErrorText[k]; ok {
		return s
	}
	return "unknown key error"
}

// KeyError 密钥管理器错误
type KeyError struct {
	Kind KeyErrorKind
	// KeyID 相关的密钥标识，可为空
	KeyID string
}

// Error 实现 error
func (e *KeyError) Error() string {
	if e.KeyID == "" {
		return "keymanager: " + e.Kind.String()
	}
	return "keymanager: " + e.Kind.String() + " (" + e.KeyID + ")"
}

// Is 按类别匹配，使 errors.Is(err, ErrKeyNotFound) 对带 KeyID 的错误同样成立
func (e *KeyError) Is(target error) bool {
	t, ok := target.(*KeyError)
	return ok && t.Kind == e.Kind
}

// 类别哨兵
var (
	ErrKeyNotFound       error = &KeyError{Kind: KeyNotFound}
	ErrKeyAlreadyMounted error = &KeyError{Kind: KeyAlreadyMounted}
	ErrKeyNotMounted     error = &KeyError{Kind: KeyNotMounted}
	ErrKeyNotQueued      error = &KeyError{Kind: KeyNotQueued}
	ErrKeyAlreadyQueued  error = &KeyError{Kind: KeyAlreadyQueued}
	ErrNoDefaultKeySet   error = &KeyError{Kind: NoDefaultKeySet}
	ErrNotUnlocked       error = &KeyError{Kind: NotUnlocked}
	ErrNoVerificationKey error = &KeyError{Kind: NoVerificationKey}
	ErrKeyNotMemoryOnly  error = &KeyError{Kind: KeyNotMemoryOnly}
	ErrIncorrectPassword error = &KeyError{Kind: IncorrectPassword}
)

// NewKeyError 构造带密钥标识的错误
func NewKeyError(kind KeyErrorKind, keyID string) error {
	return &KeyError{Kind: kind, KeyID: keyID}
}
