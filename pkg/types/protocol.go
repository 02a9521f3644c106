package types

import "fmt"

// ============================================================================
//                              Request
// ============================================================================

// RequestKind 请求变体
type RequestKind uint8

const (
	// RequestPing 存活探测，始终以 None 应答
	RequestPing RequestKind = iota + 1
	// RequestGetLibrary 查询单个 library 信息
	RequestGetLibrary
	// RequestListLibraries 列出对端持有的 library
	RequestListLibraries
	// RequestGetOperations 拉取 library 中 Since 或 After 之后的操作
	RequestGetOperations
)

// String 返回请求名称
func (k RequestKind) String() string {
	switch k {
	case RequestPing:
		return "ping"
	case RequestGetLibrary:
		return "get_library"
	case RequestListLibraries:
		return "list_libraries"
	case RequestGetOperations:
		return "get_operations"
	default:
		return fmt.Sprintf("request(%d)", uint8(k))
	}
}

// Valid 是否为已定义的变体
func (k RequestKind) Valid() bool {
	return k >= RequestPing && k <= RequestGetOperations
}

// HasErrorVariant 协议是否为该请求定义了错误应答
//
// Ping 没有错误应答，处理失败时直接关闭流。
func (k RequestKind) HasErrorVariant() bool {
	return k != RequestPing
}

// NeedsLibrary 请求是否必须携带 library
func (k RequestKind) NeedsLibrary() bool {
	return k == RequestGetLibrary || k == RequestGetOperations
}

// Request 一次性请求
type Request struct {
	Kind    RequestKind
	Library LibraryID
	Since   Timestamp
	// After 非零时取代 Since，按 (Timestamp, Actor, ID) 严格在其之后
	After Cursor
	Limit uint32
}

// PingRequest 构造 Ping
func PingRequest() Request {
	return Request{Kind: RequestPing}
}

// GetLibraryRequest 构造 GetLibrary
func GetLibraryRequest(lib LibraryID) Request {
	return Request{Kind: RequestGetLibrary, Library: lib}
}

// ListLibrariesRequest 构造 ListLibraries
func ListLibrariesRequest() Request {
	return Request{Kind: RequestListLibraries}
}

// GetOperationsRequest 构造 GetOperations
func GetOperationsRequest(lib LibraryID, since Timestamp, limit uint32) Request {
	return Request{Kind: RequestGetOperations, Library: lib, Since: since, Limit: limit}
}

// GetOperationsAfterRequest 构造按游标分页的 GetOperations
func GetOperationsAfterRequest(lib LibraryID, after Cursor, limit uint32) Request {
	return Request{Kind: RequestGetOperations, Library: lib, After: after, Limit: limit}
}

// ============================================================================
//                              Response
// ============================================================================

// ResponseKind 应答变体
type ResponseKind uint8

const (
	// ResponseNone 空应答，编码为零长度载荷
	ResponseNone ResponseKind = iota
	ResponseLibrary
	ResponseLibraries
	ResponseOperations
	ResponseError
)

// String 返回应答名称
func (k ResponseKind) String() string {
	switch k {
	case ResponseNone:
		return "none"
	case ResponseLibrary:
		return "library"
	case ResponseLibraries:
		return "libraries"
	case ResponseOperations:
		return "operations"
	case ResponseError:
		return "error"
	default:
		return fmt.Sprintf("response(%d)", uint8(k))
	}
}

// Valid 是否为已定义的变体
func (k ResponseKind) Valid() bool {
	return k <= ResponseError
}

// LibraryInfo library 摘要
type LibraryInfo struct {
	ID            LibraryID `cbor:"id"`
	Name          string    `cbor:"name"`
	Description   string    `cbor:"description,omitempty"`
	InstanceCount uint32    `cbor:"instances,omitempty"`
}

// ErrorCode 错误应答码
type ErrorCode uint16

const (
	ErrCodeInternal ErrorCode = iota + 1
	ErrCodeNotFound
	ErrCodeForbidden
	ErrCodeBadRequest
	ErrCodeUnavailable
)

// String 返回错误码名称
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInternal:
		return "internal"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeForbidden:
		return "forbidden"
	case ErrCodeBadRequest:
		return "bad_request"
	case ErrCodeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("code(%d)", uint16(c))
	}
}

// ErrorInfo 类型化错误应答
type ErrorInfo struct {
	Code    ErrorCode `cbor:"code"`
	Message string    `cbor:"message,omitempty"`
}

// Error 实现 error
func (e *ErrorInfo) Error() string {
	if e.Message == "" {
		return "remote: " + e.Code.String()
	}
	return "remote: " + e.Code.String() + ": " + e.Message
}

// Response 与 Request 一一对应的应答
type Response struct {
	Kind       ResponseKind
	Library    *LibraryInfo
	Libraries  []LibraryInfo
	Operations []Operation
	Error      *ErrorInfo
}

// NoneResponse 构造空应答
func NoneResponse() Response {
	return Response{Kind: ResponseNone}
}

// LibraryResponse 构造 Library 应答
func LibraryResponse(info LibraryInfo) Response {
	return Response{Kind: ResponseLibrary, Library: &info}
}

// LibrariesResponse 构造 Libraries 应答
func LibrariesResponse(infos []LibraryInfo) Response {
	return Response{Kind: ResponseLibraries, Libraries: infos}
}

// OperationsResponse 构造 Operations 应答
func OperationsResponse(ops []Operation) Response {
	return Response{Kind: ResponseOperations, Operations: ops}
}

// ErrorResponse 构造错误应答
func ErrorResponse(code ErrorCode, message string) Response {
	return Response{Kind: ResponseError, Error: &ErrorInfo{Code: code, Message: message}}
}

// Err 错误应答转为 error，其余返回 nil
func (r Response) Err() error {
	if r.Kind == ResponseError && r.Error != nil {
		return r.Error
	}
	return nil
}
