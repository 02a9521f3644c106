package library

import "errors"

var (
	// ErrLibraryExists library 已存在
	ErrLibraryExists = errors.New("library: already exists")

	// ErrUnsupportedRequest 不支持的请求
	ErrUnsupportedRequest = errors.New("library: unsupported request")

	// ErrUnexpectedResponse 追赶时对端应答类型不符
	ErrUnexpectedResponse = errors.New("library: unexpected response")
)
