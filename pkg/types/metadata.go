package types

import (
	"errors"
	"runtime"
	"strings"
)

// ============================================================================
//                              OperatingSystem
// ============================================================================

// OperatingSystem 节点操作系统
//
// 已知系统使用固定名称，其他系统保留原始名称。
type OperatingSystem string

const (
	OSWindows OperatingSystem = "Windows"
	OSLinux   OperatingSystem = "Linux"
	OSMacOS   OperatingSystem = "MacOS"
	OSiOS     OperatingSystem = "iOS"
	OSAndroid OperatingSystem = "Android"
)

// CurrentOS 返回当前进程运行的操作系统
func CurrentOS() OperatingSystem {
	return OSFromGOOS(runtime.GOOS)
}

// OSFromGOOS 将 GOOS 映射为 OperatingSystem
func OSFromGOOS(goos string) OperatingSystem {
	switch goos {
	case "windows":
		return OSWindows
	case "linux":
		return OSLinux
	case "darwin":
		return OSMacOS
	case "ios":
		return OSiOS
	case "android":
		return OSAndroid
	default:
		return OperatingSystem("Other(" + goos + ")")
	}
}

// IsOther 是否为未知系统
func (o OperatingSystem) IsOther() bool {
	return strings.HasPrefix(string(o), "Other(")
}

// ============================================================================
//                              PeerMetadata
// ============================================================================

// TXT 记录键
const (
	MetadataKeyName    = "name"
	MetadataKeyOS      = "os"
	MetadataKeyVersion = "version"
)

// ErrMetadataMissingName TXT 记录缺少 name
var ErrMetadataMissingName = errors.New("metadata: missing name")

// PeerMetadata 发现阶段对外广告的节点元数据
//
// 每次被请求时重新生成，始终反映当前配置。
type PeerMetadata struct {
	Name    string           `json:"name" cbor:"name"`
	OS      *OperatingSystem `json:"os,omitempty" cbor:"os,omitempty"`
	Version *string          `json:"version,omitempty" cbor:"version,omitempty"`
}

// ToTXT 编码为 DNS TXT 键值对
func (m PeerMetadata) ToTXT() map[string]string {
	txt := map[string]string{MetadataKeyName: m.Name}
	if m.OS != nil {
		txt[MetadataKeyOS] = string(*m.OS)
	}
	if m.Version != nil {
		txt[MetadataKeyVersion] = *m.Version
	}
	return txt
}

// MetadataFromTXT 从 DNS TXT 键值对解码
//
// name 必须存在，其余字段可选。
func MetadataFromTXT(txt map[string]string) (PeerMetadata, error) {
	name, ok := txt[MetadataKeyName]
	if !ok {
		return PeerMetadata{}, ErrMetadataMissingName
	}
	m := PeerMetadata{Name: name}
	if v, ok := txt[MetadataKeyOS]; ok && v != "" {
		os := OperatingSystem(v)
		m.OS = &os
	}
	if v, ok := txt[MetadataKeyVersion]; ok && v != "" {
		version := v
		m.Version = &version
	}
	return m, nil
}

// String 返回可读表示
func (m PeerMetadata) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.OS != nil {
		b.WriteString(" (")
		b.WriteString(string(*m.OS))
		b.WriteString(")")
	}
	if m.Version != nil {
		b.WriteString(" v")
		b.WriteString(*m.Version)
	}
	return b.String()
}
