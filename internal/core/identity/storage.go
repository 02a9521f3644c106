package identity

import (
	"crypto/ed25519"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("core/identity")

const pemTypePrivate = "ED25519 PRIVATE KEY"

// Save 以 PEM 格式原子写入私钥，权限 0600
func (i *Identity) Save(path string) error {
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: i.priv.Seed()})
	return atomicWriteFile(path, data, 0o600)
}

// Load 从 PEM 文件加载身份
//
// 文件不存在时返回 types.ErrKeyNotFound 类别的错误。
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewKeyError(types.KeyNotFound, path)
		}
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivate {
		return nil, ErrInvalidPEM
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return nil, ErrInvalidKeySize
	}
	return New(ed25519.NewKeyFromSeed(block.Bytes))
}

// FromConfig 按配置加载或创建身份
//
// 优先级：KeyFile 存在则加载；不存在且 AutoGenerate 则生成并保存；
// 未配置 KeyFile 时生成临时身份。
func FromConfig(cfg config.IdentityConfig) (*Identity, error) {
	if cfg.KeyFile == "" {
		return Generate()
	}

	id, err := Load(cfg.KeyFile)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, types.ErrKeyNotFound) || !cfg.AutoGenerate {
		return nil, err
	}

	id, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := id.Save(cfg.KeyFile); err != nil {
		// 保存失败不影响运行，下次启动将得到新身份
		log.Warn("保存身份失败", "path", cfg.KeyFile, "err", err)
	} else {
		log.Info("已生成新身份", "peer", id.PeerID().ShortString(), "path", cfg.KeyFile)
	}
	return id, nil
}

// atomicWriteFile 临时文件 + rename，失败时目标文件保持不变
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: 创建目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("identity: 创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: 写入临时文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: 同步临时文件失败: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: 设置权限失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: 关闭临时文件失败: %w", err)
	}
	return os.Rename(tmpPath, path)
}
