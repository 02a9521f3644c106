package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量（优先级低于命令行参数，高于配置文件）
const (
	envName        = "SYNCMESH_NAME"
	envIdentity    = "SYNCMESH_IDENTITY_KEY_FILE"
	envMetricsAddr = "SYNCMESH_METRICS_ADDR"
)

// buildConfig 合并配置
//
// 优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
func buildConfig(f *flags, fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if fs.Changed("listen") {
		cfg.Transport.ListenAddrs = f.listen
	}
	if fs.Changed("identity") {
		cfg.Identity.KeyFile = f.identityFile
	}
	if fs.Changed("name") {
		cfg.Node.Name = f.name
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = f.metricsAddr
	}
	if f.noMDNS {
		cfg.Discovery.EnableMDNS = false
	}
	for _, s := range f.peers {
		kp, err := parseKnownPeer(s)
		if err != nil {
			return nil, err
		}
		cfg.Discovery.KnownPeers = append(cfg.Discovery.KnownPeers, kp)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envName); v != "" {
		cfg.Node.Name = v
	}
	if v := os.Getenv(envIdentity); v != "" {
		cfg.Identity.KeyFile = v
	}
	if v := os.Getenv(envMetricsAddr); v != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = v
	}
}

// parseKnownPeer 解析 <peer-id>@<host:port>[,<host:port>...]
func parseKnownPeer(s string) (config.KnownPeer, error) {
	id, addrs, ok := strings.Cut(s, "@")
	if !ok || addrs == "" {
		return config.KnownPeer{}, fmt.Errorf("invalid peer %q: want <peer-id>@<host:port>", s)
	}
	if _, err := types.ParsePeerID(id); err != nil {
		return config.KnownPeer{}, fmt.Errorf("invalid peer %q: %w", s, err)
	}
	return config.KnownPeer{PeerID: id, Addrs: strings.Split(addrs, ",")}, nil
}
