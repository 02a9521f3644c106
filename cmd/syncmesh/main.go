// Package main 提供 syncmesh 命令行入口
//
// 启动一个节点并附带内存 library 存储，通过标准输入的交互命令读写数据。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dep2p/go-syncmesh"
	"github.com/dep2p/go-syncmesh/internal/library"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
)

var log = logger.Logger("syncmesh/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖（「这次运行」想怎么跑）
//   JSON 配置文件：持久化配置（「这个节点」的固定配置）
//
// ═══════════════════════════════════════════════════════════════════════════

type flags struct {
	configFile   string
	listen       []string
	identityFile string
	name         string
	peers        []string
	metricsAddr  string
	noMDNS       bool
	logLevel     string
	interactive  bool
	showVersion  bool
}

func parseFlags(args []string) (*flags, *pflag.FlagSet, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("syncmesh", pflag.ContinueOnError)
	fs.StringVarP(&f.configFile, "config", "c", "", "配置文件路径（JSON）")
	fs.StringSliceVarP(&f.listen, "listen", "l", nil, "监听地址，如 0.0.0.0:7350（可重复）")
	fs.StringVar(&f.identityFile, "identity", "", "身份密钥文件路径")
	fs.StringVar(&f.name, "name", "", "对外广告的节点名")
	fs.StringSliceVar(&f.peers, "peer", nil, "启动时拨号的节点，格式 <peer-id>@<host:port>（可重复）")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus /metrics 监听地址")
	fs.BoolVar(&f.noMDNS, "no-mdns", false, "禁用局域网 mDNS 发现")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别，格式同 SYNCMESH_LOG_LEVEL")
	fs.BoolVarP(&f.interactive, "interactive", "i", true, "从标准输入读取交互命令")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "显示版本信息")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, fs, err := parseFlags(args)
	if err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if f.showVersion {
		fmt.Println(syncmesh.VersionInfo())
		return nil
	}
	if f.logLevel != "" {
		logger.Apply(f.logLevel)
	}

	cfg, err := buildConfig(f, fs)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := library.New()
	log.Info("启动 syncmesh 节点", "version", syncmesh.Version, "commit", syncmesh.GitCommit)

	node, err := syncmesh.Start(ctx,
		syncmesh.WithConfig(cfg),
		syncmesh.WithSyncTarget(store),
		syncmesh.WithIngress(store.Ingress()),
	)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	fmt.Printf("📦 %s\n", syncmesh.VersionInfo())
	fmt.Printf("节点 ID: %s\n", node.ID())
	for _, addr := range node.ListenAddrs() {
		fmt.Printf("监听: %s\n", addr)
	}
	if cfg.Metrics.ListenAddr != "" {
		fmt.Printf("指标: http://%s/metrics\n", cfg.Metrics.ListenAddr)
	}

	if !f.interactive {
		fmt.Println("节点已启动，按 Ctrl+C 退出")
		<-ctx.Done()
		fmt.Println("\n正在关闭节点...")
		return nil
	}

	sh := newShell(store, node, os.Stdout)
	err = sh.Run(ctx, os.Stdin)
	fmt.Println("正在关闭节点...")
	return err
}
