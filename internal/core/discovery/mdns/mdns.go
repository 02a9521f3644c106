package mdns

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/miekg/dns"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("discovery/mdns")

// ============================================================================
//                              配置
// ============================================================================

// Config mDNS 发现器配置
type Config struct {
	// Service 服务名，如 _syncmesh._udp
	Service string

	// Domain 域，必须以点结尾
	Domain string

	// QueryInterval 查询间隔
	QueryInterval time.Duration

	// QueryTimeout 单次查询等待应答的时间
	QueryTimeout time.Duration

	// Interface 指定网卡，空表示系统默认
	Interface string
}

// ConfigFrom 从节点配置构建
func ConfigFrom(c config.MDNSConfig) Config {
	return Config{
		Service:       c.ServiceName,
		Domain:        c.Domain,
		QueryInterval: c.QueryInterval.Std(),
		QueryTimeout:  c.QueryTimeout.Std(),
	}
}

// ============================================================================
//                              动态 Zone
// ============================================================================

// dynamicZone 每次应答查询时重新生成服务记录
type dynamicZone struct {
	instance string
	service  string
	domain   string
	port     int
	ips      []net.IP
	txt      func() []string
}

var _ mdns.Zone = (*dynamicZone)(nil)

// Records 实现 mdns.Zone
func (z *dynamicZone) Records(q dns.Question) []dns.RR {
	svc, err := mdns.NewMDNSService(z.instance, z.service, z.domain, "", z.port, z.ips, z.txt())
	if err != nil {
		log.Debug("生成 mDNS 记录失败", "err", err)
		return nil
	}
	return svc.Records(q)
}

// ============================================================================
//                              发现器
// ============================================================================

// Discoverer mDNS 发现器，同时负责广播与查询
type Discoverer struct {
	cfg      Config
	localID  types.PeerID
	metadata interfaces.MetadataProvider

	found chan types.DiscoveredPeer

	mu      sync.Mutex
	server  *mdns.Server
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建发现器
func New(cfg Config, localID types.PeerID, metadata interfaces.MetadataProvider) *Discoverer {
	return &Discoverer{
		cfg:      cfg,
		localID:  localID,
		metadata: metadata,
		found:    make(chan types.DiscoveredPeer, 64),
	}
}

// Found 发现结果；同一节点每次应答都会产生一条
func (d *Discoverer) Found() <-chan types.DiscoveredPeer {
	return d.found
}

// Start 开始广播 listenAddrs 并周期查询
//
// 广播失败时仍以纯查询模式运行。
func (d *Discoverer) Start(ctx context.Context, listenAddrs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	serverMode := true
	if err := d.startServer(listenAddrs); err != nil {
		serverMode = false
		log.Warn("启动 mDNS 服务失败，仅作为客户端运行", "err", err)
	}

	d.wg.Add(1)
	go d.queryLoop(ctx)

	d.running = true
	log.Info("mDNS 发现器已启动",
		"service", d.cfg.Service,
		"server_mode", serverMode)
	return nil
}

// Close 停止广播与查询
func (d *Discoverer) Close() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.cancel()
	server := d.server
	d.server = nil
	d.mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown()
	}
	d.wg.Wait()
	log.Info("mDNS 发现器已停止")
	return err
}

func (d *Discoverer) startServer(listenAddrs []string) error {
	port := inferPort(listenAddrs)
	if port == 0 {
		return ErrPortUnknown
	}
	ips := localIPs(d.iface())
	if len(ips) == 0 {
		return ErrNoLocalIP
	}
	advertised := advertisedAddrs(listenAddrs, ips)

	zone := &dynamicZone{
		instance: d.localID.ShortString(),
		service:  d.cfg.Service,
		domain:   d.cfg.Domain,
		port:     port,
		ips:      ips,
		txt: func() []string {
			var md types.PeerMetadata
			if d.metadata != nil {
				md = d.metadata.Provide()
			}
			return buildTXT(d.localID, advertised, md)
		},
	}
	if _, err := mdns.NewMDNSService(zone.instance, zone.service, zone.domain, "", port, ips, zone.txt()); err != nil {
		return fmt.Errorf("mdns: service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: zone, Iface: d.iface()})
	if err != nil {
		return fmt.Errorf("mdns: server: %w", err)
	}
	d.server = server
	log.Debug("mDNS 服务已注册", "instance", zone.instance, "port", port, "addrs", advertised)
	return nil
}

func (d *Discoverer) iface() *net.Interface {
	if d.cfg.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(d.cfg.Interface)
	if err != nil {
		log.Warn("找不到指定网卡", "interface", d.cfg.Interface, "err", err)
		return nil
	}
	return iface
}

// ============================================================================
//                              查询
// ============================================================================

func (d *Discoverer) queryLoop(ctx context.Context) {
	defer d.wg.Done()

	d.runQuery(ctx)

	ticker := time.NewTicker(d.cfg.QueryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runQuery(ctx)
		}
	}
}

func (d *Discoverer) runQuery(ctx context.Context) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := &mdns.QueryParam{
		Service:             d.cfg.Service,
		Domain:              d.cfg.Domain,
		Timeout:             d.cfg.QueryTimeout,
		Interface:           d.iface(),
		Entries:             entries,
		WantUnicastResponse: true,
		DisableIPv6:         true,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			d.handleEntry(ctx, entry)
		}
	}()

	if err := mdns.Query(params); err != nil {
		log.Debug("mDNS 查询失败", "err", err)
	}
	close(entries)
	<-done
}

func (d *Discoverer) handleEntry(ctx context.Context, entry *mdns.ServiceEntry) {
	if entry == nil {
		return
	}
	peer, err := parseTXT(entry.InfoFields)
	if err != nil {
		log.Debug("忽略无效 mDNS 条目", "name", entry.Name, "err", err)
		return
	}
	if peer.ID == d.localID {
		return
	}
	if len(peer.Addrs) == 0 && entry.AddrV4 != nil && entry.Port > 0 {
		peer.Addrs = []string{net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port))}
	}
	if len(peer.Addrs) == 0 {
		return
	}

	select {
	case d.found <- peer:
		log.Debug("mDNS 发现节点", "peer", peer.ID.ShortString(), "name", peer.Metadata.Name)
	case <-ctx.Done():
	}
}

// ============================================================================
//                              地址工具
// ============================================================================

// inferPort 取第一个带有效端口的地址
func inferPort(addrs []string) int {
	for _, a := range addrs {
		_, p, err := net.SplitHostPort(a)
		if err != nil {
			continue
		}
		if port, err := strconv.Atoi(p); err == nil && port > 0 {
			return port
		}
	}
	return 0
}

// advertisedAddrs 将未指定地址展开为本机 IP
func advertisedAddrs(listen []string, ips []net.IP) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(a string) {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	for _, a := range listen {
		host, port, err := net.SplitHostPort(a)
		if err != nil {
			continue
		}
		ip := net.ParseIP(host)
		if ip != nil && !ip.IsUnspecified() {
			add(a)
			continue
		}
		for _, local := range ips {
			add(net.JoinHostPort(local.String(), port))
		}
	}
	return out
}

// localIPs 本机可广播的 IPv4 地址，没有则回退到回环地址
func localIPs(iface *net.Interface) []net.IP {
	var addrs []net.Addr
	var err error
	if iface != nil {
		addrs, err = iface.Addrs()
	} else {
		addrs, err = net.InterfaceAddrs()
	}
	if err != nil {
		return []net.IP{net.IPv4(127, 0, 0, 1)}
	}

	var ips []net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		ips = append(ips, ip)
	}
	if len(ips) == 0 {
		ips = append(ips, net.IPv4(127, 0, 0, 1))
	}
	return ips
}
