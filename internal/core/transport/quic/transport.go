package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("transport/quic")

// 连接关闭使用的应用错误码
const (
	codeNormal    quic.ApplicationErrorCode = 0
	codeDuplicate quic.ApplicationErrorCode = 1
)

// Discoverer 节点发现源，由传输转为 PeerDiscovered 事件
type Discoverer interface {
	Start(ctx context.Context, listenAddrs []string) error
	Found() <-chan types.DiscoveredPeer
	Close() error
}

// Option 传输选项
type Option func(*Transport)

// WithDiscoverer 附加发现源
func WithDiscoverer(d Discoverer) Option {
	return func(t *Transport) {
		t.discoverer = d
	}
}

// Transport QUIC 传输
type Transport struct {
	id        *identity.Identity
	serverTLS *tls.Config
	clientTLS *tls.Config
	qconf     *quic.Config

	udpConn  *net.UDPConn
	qt       *quic.Transport
	listener *quic.Listener

	discoverer Discoverer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events    chan interfaces.Event
	emitMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once

	mu      sync.RWMutex
	conns   map[types.PeerID]*conn
	dialing map[types.PeerID]*dialCall
}

type dialCall struct {
	done chan struct{}
	err  error
}

var _ interfaces.PeerTransport = (*Transport)(nil)

// New 创建传输并开始监听 cfg.ListenAddrs[0]
func New(id *identity.Identity, cfg config.TransportConfig, opts ...Option) (*Transport, error) {
	serverTLS, clientTLS, err := newTLSConfigs(id)
	if err != nil {
		return nil, err
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddrs[0])
	if err != nil {
		return nil, fmt.Errorf("quic: resolve listen addr: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("quic: listen udp: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		id:        id,
		serverTLS: serverTLS,
		clientTLS: clientTLS,
		qconf: &quic.Config{
			HandshakeIdleTimeout:  cfg.HandshakeTimeout.Std(),
			MaxIdleTimeout:        cfg.IdleTimeout.Std(),
			KeepAlivePeriod:       cfg.KeepAlivePeriod.Std(),
			MaxIncomingStreams:    cfg.MaxIncomingStreams,
			MaxIncomingUniStreams: cfg.MaxIncomingStreams,
		},
		udpConn: udpConn,
		qt:      &quic.Transport{Conn: udpConn},
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan interfaces.Event, 1024),
		conns:   make(map[types.PeerID]*conn),
		dialing: make(map[types.PeerID]*dialCall),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.listener, err = t.qt.Listen(serverTLS, t.qconf)
	if err != nil {
		cancel()
		_ = udpConn.Close()
		return nil, fmt.Errorf("quic: listen: %w", err)
	}

	t.wg.Add(1)
	go t.acceptLoop()

	if t.discoverer != nil {
		if err := t.discoverer.Start(ctx, t.ListenAddrs()); err != nil {
			log.Warn("启动节点发现失败", "err", err)
		} else {
			t.wg.Add(1)
			go t.forwardDiscovered()
		}
	}

	log.Info("QUIC 传输已启动", "peer", id.PeerID().ShortString(), "addr", udpConn.LocalAddr().String())
	return t, nil
}

// LocalID 实现 PeerTransport
func (t *Transport) LocalID() types.PeerID { return t.id.PeerID() }

// ListenAddrs 实现 PeerTransport
func (t *Transport) ListenAddrs() []string {
	return []string{t.udpConn.LocalAddr().String()}
}

// Events 实现 PeerTransport
func (t *Transport) Events() <-chan interfaces.Event { return t.events }

// ============================================================================
//                              拨号
// ============================================================================

// Dial 实现 PeerTransport
//
// 已连接时直接返回；同一节点的并发拨号合并为一次。
func (t *Transport) Dial(ctx context.Context, peer types.DiscoveredPeer) error {
	if peer.ID == t.LocalID() {
		return ErrDialSelf
	}

	t.mu.Lock()
	if t.closedLocked() {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if _, ok := t.conns[peer.ID]; ok {
		t.mu.Unlock()
		return nil
	}
	if call, ok := t.dialing[peer.ID]; ok {
		t.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &dialCall{done: make(chan struct{})}
	t.dialing[peer.ID] = call
	t.mu.Unlock()

	call.err = t.dial(ctx, peer)

	t.mu.Lock()
	delete(t.dialing, peer.ID)
	t.mu.Unlock()
	close(call.done)
	return call.err
}

func (t *Transport) dial(ctx context.Context, peer types.DiscoveredPeer) error {
	if len(peer.Addrs) == 0 {
		return ErrNoAddress
	}

	var errs error
	for _, addr := range peer.Addrs {
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		qc, err := t.qt.Dial(ctx, raddr, t.clientTLS, t.qconf)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		remote, err := remotePeerID(qc.ConnectionState().TLS)
		if err != nil {
			_ = qc.CloseWithError(codeNormal, "bad certificate")
			return err
		}
		if remote != peer.ID {
			_ = qc.CloseWithError(codeNormal, "unexpected peer")
			return fmt.Errorf("%w: want %s got %s", ErrPeerIDMismatch, peer.ID.ShortString(), remote.ShortString())
		}
		t.adopt(&conn{qc: qc, remote: remote, outbound: true})
		return nil
	}
	return errs
}

// ============================================================================
//                              入站
// ============================================================================

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		qc, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() == nil {
				log.Warn("接受连接失败", "err", err)
			}
			return
		}
		remote, err := remotePeerID(qc.ConnectionState().TLS)
		if err != nil {
			log.Debug("拒绝入站连接", "err", err)
			_ = qc.CloseWithError(codeNormal, "bad certificate")
			continue
		}
		t.adopt(&conn{qc: qc, remote: remote})
	}
}

// adopt 登记连接并开始接收流；重复连接按固定规则二选一
func (t *Transport) adopt(c *conn) {
	local := t.LocalID()

	t.mu.Lock()
	if t.closedLocked() {
		t.mu.Unlock()
		_ = c.qc.CloseWithError(codeNormal, "closing")
		return
	}
	existing, dup := t.conns[c.remote]
	if dup && !c.preferOver(existing, local) {
		t.mu.Unlock()
		_ = c.qc.CloseWithError(codeDuplicate, "duplicate")
		return
	}
	t.conns[c.remote] = c
	t.mu.Unlock()

	if dup {
		_ = existing.qc.CloseWithError(codeDuplicate, "duplicate")
	} else {
		log.Debug("连接建立", "remote", c.remote.ShortString(), "outbound", c.outbound)
		t.emit(interfaces.PeerConnected{ID: c.remote})
	}

	t.wg.Add(2)
	go t.acceptStreams(c)
	go t.acceptUniStreams(c)
}

func (t *Transport) acceptStreams(c *conn) {
	defer t.wg.Done()
	for {
		qs, err := c.qc.AcceptStream(t.ctx)
		if err != nil {
			t.drop(c)
			return
		}
		t.emit(interfaces.PeerMessage{From: c.remote, Stream: &bidiStream{qs: qs, peer: c.remote}})
	}
}

func (t *Transport) acceptUniStreams(c *conn) {
	defer t.wg.Done()
	for {
		qs, err := c.qc.AcceptUniStream(t.ctx)
		if err != nil {
			t.drop(c)
			return
		}
		t.emit(interfaces.PeerMessage{From: c.remote, Stream: &recvStream{qs: qs, peer: c.remote}})
	}
}

// drop 连接失效后移除；被替换的旧连接不产生断开事件
func (t *Transport) drop(c *conn) {
	t.mu.Lock()
	current, ok := t.conns[c.remote]
	if !ok || current != c {
		t.mu.Unlock()
		return
	}
	delete(t.conns, c.remote)
	t.mu.Unlock()

	log.Debug("连接断开", "remote", c.remote.ShortString())
	t.emit(interfaces.PeerDisconnected{ID: c.remote})
}

func (t *Transport) forwardDiscovered() {
	defer t.wg.Done()
	found := t.discoverer.Found()
	for {
		select {
		case <-t.ctx.Done():
			return
		case peer := <-found:
			t.emit(interfaces.PeerDiscovered{Peer: peer})
		}
	}
}

// ============================================================================
//                              发送
// ============================================================================

// Broadcast 实现 PeerTransport
func (t *Transport) Broadcast(ctx context.Context, data []byte) map[types.PeerID]error {
	return t.Multicast(ctx, t.ConnectedPeers(), data)
}

// Multicast 实现 PeerTransport；各节点并行投递
func (t *Transport) Multicast(ctx context.Context, peers []types.PeerID, data []byte) map[types.PeerID]error {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = make(map[types.PeerID]error)
	)
	for _, p := range peers {
		wg.Add(1)
		go func(p types.PeerID) {
			defer wg.Done()
			if err := t.send(ctx, p, data); err != nil {
				mu.Lock()
				failed[p] = err
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	return failed
}

func (t *Transport) send(ctx context.Context, peer types.PeerID, data []byte) error {
	c, err := t.lookup(peer)
	if err != nil {
		return err
	}
	qs, err := c.qc.OpenUniStreamSync(ctx)
	if err != nil {
		return err
	}
	s := &sendStream{qs: qs, peer: peer}
	if _, err := s.Write(data); err != nil {
		_ = s.Reset()
		return err
	}
	return s.CloseWrite()
}

// OpenUnicast 实现 PeerTransport
func (t *Transport) OpenUnicast(ctx context.Context, peer types.PeerID) (interfaces.Stream, error) {
	c, err := t.lookup(peer)
	if err != nil {
		return nil, err
	}
	qs, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &bidiStream{qs: qs, peer: peer}, nil
}

func (t *Transport) lookup(peer types.PeerID) (*conn, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closedLocked() {
		return nil, ErrTransportClosed
	}
	c, ok := t.conns[peer]
	if !ok {
		return nil, ErrNotConnected
	}
	return c, nil
}

// ConnectedPeers 实现 PeerTransport，按 ID 排序
func (t *Transport) ConnectedPeers() []types.PeerID {
	t.mu.RLock()
	out := make([]types.PeerID, 0, len(t.conns))
	for p := range t.conns {
		out = append(out, p)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 实现 PeerTransport
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		t.emitMu.Lock()
		t.closed = true
		t.emitMu.Unlock()

		if t.discoverer != nil {
			err = multierr.Append(err, t.discoverer.Close())
		}

		t.mu.Lock()
		conns := make([]*conn, 0, len(t.conns))
		for _, c := range t.conns {
			conns = append(conns, c)
		}
		t.conns = make(map[types.PeerID]*conn)
		t.mu.Unlock()
		for _, c := range conns {
			_ = c.qc.CloseWithError(codeNormal, "closing")
		}

		err = multierr.Append(err, t.listener.Close())
		err = multierr.Append(err, t.qt.Close())
		if cerr := t.udpConn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		t.wg.Wait()

		t.emitMu.Lock()
		close(t.events)
		t.emitMu.Unlock()
		log.Info("QUIC 传输已关闭", "peer", t.LocalID().ShortString())
	})
	return err
}

func (t *Transport) closedLocked() bool {
	return t.ctx.Err() != nil
}

// emit 投递事件；关闭后丢弃
func (t *Transport) emit(ev interfaces.Event) {
	t.emitMu.RLock()
	defer t.emitMu.RUnlock()
	if t.closed {
		if msg, ok := ev.(interfaces.PeerMessage); ok {
			_ = msg.Stream.Reset()
		}
		return
	}
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
		if msg, ok := ev.(interfaces.PeerMessage); ok {
			_ = msg.Stream.Reset()
		}
	}
}
