package memory

import (
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// stream 内存流的一端
type stream struct {
	peer types.PeerID
	kind types.StreamKind
	in   *pipe
	out  *pipe
}

var _ interfaces.Stream = (*stream)(nil)

// newStreamPair 创建一对互连的流；local 的对端是 remote，反之亦然
func newStreamPair(local, remote types.PeerID, kind types.StreamKind) (*stream, *stream) {
	a2b, b2a := newPipe(), newPipe()
	return &stream{peer: remote, kind: kind, in: b2a, out: a2b},
		&stream{peer: local, kind: kind, in: a2b, out: b2a}
}

func (s *stream) Read(b []byte) (int, error)  { return s.in.read(b) }
func (s *stream) Write(b []byte) (int, error) { return s.out.write(b) }
func (s *stream) Peer() types.PeerID          { return s.peer }
func (s *stream) Kind() types.StreamKind      { return s.kind }

func (s *stream) CloseWrite() error {
	s.out.closeWrite()
	return nil
}

func (s *stream) Close() error {
	s.out.closeWrite()
	s.in.fail(ErrStreamClosed)
	return nil
}

func (s *stream) Reset() error {
	s.in.fail(ErrStreamReset)
	s.out.fail(ErrStreamReset)
	return nil
}
