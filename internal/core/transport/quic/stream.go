package quic

import (
	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// resetCode 重置流时使用的应用错误码
const resetCode = 1

// bidiStream 双向流，用于请求/应答
type bidiStream struct {
	qs   quic.Stream
	peer types.PeerID
}

var _ interfaces.Stream = (*bidiStream)(nil)

func (s *bidiStream) Read(b []byte) (int, error)  { return s.qs.Read(b) }
func (s *bidiStream) Write(b []byte) (int, error) { return s.qs.Write(b) }
func (s *bidiStream) CloseWrite() error           { return s.qs.Close() }
func (s *bidiStream) Peer() types.PeerID          { return s.peer }
func (s *bidiStream) Kind() types.StreamKind      { return types.StreamUnicast }

func (s *bidiStream) Close() error {
	s.qs.CancelRead(0)
	return s.qs.Close()
}

func (s *bidiStream) Reset() error {
	s.qs.CancelRead(resetCode)
	s.qs.CancelWrite(resetCode)
	return nil
}

// sendStream 单向流的发送端
type sendStream struct {
	qs   quic.SendStream
	peer types.PeerID
}

var _ interfaces.Stream = (*sendStream)(nil)

func (s *sendStream) Read([]byte) (int, error)    { return 0, ErrWrongDirection }
func (s *sendStream) Write(b []byte) (int, error) { return s.qs.Write(b) }
func (s *sendStream) CloseWrite() error           { return s.qs.Close() }
func (s *sendStream) Close() error                { return s.qs.Close() }
func (s *sendStream) Peer() types.PeerID          { return s.peer }
func (s *sendStream) Kind() types.StreamKind      { return types.StreamBroadcast }

func (s *sendStream) Reset() error {
	s.qs.CancelWrite(resetCode)
	return nil
}

// recvStream 单向流的接收端
type recvStream struct {
	qs   quic.ReceiveStream
	peer types.PeerID
}

var _ interfaces.Stream = (*recvStream)(nil)

func (s *recvStream) Read(b []byte) (int, error) { return s.qs.Read(b) }
func (s *recvStream) Write([]byte) (int, error)  { return 0, ErrWrongDirection }
func (s *recvStream) CloseWrite() error          { return nil }
func (s *recvStream) Peer() types.PeerID         { return s.peer }
func (s *recvStream) Kind() types.StreamKind     { return types.StreamBroadcast }

func (s *recvStream) Close() error {
	s.qs.CancelRead(0)
	return nil
}

func (s *recvStream) Reset() error {
	s.qs.CancelRead(resetCode)
	return nil
}
