package memory

import (
	"bytes"
	"io"
	"sync"
)

// pipe 单向字节管道，写入从不阻塞
type pipe struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	eof      bool  // 写端已关闭
	err      error // reset 或读端关闭后的错误
	readable chan struct{}
}

func newPipe() *pipe {
	return &pipe{readable: make(chan struct{}, 1)}
}

func (p *pipe) signal() {
	select {
	case p.readable <- struct{}{}:
	default:
	}
}

func (p *pipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	if p.eof {
		return 0, io.ErrClosedPipe
	}
	n, _ := p.buf.Write(b)
	p.signal()
	return n, nil
}

func (p *pipe) read(b []byte) (int, error) {
	for {
		p.mu.Lock()
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return 0, err
		}
		if p.buf.Len() > 0 {
			n, _ := p.buf.Read(b)
			p.mu.Unlock()
			return n, nil
		}
		if p.eof {
			p.mu.Unlock()
			return 0, io.EOF
		}
		p.mu.Unlock()
		<-p.readable
	}
}

func (p *pipe) closeWrite() {
	p.mu.Lock()
	p.eof = true
	p.signal()
	p.mu.Unlock()
}

func (p *pipe) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.signal()
	p.mu.Unlock()
}
