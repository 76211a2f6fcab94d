package net

import (
	"bufio"
	"net"
	"sync"

	"github.com/ugorji/go/codec"
)

const bufSize = 64 * 1024

func newMsgpackHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.RawToString = true
	mh.WriteExt = true
	return mh
}

// netConn is an outbound connection with its codec state.
type netConn struct {
	target string
	conn   net.Conn
	w      *bufio.Writer
	dec    *codec.Decoder
	enc    *codec.Encoder
}

func newNetConn(target string, conn net.Conn) *netConn {
	w := bufio.NewWriterSize(conn, bufSize)
	return &netConn{
		target: target,
		conn:   conn,
		w:      w,
		dec:    codec.NewDecoder(bufio.NewReaderSize(conn, bufSize), newMsgpackHandle()),
		enc:    codec.NewEncoder(w, newMsgpackHandle()),
	}
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// connPool keeps up to maxPool idle connections per target.
type connPool struct {
	l       sync.Mutex
	conns   map[string][]*netConn
	maxPool int
	closed  bool
}

func newConnPool(maxPool int) *connPool {
	return &connPool{
		conns:   make(map[string][]*netConn),
		maxPool: maxPool,
	}
}

// get removes and returns an idle connection to target, or nil.
func (p *connPool) get(target string) *netConn {
	p.l.Lock()
	defer p.l.Unlock()

	conns := p.conns[target]
	if len(conns) == 0 {
		return nil
	}

	num := len(conns)
	conn := conns[num-1]
	conns[num-1] = nil
	p.conns[target] = conns[:num-1]
	return conn
}

// put returns conn to the pool, or releases it when the pool is closed or
// full.
func (p *connPool) put(conn *netConn) {
	p.l.Lock()
	defer p.l.Unlock()

	conns := p.conns[conn.target]
	if p.closed || len(conns) >= p.maxPool {
		conn.Release()
		return
	}
	p.conns[conn.target] = append(conns, conn)
}

func (p *connPool) close() {
	p.l.Lock()
	defer p.l.Unlock()

	p.closed = true
	for target, conns := range p.conns {
		for _, c := range conns {
			c.Release()
		}
		delete(p.conns, target)
	}
}

// size returns the number of idle connections to target.
func (p *connPool) size(target string) int {
	p.l.Lock()
	defer p.l.Unlock()
	return len(p.conns[target])
}
