package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shadowsocks/go-shadowsocks2/socks"
)

const udpBufSize = 64 * 1024

// serveUDP relays datagrams through the first server. SIP003 plugins carry
// TCP only, so UDP always goes to the server address directly.
func (t *Tunnel) serveUDP(ctx context.Context, pc net.PacketConn) error {
	u := t.servers[0]
	srvAddr, err := t.dialer.ResolveUDP(ctx, u.Addr)
	if err != nil {
		pc.Close()
		return fmt.Errorf("resolve udp server %s: %w", u.Addr, err)
	}

	nm := newNATMap(udpTimeout, t.logger.Error)
	go func() {
		<-ctx.Done()
		pc.Close()
		nm.closeAll()
	}()

	fwd := t.config.Forward
	buf := make([]byte, udpBufSize)
	copy(buf, fwd)
	for {
		n, peer, err := pc.ReadFrom(buf[len(fwd):])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("udp read on %s: %w", pc.LocalAddr(), err)
		}

		sc, err := nm.get(peer, pc, func() (net.PacketConn, error) {
			c, err := net.ListenPacket("udp", "")
			if err != nil {
				return nil, err
			}
			t.logger.Debug("udp %s <-> %s via %s", peer, fwd, u.Addr)
			return u.cipher.PacketConn(c), nil
		})
		if err != nil {
			t.logger.Error("UDP local listen error: %v", err)
			continue
		}

		if _, err := sc.WriteTo(buf[:len(fwd)+n], srvAddr); err != nil {
			t.logger.Error("UDP write to server %s: %v", u.Addr, err)
		}
	}
}

// natMap holds one server-side socket per local peer.
type natMap struct {
	sync.Mutex
	m       map[string]*natEntry
	timeout time.Duration
	logf    func(string, ...interface{})
}

type natEntry struct {
	net.PacketConn
	lastSend time.Time // guarded by natMap
}

func newNATMap(timeout time.Duration, logf func(string, ...interface{})) *natMap {
	return &natMap{m: make(map[string]*natEntry), timeout: timeout, logf: logf}
}

// get returns the socket for peer, creating it with dial and starting its
// reply loop towards dst when there is none. The entry is marked as used, so
// it cannot expire between get and the caller's write.
func (m *natMap) get(peer net.Addr, dst net.PacketConn, dial func() (net.PacketConn, error)) (net.PacketConn, error) {
	key := peer.String()
	m.Lock()
	defer m.Unlock()

	if e, ok := m.m[key]; ok {
		e.lastSend = time.Now()
		return e, nil
	}
	pc, err := dial()
	if err != nil {
		return nil, err
	}
	e := &natEntry{PacketConn: pc, lastSend: time.Now()}
	m.m[key] = e
	go m.reply(key, peer, dst, e)
	return e, nil
}

// expire removes e if it is still the entry for key and has been idle for
// the full timeout. It reports whether e was removed.
func (m *natMap) expire(key string, e *natEntry, force bool) bool {
	m.Lock()
	defer m.Unlock()
	if !force && time.Since(e.lastSend) < m.timeout {
		return false
	}
	if m.m[key] == e {
		delete(m.m, key)
	}
	e.Close()
	return true
}

func (m *natMap) closeAll() {
	m.Lock()
	defer m.Unlock()
	for k, e := range m.m {
		e.Close()
		delete(m.m, k)
	}
}

func (m *natMap) size() int {
	m.Lock()
	defer m.Unlock()
	return len(m.m)
}

// reply strips the socks address the server prefixes to every reply and
// writes the payload to peer, until e idles out or fails.
func (m *natMap) reply(key string, peer net.Addr, dst net.PacketConn, e *natEntry) {
	buf := make([]byte, udpBufSize)
	for {
		e.SetReadDeadline(time.Now().Add(m.timeout))
		n, _, err := e.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if m.expire(key, e, false) {
					return
				}
				continue
			}
			if !isClosedConnError(err) {
				m.logf("UDP reply to %s: %v", peer, err)
			}
			m.expire(key, e, true)
			return
		}

		addr := socks.SplitAddr(buf[:n])
		if addr == nil {
			continue
		}
		if _, err := dst.WriteTo(buf[len(addr):n], peer); err != nil {
			if !isClosedConnError(err) {
				m.logf("UDP reply to %s: %v", peer, err)
			}
			m.expire(key, e, true)
			return
		}
	}
}
