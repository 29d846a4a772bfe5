package proxy

import (
	"io"
	"net"
	"testing"

	"github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/socks"

	"github.com/1nfsr/sstunnel/internal/config"
)

// fakeServer is a minimal shadowsocks server: it records the target address
// the client asked for and hands the rest of the stream to handle.
type fakeServer struct {
	addr    config.Endpoint
	targets chan string
	handle  func(net.Conn)
}

func echo(c net.Conn) { io.Copy(c, c) }

func startFakeServer(t *testing.T, ciph core.Cipher) *fakeServer {
	t.Helper()
	return startFakeServerFunc(t, ciph, echo)
}

func startFakeServerFunc(t *testing.T, ciph core.Cipher, handle func(net.Conn)) *fakeServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	s := &fakeServer{addr: endpointOf(t, l.Addr()), targets: make(chan string, 8), handle: handle}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.handleConnection(ciph.StreamConn(conn))
		}
	}()
	return s
}

func (s *fakeServer) handleConnection(sconn net.Conn) {
	defer sconn.Close()

	tgt, err := socks.ReadAddr(sconn)
	if err != nil {
		return
	}
	s.targets <- tgt.String()
	s.handle(sconn)
}

func startFakeUDPServer(t *testing.T, ciph core.Cipher) *fakeServer {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	s := &fakeServer{addr: endpointOf(t, pc.LocalAddr()), targets: make(chan string, 8)}
	spc := ciph.PacketConn(pc)
	go func() {
		buf := make([]byte, udpBufSize)
		for {
			n, from, err := spc.ReadFrom(buf)
			if err != nil {
				return
			}
			tgt := socks.SplitAddr(buf[:n])
			if tgt == nil {
				continue
			}
			s.targets <- tgt.String()
			spc.WriteTo(buf[:n], from)
		}
	}()
	return s
}

func endpointOf(t *testing.T, a net.Addr) config.Endpoint {
	t.Helper()
	ep, err := config.ParseEndpoint("addr", a.String())
	if err != nil {
		t.Fatalf("endpoint of %s: %v", a, err)
	}
	return ep
}
