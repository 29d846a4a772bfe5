package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/1nfsr/sstunnel/internal/config"
)

func TestOrderIPv6First(t *testing.T) {
	ips := []net.IPAddr{
		{IP: net.ParseIP("1.1.1.1")},
		{IP: net.ParseIP("2001:db8::1")},
		{IP: net.ParseIP("2.2.2.2")},
		{IP: net.ParseIP("2001:db8::2")},
	}
	orderIPv6First(ips)

	want := []string{"2001:db8::1", "2001:db8::2", "1.1.1.1", "2.2.2.2"}
	for i, w := range want {
		if ips[i].IP.String() != w {
			t.Fatalf("ips[%d]=%s, want %s (all: %v)", i, ips[i].IP, w, ips)
		}
	}
}

func TestDialer_LiteralIP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	d := &dialer{ipv6First: true, timeout: time.Second, resolver: net.DefaultResolver}
	c, err := d.DialContext(context.Background(), "tcp", endpointOf(t, l.Addr()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c.Close()
}

func TestDialer_ResolveUDPLiteral(t *testing.T) {
	d := &dialer{resolver: net.DefaultResolver}
	a, err := d.ResolveUDP(context.Background(), config.Endpoint{Host: "::1", Port: 53})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.String() != "[::1]:53" {
		t.Fatalf("addr=%s, want [::1]:53", a)
	}
}
