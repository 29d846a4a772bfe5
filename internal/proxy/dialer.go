package proxy

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/1nfsr/sstunnel/internal/config"
)

// dialer connects to upstream servers. With ipv6First set, hostnames are
// resolved here and IPv6 addresses are tried before IPv4 ones.
type dialer struct {
	ipv6First bool
	timeout   time.Duration
	resolver  *net.Resolver
}

func (d *dialer) DialContext(ctx context.Context, network string, ep config.Endpoint) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.timeout}
	if !d.ipv6First || net.ParseIP(ep.Host) != nil {
		return nd.DialContext(ctx, network, ep.String())
	}

	ips, err := d.lookup(ctx, ep.Host)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, ip := range ips {
		c, err := nd.DialContext(ctx, network, net.JoinHostPort(ip.String(), strconv.Itoa(int(ep.Port))))
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (d *dialer) ResolveUDP(ctx context.Context, ep config.Endpoint) (*net.UDPAddr, error) {
	if ip := net.ParseIP(ep.Host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: int(ep.Port)}, nil
	}
	ips, err := d.lookup(ctx, ep.Host)
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ips[0].IP, Port: int(ep.Port), Zone: ips[0].Zone}, nil
}

func (d *dialer) lookup(ctx context.Context, host string) ([]net.IPAddr, error) {
	ips, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	if d.ipv6First {
		orderIPv6First(ips)
	}
	return ips, nil
}

// orderIPv6First moves IPv6 addresses ahead of IPv4, keeping resolver order
// within each family.
func orderIPv6First(ips []net.IPAddr) {
	sort.SliceStable(ips, func(i, j int) bool {
		return ips[i].IP.To4() == nil && ips[j].IP.To4() != nil
	})
}
