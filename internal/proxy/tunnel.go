package proxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shadowsocks/go-shadowsocks2/core"
	"golang.org/x/sync/errgroup"

	"github.com/1nfsr/sstunnel/internal/cipher"
	"github.com/1nfsr/sstunnel/internal/config"
	"github.com/1nfsr/sstunnel/internal/plugin"
	"github.com/1nfsr/sstunnel/pkg/logger"
)

const (
	dialTimeout      = 10 * time.Second
	udpTimeout       = 5 * time.Minute
	halfCloseTimeout = 30 * time.Second
	pluginStartup    = 3 * time.Second
)

type upstream struct {
	config.ServerConfig
	cipher core.Cipher
	dial   config.Endpoint // Server address, or the plugin's local address
}

// Tunnel forwards every local TCP connection and UDP datagram through a
// shadowsocks server to one fixed target.
type Tunnel struct {
	config  config.Config
	servers []*upstream
	dialer  *dialer
	logger  *logger.Logger

	bufPool sync.Pool
}

// NewTunnel builds a tunnel for a validated configuration.
func NewTunnel(cfg config.Config, log *logger.Logger) (*Tunnel, error) {
	servers := make([]*upstream, 0, len(cfg.Servers))
	for _, sc := range cfg.Servers {
		ciph, err := cipher.New(sc.Method, sc.Password)
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", sc.Addr, err)
		}
		servers = append(servers, &upstream{ServerConfig: sc, cipher: ciph, dial: sc.Addr})
	}

	return &Tunnel{
		config:  cfg,
		servers: servers,
		dialer:  &dialer{ipv6First: cfg.IPv6First, timeout: dialTimeout, resolver: net.DefaultResolver},
		logger:  log,
		bufPool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 32*1024)
				return &b
			},
		},
	}, nil
}

// Serve starts plugins and the TCP and UDP relays enabled by the mode, and
// runs until one of them fails or ctx is done. It never returns nil.
func (t *Tunnel) Serve(ctx context.Context) error {
	if len(t.servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	if t.config.Local == nil {
		return fmt.Errorf("no local address configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for _, u := range t.servers {
		if u.Plugin == nil {
			continue
		}
		proc, err := plugin.Start(ctx, *u.Plugin, u.Addr)
		if err != nil {
			return err
		}
		g.Go(proc.Wait)
		if err := proc.WaitReady(ctx, pluginStartup); err != nil {
			return err
		}
		u.dial = proc.LocalAddr()
		t.logger.Info("plugin %s started for %s, listening on %s", proc.Name(), u.Addr, u.dial)
	}

	local := t.config.Local.String()
	if t.config.Mode.EnableTCP() {
		l, err := net.Listen("tcp", local)
		if err != nil {
			return err
		}
		t.logger.Info("tcp tunnel listening on %s, forwarding to %s", l.Addr(), t.config.Forward)
		g.Go(func() error { return t.serveTCP(ctx, l) })
	}
	if t.config.Mode.EnableUDP() {
		pc, err := net.ListenPacket("udp", local)
		if err != nil {
			return err
		}
		t.logger.Info("udp tunnel listening on %s, forwarding to %s", pc.LocalAddr(), t.config.Forward)
		g.Go(func() error { return t.serveUDP(ctx, pc) })
	}

	return g.Wait()
}

func (t *Tunnel) getBuf() *[]byte  { return t.bufPool.Get().(*[]byte) }
func (t *Tunnel) putBuf(b *[]byte) { t.bufPool.Put(b) }
