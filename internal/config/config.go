// Package config builds the single runtime configuration of the tunnel from
// the config file and command line overrides, and checks it before launch.
package config

import (
	"net"
	"strconv"

	"github.com/shadowsocks/go-shadowsocks2/socks"

	"github.com/1nfsr/sstunnel/internal/cipher"
)

// Mode selects which transports are relayed.
type Mode int

const (
	TCPOnly Mode = iota
	UDPOnly
	TCPAndUDP
)

func (m Mode) EnableTCP() bool { return m == TCPOnly || m == TCPAndUDP }
func (m Mode) EnableUDP() bool { return m == UDPOnly || m == TCPAndUDP }

func (m Mode) String() string {
	switch m {
	case TCPOnly:
		return "tcp_only"
	case UDPOnly:
		return "udp_only"
	case TCPAndUDP:
		return "tcp_and_udp"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Endpoint is a host (IP or domain name) and port.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) IsZero() bool { return e.Host == "" && e.Port == 0 }

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Plugin is a SIP003 plugin wrapping one upstream server.
type Plugin struct {
	Name    string // Executable
	Options string // SS_PLUGIN_OPTIONS, may be empty
}

// ServerConfig is one upstream shadowsocks server.
type ServerConfig struct {
	Addr     Endpoint
	Password string
	Method   cipher.Kind
	Plugin   *Plugin
	Remarks  string
}

// Config is the resolved runtime configuration. It is built once by Resolve,
// checked by Validate and then only read.
type Config struct {
	Local     *Endpoint
	Servers   []ServerConfig // Dial preference order
	Forward   socks.Addr
	Mode      Mode
	NoDelay   bool
	IPv6First bool
	Nofile    *uint64
}

// New returns the tunnel-local defaults used when no config file is named.
func New() *Config {
	return &Config{Mode: TCPAndUDP}
}

// clone copies c deeply enough that appending to or setting fields on the
// copy never shows through to c.
func (c *Config) clone() *Config {
	out := *c
	if c.Local != nil {
		l := *c.Local
		out.Local = &l
	}
	out.Servers = append([]ServerConfig(nil), c.Servers...)
	if c.Forward != nil {
		out.Forward = append(socks.Addr(nil), c.Forward...)
	}
	if c.Nofile != nil {
		n := *c.Nofile
		out.Nofile = &n
	}
	return &out
}
