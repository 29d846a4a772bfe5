package config

import (
	"github.com/1nfsr/sstunnel/internal/cipher"
)

// Overrides are the raw command line values. An empty string or false means
// the flag was not given.
type Overrides struct {
	ServerAddr string
	Password   string
	Method     string
	Plugin     string
	PluginOpts string

	ServerURL   string
	LocalAddr   string
	ForwardAddr string

	UDPOnly   bool
	TCPAndUDP bool

	NoDelay   bool
	IPv6First bool
	Nofile    string
}

// Resolve applies o on top of base and returns the merged configuration.
// base is not modified. A nil base means the tunnel-local defaults.
//
// Server entries are additive: the --server-addr entry is appended first,
// then the --server-url entry, after any servers from the file.
func Resolve(base *Config, o Overrides) (*Config, error) {
	if base == nil {
		base = New()
	}
	cfg := base.clone()

	if o.ServerAddr != "" {
		sc, err := discreteServer(o)
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, sc)
	}

	if o.ServerURL != "" {
		sc, err := ParseServerURL(o.ServerURL)
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, sc)
	}

	if o.LocalAddr != "" {
		ep, err := ParseEndpoint("--local-addr", o.LocalAddr)
		if err != nil {
			return nil, err
		}
		cfg.Local = &ep
	}

	if o.ForwardAddr != "" {
		fwd, err := ParseForward("--forward-addr", o.ForwardAddr)
		if err != nil {
			return nil, err
		}
		cfg.Forward = fwd
	}

	// A narrower request never drops TCP the base already enabled.
	if o.UDPOnly {
		if cfg.Mode.EnableTCP() {
			cfg.Mode = TCPAndUDP
		} else {
			cfg.Mode = UDPOnly
		}
	}
	if o.TCPAndUDP {
		cfg.Mode = TCPAndUDP
	}

	if o.NoDelay {
		cfg.NoDelay = true
	}
	if o.IPv6First {
		cfg.IPv6First = true
	}
	if o.Nofile != "" {
		n, err := ParseNofile("--nofile", o.Nofile)
		if err != nil {
			return nil, err
		}
		cfg.Nofile = &n
	}

	return cfg, nil
}

func discreteServer(o Overrides) (ServerConfig, error) {
	addr, err := ParseEndpoint("--server-addr", o.ServerAddr)
	if err != nil {
		return ServerConfig{}, err
	}
	sc := ServerConfig{Addr: addr, Password: o.Password}
	if o.Method != "" {
		m, err := cipher.ParseKind(o.Method)
		if err != nil {
			return ServerConfig{}, newParseError("--encrypt-method", o.Method, err)
		}
		sc.Method = m
	}
	if o.Plugin != "" {
		sc.Plugin = &Plugin{Name: o.Plugin, Options: o.PluginOpts}
	}
	return sc, nil
}
