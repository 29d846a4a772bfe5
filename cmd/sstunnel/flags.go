package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/1nfsr/sstunnel/internal/cipher"
	"github.com/1nfsr/sstunnel/internal/config"
)

type options struct {
	config.Overrides

	ConfigPath     string
	Verbose        int
	LogWithoutTime bool
	SingleThreaded bool
	Version        bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("sstunnel", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.CountVarP(&o.Verbose, "verbose", "v", "Set the level of debug, repeat for more")
	fs.BoolVarP(&o.UDPOnly, "udp-only", "u", false, "Relay UDP only (keeps TCP if the config file enables it)")
	fs.BoolVarP(&o.TCPAndUDP, "tcp-and-udp", "U", false, "Relay both TCP and UDP")
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "Config file (JSON, or YAML with a .yaml/.yml extension)")
	fs.StringVarP(&o.LocalAddr, "local-addr", "b", "", "Local address to listen on")
	fs.StringVarP(&o.ServerAddr, "server-addr", "s", "", "Server address")
	fs.StringVarP(&o.Method, "encrypt-method", "m", "", "Encryption method: "+strings.Join(cipher.Names(), ", "))
	fs.StringVarP(&o.Password, "password", "k", "", "Password")
	fs.StringVar(&o.Plugin, "plugin", "", "SIP003 plugin")
	fs.StringVar(&o.PluginOpts, "plugin-opts", "", "SIP003 plugin options")
	fs.StringVar(&o.ServerURL, "server-url", "", "Server address in SIP002 URL")
	fs.StringVarP(&o.ForwardAddr, "forward-addr", "f", "", "Forward address, every connection is forwarded to it")
	fs.BoolVar(&o.NoDelay, "no-delay", false, "Set TCP_NODELAY on sockets")
	fs.StringVarP(&o.Nofile, "nofile", "n", "", "Set RLIMIT_NOFILE soft and hard limit (linux and darwin)")
	fs.BoolVarP(&o.IPv6First, "ipv6-first", "6", false, "Resolve hostnames to IPv6 addresses first")
	fs.BoolVar(&o.LogWithoutTime, "log-without-time", false, "Log without datetime prefix")
	fs.BoolVar(&o.SingleThreaded, "single-threaded", false, "Run on a single OS thread")
	fs.BoolVarP(&o.Version, "version", "V", false, "Print version")
	return fs
}

// parseArgs parses args and enforces the relations between flags. Values are
// not interpreted here.
func parseArgs(args []string) (*options, *pflag.FlagSet, error) {
	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse(args); err != nil {
		return o, fs, err
	}
	if fs.NArg() > 0 {
		return o, fs, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if o.Version {
		return o, fs, nil
	}
	return o, fs, checkFlags(fs)
}

var flagRequires = []struct {
	flag  string
	needs []string
}{
	{"server-addr", []string{"password", "encrypt-method"}},
	{"password", []string{"server-addr", "encrypt-method"}},
	{"encrypt-method", []string{"server-addr", "password"}},
	{"plugin", []string{"server-addr"}},
	{"plugin-opts", []string{"plugin"}},
}

var flagOneOf = [][]string{
	{"config", "server-addr", "server-url"},
	{"config", "local-addr"},
}

func checkFlags(fs *pflag.FlagSet) error {
	if fs.Changed("udp-only") && fs.Changed("tcp-and-udp") {
		return fmt.Errorf("--udp-only cannot be used with --tcp-and-udp")
	}

	for _, r := range flagRequires {
		if !fs.Changed(r.flag) {
			continue
		}
		for _, n := range r.needs {
			if !fs.Changed(n) {
				return fmt.Errorf("--%s requires --%s", r.flag, n)
			}
		}
	}

	for _, group := range flagOneOf {
		found := false
		for _, name := range group {
			if fs.Changed(name) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("one of --%s is required", strings.Join(group, ", --"))
		}
	}
	return nil
}
