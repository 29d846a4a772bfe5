package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1nfsr/sstunnel/internal/cipher"
	"github.com/1nfsr/sstunnel/internal/config"
)

var scenarioArgs = []string{
	"-s", "1.2.3.4:8388",
	"-k", "secret",
	"-m", "aes-256-gcm",
	"-b", "127.0.0.1:1080",
	"-f", "example.com:80",
}

func TestResolveConfig_DiscreteFlags(t *testing.T) {
	opts, _, err := parseArgs(scenarioArgs)
	if err != nil {
		t.Fatalf("parseArgs unexpected err: %v", err)
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		t.Fatalf("resolveConfig unexpected err: %v", err)
	}

	if len(cfg.Servers) != 1 {
		t.Fatalf("servers=%d, want 1", len(cfg.Servers))
	}
	sc := cfg.Servers[0]
	if sc.Addr.String() != "1.2.3.4:8388" || sc.Password != "secret" || sc.Method != cipher.AES256GCM || sc.Plugin != nil {
		t.Fatalf("server=%+v", sc)
	}
	if cfg.Local.String() != "127.0.0.1:1080" {
		t.Fatalf("local=%v", cfg.Local)
	}
	if cfg.Forward.String() != "example.com:80" {
		t.Fatalf("forward=%v", cfg.Forward)
	}
	if cfg.Mode != config.TCPAndUDP {
		t.Fatalf("mode=%v, want tcp_and_udp", cfg.Mode)
	}
}

func TestRun_MissingForwardExitsBeforeLaunch(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(scenarioArgs[:8], &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	out := stderr.String()
	if !strings.Contains(out, "missing forward address") {
		t.Fatalf("stderr=%q, want missing forward diagnostic", out)
	}
	if !strings.Contains(out, "Usage: sstunnel") {
		t.Fatalf("stderr=%q, want usage", out)
	}
	if strings.Contains(out, "listening") {
		t.Fatalf("tunnel was started: %q", out)
	}
}

func TestRun_ConfigFileWithoutLocal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.json")
	body := `{"server": "1.2.3.4", "server_port": 8388, "password": "secret", "method": "aes-256-gcm"}`
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", p, "-f", "example.com:80"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "missing local address") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-h"}, &stdout, &stderr); code != 0 {
		t.Fatalf("-h exit=%d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "--forward-addr") {
		t.Fatalf("help output=%q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"-V"}, &stdout, &stderr); code != 0 {
		t.Fatalf("-V exit=%d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), "sstunnel ") {
		t.Fatalf("version output=%q", stdout.String())
	}
}

func TestRun_ParseErrorIsFieldSpecific(t *testing.T) {
	args := append([]string{}, scenarioArgs...)
	args[5] = "rc4-md5"

	var stdout, stderr bytes.Buffer
	if code := run(args, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "--encrypt-method") {
		t.Fatalf("stderr=%q, want field name", stderr.String())
	}
}

func TestParseArgs_Relations(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"udp conflicts", []string{"-c", "x", "-u", "-U"}, "cannot be used with"},
		{"server needs password", []string{"-s", "h:1", "-m", "aes-256-gcm", "-b", "h:2"}, "--server-addr requires --password"},
		{"password needs server", []string{"-c", "x", "-k", "p", "-m", "aes-256-gcm"}, "--password requires --server-addr"},
		{"plugin needs server", []string{"-c", "x", "--plugin", "obfs-local"}, "--plugin requires --server-addr"},
		{"plugin opts needs plugin", []string{"-s", "h:1", "-k", "p", "-m", "aes-256-gcm", "-b", "h:2", "--plugin-opts", "x"}, "--plugin-opts requires --plugin"},
		{"server source required", []string{"-b", "h:2", "-f", "h:3"}, "one of --config, --server-addr, --server-url"},
		{"local source required", []string{"--server-url", "ss://x", "-f", "h:3"}, "one of --config, --local-addr"},
		{"stray argument", []string{"-c", "x", "extra"}, "unexpected argument"},
		{"unknown flag", []string{"--bogus"}, "bogus"},
	}
	for _, tt := range tests {
		_, _, err := parseArgs(tt.args)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err=%q, want contains %q", tt.name, err.Error(), tt.want)
		}
	}
}

func TestParseArgs_Counters(t *testing.T) {
	opts, _, err := parseArgs([]string{"-c", "x", "-vvv", "-6", "--no-delay", "-n", "4096", "-U"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if opts.Verbose != 3 || !opts.IPv6First || !opts.NoDelay || opts.Nofile != "4096" || !opts.TCPAndUDP {
		t.Fatalf("opts=%+v", opts)
	}
}
